package domain

import (
	"fmt"
	"regexp"
	"time"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionAddPaymentMethod AuditAction = "ADD_PAYMENT_METHOD"
	AuditActionProcessPayment   AuditAction = "PROCESS_PAYMENT"
)

// Valid reports whether a is a known action.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionAddPaymentMethod, AuditActionProcessPayment:
		return true
	}
	return false
}

// ClientContext identifies the client that triggered an audited action.
type ClientContext struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

// AuditEntry records a single audited action. Entries are append-only.
// Timestamp has millisecond precision; Sequence breaks ties within one
// millisecond and is assigned by the store.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Sequence  int64          `json:"sequence"`
	Action    AuditAction    `json:"action"`
	Details   map[string]any `json:"details"`
	ActorID   string         `json:"actor_id"`
	Client    ClientContext  `json:"client"`
}

// Key returns the entry's unique storage key.
func (e AuditEntry) Key() AuditKey {
	return AuditKey{TimestampMs: e.Timestamp.UnixMilli(), Sequence: e.Sequence}
}

// AuditKey orders audit entries: timestamp first, then sequence.
type AuditKey struct {
	TimestampMs int64
	Sequence    int64
}

// Less reports whether k sorts before other.
func (k AuditKey) Less(other AuditKey) bool {
	if k.TimestampMs != other.TimestampMs {
		return k.TimestampMs < other.TimestampMs
	}
	return k.Sequence < other.Sequence
}

func (k AuditKey) String() string {
	return fmt.Sprintf("%d-%d", k.TimestampMs, k.Sequence)
}

// DateRange is inclusive on both ends. A zero bound is open. Bounds are
// compared at millisecond precision, the precision entries are stored at.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	ms := t.UnixMilli()
	if !r.Start.IsZero() && ms < r.Start.UnixMilli() {
		return false
	}
	if !r.End.IsZero() && ms > r.End.UnixMilli() {
		return false
	}
	return true
}

// AuditFilter selects audit entries. Zero-valued fields match everything.
// Details values are compared against the text form of the stored value.
type AuditFilter struct {
	Action    AuditAction
	ActorID   string
	IP        string
	UserAgent string
	Details   map[string]string
	DateRange *DateRange
}

var detailKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validate rejects detail keys that cannot be addressed safely in a JSON path.
func (f AuditFilter) Validate() error {
	for k := range f.Details {
		if !detailKeyPattern.MatchString(k) {
			return fmt.Errorf("invalid details key %q", k)
		}
	}
	if f.DateRange != nil && !f.DateRange.Start.IsZero() && !f.DateRange.End.IsZero() &&
		f.DateRange.End.UnixMilli() < f.DateRange.Start.UnixMilli() {
		return fmt.Errorf("date range end before start")
	}
	return nil
}

// Matches evaluates the filter in memory.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.IP != "" && e.Client.IP != f.IP {
		return false
	}
	if f.UserAgent != "" && e.Client.UserAgent != f.UserAgent {
		return false
	}
	if f.DateRange != nil && !f.DateRange.Contains(e.Timestamp) {
		return false
	}
	for k, want := range f.Details {
		v, ok := e.Details[k]
		if !ok || DetailText(v) != want {
			return false
		}
	}
	return true
}

// DetailText renders a details value the way the SQL stores compare it.
func DetailText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
