package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"patient-payments/internal/core/domain"
)

// AuditStore implements ports.AuditStore on SQLite. Writes go through the
// single Worker; reads use the shared handle and are fully drained before
// returning so no cursor outlives a Scan call.
type AuditStore struct {
	db     *sql.DB
	writer *Worker
}

func NewAuditStore(db *sql.DB, writer *Worker) *AuditStore {
	return &AuditStore{db: db, writer: writer}
}

// Append inserts entry, assigning the next sequence within its millisecond.
func (s *AuditStore) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC().Truncate(time.Millisecond)
	tsMs := entry.Timestamp.UnixMilli()

	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("Append marshal details: %w", err)
	}

	err = s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(seq), 0) + 1 FROM audit_log WHERE ts_ms = ?;
`, tsMs).Scan(&seq); err != nil {
			return fmt.Errorf("Append next seq: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO audit_log(ts_ms, seq, action, actor_id, client_ip, user_agent, details)
VALUES (?, ?, ?, ?, ?, ?, ?);
`,
			tsMs, seq, string(entry.Action), entry.ActorID,
			entry.Client.IP, entry.Client.UserAgent, string(detailsJSON),
		); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}

		entry.Sequence = seq
		return nil
	})
	if err != nil {
		return domain.AuditEntry{}, err
	}
	return entry, nil
}

// Scan returns up to limit entries strictly after the given key.
func (s *AuditStore) Scan(ctx context.Context, filter domain.AuditFilter, after *domain.AuditKey, limit int) ([]domain.AuditEntry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query, args := buildScanQuery(filter, after, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Scan query: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e           domain.AuditEntry
			tsMs        int64
			action      string
			detailsJSON string
		)
		if err := rows.Scan(&tsMs, &e.Sequence, &action, &e.ActorID, &e.Client.IP, &e.Client.UserAgent, &detailsJSON); err != nil {
			return nil, fmt.Errorf("Scan row: %w", err)
		}
		e.Timestamp = time.UnixMilli(tsMs).UTC()
		e.Action = domain.AuditAction(action)
		if err := json.Unmarshal([]byte(detailsJSON), &e.Details); err != nil {
			return nil, fmt.Errorf("Scan details: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Scan rows: %w", err)
	}
	return out, nil
}

func buildScanQuery(filter domain.AuditFilter, after *domain.AuditKey, limit int) (string, []any) {
	var (
		where []string
		args  []any
	)

	if after != nil {
		where = append(where, "(ts_ms > ? OR (ts_ms = ? AND seq > ?))")
		args = append(args, after.TimestampMs, after.TimestampMs, after.Sequence)
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.IP != "" {
		where = append(where, "client_ip = ?")
		args = append(args, filter.IP)
	}
	if filter.UserAgent != "" {
		where = append(where, "user_agent = ?")
		args = append(args, filter.UserAgent)
	}
	if r := filter.DateRange; r != nil {
		if !r.Start.IsZero() {
			where = append(where, "ts_ms >= ?")
			args = append(args, r.Start.UnixMilli())
		}
		if !r.End.IsZero() {
			where = append(where, "ts_ms <= ?")
			args = append(args, r.End.UnixMilli())
		}
	}

	keys := make([]string, 0, len(filter.Details))
	for k := range filter.Details {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		// Keys are restricted to [A-Za-z0-9_] by AuditFilter.Validate.
		where = append(where, "CAST(json_extract(details, ?) AS TEXT) = ?")
		args = append(args, "$."+k, filter.Details[k])
	}

	var b strings.Builder
	b.WriteString("SELECT ts_ms, seq, action, actor_id, client_ip, user_agent, details FROM audit_log")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ts_ms, seq")
	if limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	b.WriteString(";")
	return b.String(), args
}
