package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"patient-payments/internal/core/domain"
)

// AuditStore is an in-memory append-only audit log kept in key order.
// It is intended for use in tests and dev environments.
type AuditStore struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
	lastSeq map[int64]int64
}

func NewAuditStore() *AuditStore {
	return &AuditStore{lastSeq: make(map[int64]int64)}
}

// Append assigns the next sequence for the entry's millisecond and inserts
// it in key order.
func (s *AuditStore) Append(_ context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := entry.Timestamp.UnixMilli()
	s.lastSeq[ms]++
	entry.Sequence = s.lastSeq[ms]
	entry.Details = maps.Clone(entry.Details)

	key := entry.Key()
	i := sort.Search(len(s.entries), func(i int) bool {
		return key.Less(s.entries[i].Key())
	})
	s.entries = append(s.entries, domain.AuditEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = entry

	return entry, nil
}

// Scan returns up to limit entries after the given key that match filter.
func (s *AuditStore) Scan(ctx context.Context, filter domain.AuditFilter, after *domain.AuditKey, limit int) ([]domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if after != nil {
		start = sort.Search(len(s.entries), func(i int) bool {
			return after.Less(s.entries[i].Key())
		})
	}

	var out []domain.AuditEntry
	for _, e := range s.entries[start:] {
		if limit > 0 && len(out) >= limit {
			break
		}
		if filter.Matches(e) {
			e.Details = maps.Clone(e.Details)
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of stored entries. Test-only helper.
func (s *AuditStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
