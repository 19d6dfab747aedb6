package memory

import (
	"context"
	"sync"
	"time"

	"patient-payments/internal/core/ports"
)

// RateLimitStore is a sliding-window limiter for single-instance runs
// without Redis. Each key keeps the timestamps of its accepted requests.
type RateLimitStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow accepts the request if fewer than limit requests were accepted for
// key within the last window.
func (s *RateLimitStore) Allow(_ context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	valid := s.requests[key][:0]
	for _, ts := range s.requests[key] {
		if now.Sub(ts) < window {
			valid = append(valid, ts)
		}
	}

	allowed := int64(len(valid)) < limit
	if allowed {
		valid = append(valid, now)
	}
	if len(valid) == 0 {
		delete(s.requests, key)
	} else {
		s.requests[key] = valid
	}

	resetAt := now.Add(window)
	if len(valid) > 0 {
		resetAt = valid[0].Add(window)
	}
	remaining := limit - int64(len(valid))
	if remaining < 0 {
		remaining = 0
	}

	return &ports.RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt.Unix(),
	}, nil
}
