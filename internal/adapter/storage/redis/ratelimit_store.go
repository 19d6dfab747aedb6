package redis

import (
	"context"
	"fmt"
	"time"

	"patient-payments/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "ppay:ratelimit:"

// RateLimitStore implements ports.RateLimitStore with fixed-window counters
// shared by every API instance pointed at the same Redis.
type RateLimitStore struct {
	client goredis.UniversalClient
	now    func() time.Time
}

func NewRateLimitStore(client goredis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{client: client, now: time.Now}
}

// Allow increments the counter for key's current window. The TTL is set on
// the first hit so stale windows age out on their own.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	if window < time.Millisecond {
		window = time.Millisecond
	}
	windowMs := window.Milliseconds()
	windowID := s.now().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s%s:%d", keyPrefix, key, windowID)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit incr: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window+time.Second).Err(); err != nil {
			return nil, fmt.Errorf("redis rate limit expire: %w", err)
		}
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &ports.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli((windowID + 1) * windowMs).Unix(),
	}, nil
}
