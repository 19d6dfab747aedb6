package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RateLimitStore, *miniredis.Miniredis, *time.Time) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	store := NewRateLimitStore(client)
	store.now = func() time.Time { return now }
	return store, mr, &now
}

func TestRateLimitStore_Allow(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			result, err := store.Allow(ctx, "patient-1:payments", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d should be allowed", i)
			assert.Equal(t, int64(3), result.Limit)
			assert.Equal(t, 3-i, result.Remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		result, err := store.Allow(ctx, "patient-1:payments", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(0), result.Remaining)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		result, err := store.Allow(ctx, "patient-2:payments", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(4), result.Remaining)
	})
}

func TestRateLimitStore_NewWindowResets(t *testing.T) {
	store, _, now := newTestStore(t)
	ctx := context.Background()

	_, err := store.Allow(ctx, "10.0.0.1", 1, time.Minute)
	require.NoError(t, err)

	result, err := store.Allow(ctx, "10.0.0.1", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	*now = now.Add(time.Minute)
	result, err = store.Allow(ctx, "10.0.0.1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRateLimitStore_SetsTTLAndReset(t *testing.T) {
	store, mr, now := newTestStore(t)

	result, err := store.Allow(context.Background(), "patient-3", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, now.Truncate(time.Minute).Add(time.Minute).Unix(), result.ResetAt)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "ppay:ratelimit:patient-3:")
	assert.Equal(t, 61*time.Second, mr.TTL(keys[0]))

	mr.FastForward(62 * time.Second)
	assert.False(t, mr.Exists(keys[0]))
}

func TestRateLimitStore_RedisDown(t *testing.T) {
	store, mr, _ := newTestStore(t)
	mr.Close()

	_, err := store.Allow(context.Background(), "k", 1, time.Minute)
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
	assert.True(t, mr.Exists(healthKey))
	assert.Equal(t, healthTTL, mr.TTL(healthKey))

	mr.Close()
	assert.Error(t, hc.Ping(context.Background()))
}
