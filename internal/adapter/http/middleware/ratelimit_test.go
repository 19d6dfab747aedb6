package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"patient-payments/internal/adapter/http/middleware"
	"patient-payments/internal/adapter/storage/memory"
	redisStore "patient-payments/internal/adapter/storage/redis"
	"patient-payments/internal/core/ports"
	"patient-payments/internal/core/ports/mocks"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func setupRateLimitRouter(store ports.RateLimitStore, actor string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}
	setActor := func(c *gin.Context) {
		if actor != "" {
			c.Set(middleware.CtxActorID, actor)
		}
		c.Next()
	}

	r.GET("/test", setActor, middleware.RateLimiter(store, "test", rule, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func newRedisStore(t *testing.T) *redisStore.RateLimitStore {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisStore.NewRateLimitStore(client)
}

func hit(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	router := setupRateLimitRouter(newRedisStore(t), "patient-1")

	for i := 0; i < 3; i++ {
		w := hit(router, "")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	for name, store := range map[string]ports.RateLimitStore{
		"redis":  newRedisStore(t),
		"memory": memory.NewRateLimitStore(),
	} {
		t.Run(name, func(t *testing.T) {
			router := setupRateLimitRouter(store, "patient-1")
			for i := 0; i < 3; i++ {
				hit(router, "")
			}

			w := hit(router, "")
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), "RATE_001")
		})
	}
}

func TestRateLimiter_KeysByActor(t *testing.T) {
	store := newRedisStore(t)
	first := setupRateLimitRouter(store, "patient-1")
	second := setupRateLimitRouter(store, "patient-2")

	for i := 0; i < 3; i++ {
		hit(first, "")
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(first, "").Code)
	assert.Equal(t, http.StatusOK, hit(second, "").Code)
}

func TestRateLimiter_FallsBackToClientIP(t *testing.T) {
	router := setupRateLimitRouter(newRedisStore(t), "")

	for i := 0; i < 3; i++ {
		hit(router, "198.51.100.1:1234")
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "198.51.100.1:1234").Code)
	assert.Equal(t, http.StatusOK, hit(router, "198.51.100.2:1234").Code)
}

func TestRateLimiter_StoreErrorFailsOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRateLimitStore(ctrl)
	store.EXPECT().Allow(gomock.Any(), "actor:patient-1:test", int64(3), time.Minute).
		Return(nil, errors.New("redis down"))

	w := hit(setupRateLimitRouter(store, "patient-1"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitRules(t *testing.T) {
	rules := middleware.RateLimitRules(middleware.RateLimitRule{Limit: 60, Window: time.Minute})

	assert.Equal(t, int64(15), rules["payment_methods"].Limit)
	assert.Equal(t, int64(60), rules["payments"].Limit)
	assert.Equal(t, time.Minute, rules["audit"].Window)
	assert.Contains(t, rules, "billing")

	tiny := middleware.RateLimitRules(middleware.RateLimitRule{Limit: 2, Window: time.Second})
	assert.Equal(t, int64(1), tiny["payment_methods"].Limit)
}
