package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmry/calmry-backend/internal/database"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { database.RedisClient.Close() })
	return mr
}

func rateLimitedHandler() http.Handler {
	return RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(handler http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/mood/", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitAllowsWithinWindow(t *testing.T) {
	setupRedis(t)
	handler := rateLimitedHandler()

	var last *httptest.ResponseRecorder
	for i := 0; i < RateLimitMaxRequests; i++ {
		last = doRequest(handler, "10.0.0.1")
		require.Equal(t, http.StatusOK, last.Code, "request %d should pass", i+1)
	}

	assert.Equal(t, "25", last.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	mr := setupRedis(t)
	handler := rateLimitedHandler()

	for i := 0; i < RateLimitMaxRequests; i++ {
		doRequest(handler, "10.0.0.2")
	}

	rec := doRequest(handler, "10.0.0.2")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "blocked")

	// The offending IP lands on the blocklist.
	assert.True(t, mr.Exists(BlockedIPKeyPrefix+"10.0.0.2"))

	// Subsequent requests hit the block check before the counter.
	rec = doRequest(handler, "10.0.0.2")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitPerIP(t *testing.T) {
	setupRedis(t)
	handler := rateLimitedHandler()

	for i := 0; i <= RateLimitMaxRequests; i++ {
		doRequest(handler, "10.0.0.3")
	}

	rec := doRequest(handler, "10.0.0.4")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnblockIP(t *testing.T) {
	mr := setupRedis(t)
	handler := rateLimitedHandler()

	for i := 0; i <= RateLimitMaxRequests; i++ {
		doRequest(handler, "10.0.0.5")
	}
	require.True(t, mr.Exists(BlockedIPKeyPrefix + "10.0.0.5"))

	require.NoError(t, UnblockIP("10.0.0.5"))

	blocked, err := IsIPBlocked("10.0.0.5")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	mr := setupRedis(t)
	mr.Close()
	handler := rateLimitedHandler()

	rec := doRequest(handler, "10.0.0.6")
	assert.Equal(t, http.StatusOK, rec.Code)
}
