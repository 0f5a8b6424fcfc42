package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/plankit/pkg/ratelimit"
)

func TestMiddleware_EnforcesLimit(t *testing.T) {
	t.Parallel()

	limiter := newTestLimiter(t, newFakeClock(), 2, time.Minute)

	handler := ratelimit.Middleware(limiter, ratelimit.KeyByHeader("X-API-Key"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	do := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/plans", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do("alpha")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do("alpha")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do("alpha")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other callers are unaffected.
	rec = do("beta")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_SkipsUnattributableRequests(t *testing.T) {
	t.Parallel()

	limiter := newTestLimiter(t, newFakeClock(), 1, time.Minute)

	handler := ratelimit.Middleware(limiter, ratelimit.KeyByHeader("X-API-Key"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/plans", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestKeyByIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	assert.Equal(t, "10.0.0.1", ratelimit.KeyByIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", ratelimit.KeyByIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.1")
	assert.Equal(t, "198.51.100.2", ratelimit.KeyByIP(req))
}

func TestCompositeKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	req.Header.Set("X-API-Key", "alpha")

	key := ratelimit.CompositeKey(ratelimit.KeyByIP, ratelimit.KeyByHeader("X-API-Key"))(req)
	assert.Equal(t, "10.0.0.1:alpha", key)

	// Overlong keys collapse to a bounded hash.
	req.Header.Set("X-API-Key", strings.Repeat("k", 200))
	long := ratelimit.CompositeKey(ratelimit.KeyByIP, ratelimit.KeyByHeader("X-API-Key"))(req)
	assert.Len(t, long, 32)

	// No extractor matched.
	empty := ratelimit.CompositeKey(ratelimit.KeyByHeader("Missing"))(req)
	assert.Empty(t, empty)
}
