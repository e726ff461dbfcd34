package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certifai/pkg/requestcontext"
)

func windowCtx(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func TestMemoryLimiterEnforcesLimit(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2026, 9, 1, 12, 0, 30, 0, time.UTC)
	ctx := windowCtx(now)

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "10.0.0.1", "/api/verify", 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should pass", i+1)
	}

	res, err := limiter.Allow(ctx, "10.0.0.1", "/api/verify", 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, 30*time.Second, res.RetryAfter)
}

func TestMemoryLimiterIsolatesClientsAndEndpoints(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := windowCtx(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))

	res, err := limiter.Allow(ctx, "10.0.0.1", "/api/verify", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// exhausting one client leaves others untouched
	res, err = limiter.Allow(ctx, "10.0.0.1", "/api/verify", 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = limiter.Allow(ctx, "10.0.0.2", "/api/verify", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, "10.0.0.1", "/api/verify/recent", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiterResetsNextWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	first := time.Date(2026, 9, 1, 12, 0, 59, 0, time.UTC)

	res, err := limiter.Allow(windowCtx(first), "10.0.0.1", "/api/verify", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(windowCtx(first), "10.0.0.1", "/api/verify", 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = limiter.Allow(windowCtx(first.Add(time.Second)), "10.0.0.1", "/api/verify", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "counter must reset in the next minute bucket")
}

func TestColonInClientCannotCrossBuckets(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	a := bucketKey("evil:/api", "verify", now)
	b := bucketKey("evil", "/api:verify", now)
	assert.NotEqual(t, a, b)
}

func TestMiddlewareRejectsWithRetryAfter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := NewMiddleware(NewMemoryLimiter(), logger, 1)

	handler := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/verify/u/c", nil)
		ctx := requestcontext.WithClientMetadata(windowCtx(now), "10.0.0.1", "test")
		return req.WithContext(ctx)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newReq())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newReq())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestMiddlewareDisabledPassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := NewMiddleware(NewMemoryLimiter(), logger, 1, WithDisabled(true))

	handler := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/verify/u/c", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
