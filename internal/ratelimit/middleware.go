package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"certifai/internal/transport/http/shared"
	dErrors "certifai/pkg/domain-errors"
	"certifai/pkg/requestcontext"
)

// Middleware applies the per-client limit to every request it wraps.
type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	limit    int
	disabled bool
}

// Option configures the middleware.
type Option func(*Middleware)

// WithDisabled turns rate limiting off entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// NewMiddleware constructs the rate limit middleware. limit is requests per
// minute per client and endpoint.
func NewMiddleware(limiter Limiter, logger *slog.Logger, limit int, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
		limit:   limit,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit wraps the handler with the per-client rate limit check. The limiter
// failing open is deliberate: a broken counter must not take the API down.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled || m.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		client := requestcontext.ClientIP(ctx)
		if client == "" {
			client = r.RemoteAddr
		}

		res, err := m.limiter.Allow(ctx, client, r.URL.Path, m.limit)
		if err != nil {
			m.logger.WarnContext(ctx, "rate limit check failed, allowing request",
				"error", err.Error())
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			shared.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
