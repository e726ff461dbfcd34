package ratelimit

import (
	"context"
	"sync"
	"time"

	"certifai/pkg/requestcontext"
)

// MemoryLimiter is the in-process fallback used when Redis is not configured,
// and the test double. Limits are per instance.
type MemoryLimiter struct {
	mu      sync.Mutex
	counts  map[string]int
	expiry  map[string]time.Time
	sweepAt time.Time
}

// NewMemoryLimiter constructs an in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		counts: make(map[string]int),
		expiry: make(map[string]time.Time),
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, client, endpoint string, limit int) (*Result, error) {
	now := requestcontext.Now(ctx)
	key := bucketKey(client, endpoint, now)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		for k, exp := range l.expiry {
			if now.After(exp) {
				delete(l.counts, k)
				delete(l.expiry, k)
			}
		}
		l.sweepAt = now.Add(windowTTL)
	}

	if _, ok := l.counts[key]; !ok {
		l.expiry[key] = now.Add(windowTTL)
	}
	l.counts[key]++
	count := l.counts[key]

	res := &Result{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
	}
	if !res.Allowed {
		nextWindow := now.Truncate(time.Minute).Add(time.Minute)
		res.RetryAfter = nextWindow.Sub(now)
	}
	return res, nil
}
