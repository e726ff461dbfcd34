package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"certifai/pkg/requestcontext"
)

const windowTTL = 2 * time.Minute

// RedisLimiter counts requests per window bucket in Redis so the limit holds
// across instances.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter constructs a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, client, endpoint string, limit int) (*Result, error) {
	now := requestcontext.Now(ctx)
	key := bucketKey(client, endpoint, now)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// TTL beyond the window so slow clocks still expire the bucket
	pipe.Expire(ctx, key, windowTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("bump rate limit counter: %w", err)
	}

	count := int(incr.Val())
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
