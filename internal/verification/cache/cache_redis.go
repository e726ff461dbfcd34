package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"certifai/internal/verification/metrics"
	"certifai/internal/verification/models"
	"certifai/pkg/platform/sentinel"
)

// RedisCache persists analysis results in Redis with TTL-based eviction.
type RedisCache struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewRedisCache constructs a Redis-backed result cache.
// Usage: pass a configured Redis client; metrics may be nil.
func NewRedisCache(client *redis.Client, metrics *metrics.Metrics) *RedisCache {
	return &RedisCache{
		client:  client,
		metrics: metrics,
	}
}

// Get loads a cached analysis result by certificate ID.
//
// Errors: returns sentinel.ErrNotFound on cache miss; wraps Redis or JSON
// decode errors.
func (c *RedisCache) Get(ctx context.Context, certificateID string) (*models.AnalysisResult, error) {
	data, err := c.client.Get(ctx, resultKey(certificateID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.RecordCacheMiss()
			return nil, fmt.Errorf("result cache miss: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find cached result: %w", err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	c.metrics.RecordCacheHit()
	return &result, nil
}

// Put writes an analysis result to Redis with TTL eviction.
// Overwrites any existing entry for the certificate.
func (c *RedisCache) Put(ctx context.Context, certificateID string, result *models.AnalysisResult, ttl time.Duration) error {
	if result == nil {
		return fmt.Errorf("analysis result is required")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}
	if err := c.client.Set(ctx, resultKey(certificateID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save cached result: %w", err)
	}
	return nil
}
