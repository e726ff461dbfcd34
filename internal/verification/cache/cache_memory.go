package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"certifai/internal/verification/models"
	"certifai/pkg/platform/sentinel"
)

// Clock abstracts time for TTL expiry tests.
type Clock func() time.Time

type memoryEntry struct {
	result    *models.AnalysisResult
	expiresAt time.Time
}

// MemoryCache is an in-memory result cache for tests and single-node
// deployments without Redis.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   Clock
}

// MemoryCacheOption configures a MemoryCache instance.
type MemoryCacheOption func(*MemoryCache)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) MemoryCacheOption {
	return func(c *MemoryCache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewMemoryCache constructs an in-memory result cache.
func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached result. Absence maps to sentinel.ErrNotFound, an
// expired entry to sentinel.ErrExpired; callers treat both as a miss.
// Expired entries are removed lazily.
func (c *MemoryCache) Get(_ context.Context, certificateID string) (*models.AnalysisResult, error) {
	c.mu.RLock()
	entry, ok := c.entries[certificateID]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("result cache miss: %w", sentinel.ErrNotFound)
	}
	if c.clock().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, certificateID)
		c.mu.Unlock()
		return nil, fmt.Errorf("result cache expired: %w", sentinel.ErrExpired)
	}
	return entry.result, nil
}

// Put stores the result with the given TTL, overwriting any previous entry.
func (c *MemoryCache) Put(_ context.Context, certificateID string, result *models.AnalysisResult, ttl time.Duration) error {
	if result == nil {
		return fmt.Errorf("analysis result is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[certificateID] = memoryEntry{
		result:    result,
		expiresAt: c.clock().Add(ttl),
	}
	return nil
}
