package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisLogKeyPrefix = "log:"
	redisRecentKey    = "log:recent"

	// RecentIndexCap bounds the most-recent correlation ID index.
	RecentIndexCap = 1000
)

// RedisStore persists audit entries in Redis with bounded retention.
// Entries live at log:<correlationID>:<unixnano> and expire after the
// configured TTL; a capped newest-first index of correlation IDs is kept at
// log:recent for listing.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed audit store. ttl bounds entry
// retention (7 days in production).
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func entryKey(correlationID string, ts time.Time) string {
	return redisLogKeyPrefix + correlationID + ":" + strconv.FormatInt(ts.UnixNano(), 10)
}

// Append writes one entry with TTL and updates the recent-runs index.
// The index update is best-effort: its failure does not fail the log write.
func (s *RedisStore) Append(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	key := entryKey(entry.CorrelationID, entry.Timestamp)
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	// Dedupe then push newest-first, trim to cap. Pipelined; failures here
	// leave the entry itself intact.
	pipe := s.client.Pipeline()
	pipe.LRem(ctx, redisRecentKey, 0, entry.CorrelationID)
	pipe.LPush(ctx, redisRecentKey, entry.CorrelationID)
	pipe.LTrim(ctx, redisRecentKey, 0, RecentIndexCap-1)
	pipe.Expire(ctx, redisRecentKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil //nolint:nilerr // index maintenance is best-effort by contract
	}
	return nil
}

// ListByCorrelation returns all retained entries for one run, oldest first.
func (s *RedisStore) ListByCorrelation(ctx context.Context, correlationID string) ([]Entry, error) {
	pattern := redisLogKeyPrefix + correlationID + ":*"

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan audit entries: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	// Keys embed the unixnano timestamp, so lexicographic length-aware sort
	// orders same-length suffixes chronologically.
	sort.Strings(keys)

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load audit entries: %w", err)
	}

	entries := make([]Entry, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // expired between scan and fetch
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// RecentRuns returns the newest correlation IDs, newest first, up to limit.
func (s *RedisStore) RecentRuns(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > RecentIndexCap {
		limit = RecentIndexCap
	}
	ids, err := s.client.LRange(ctx, redisRecentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	return ids, nil
}
