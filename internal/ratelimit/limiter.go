// Package ratelimit bounds request rates per client and endpoint using a
// fixed one-minute window counter.
package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Result reports one rate limit decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is the counter backend. Implementations bump the counter for the
// window bucket and report whether the caller stayed under the limit.
type Limiter interface {
	Allow(ctx context.Context, client, endpoint string, limit int) (*Result, error)
}

// sanitizeSegment escapes the delimiter so user-controlled identifiers
// containing ':' cannot collide with adjacent buckets.
func sanitizeSegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// bucketKey builds the storage key for one client/endpoint/window triple.
func bucketKey(client, endpoint string, now time.Time) string {
	bucket := now.UTC().Format("200601021504")
	return "ratelimit:" + sanitizeSegment(client) + ":" + sanitizeSegment(endpoint) + ":" + bucket
}
