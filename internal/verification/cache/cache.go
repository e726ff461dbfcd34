// Package cache holds the result cache: certificate ID -> last successful
// analysis result, with TTL eviction. The cache is purely an optimization;
// the workflow stays correct if every operation here fails.
package cache

import (
	"context"
	"time"

	"certifai/internal/verification/models"
)

const keyPrefix = "verification:"

// ResultCache maps a certificate ID to a previously computed analysis result.
// A miss is reported as sentinel.ErrNotFound and never implies failure, only
// "not yet computed or expired".
type ResultCache interface {
	Get(ctx context.Context, certificateID string) (*models.AnalysisResult, error)
	Put(ctx context.Context, certificateID string, result *models.AnalysisResult, ttl time.Duration) error
}

func resultKey(certificateID string) string {
	return keyPrefix + certificateID
}
