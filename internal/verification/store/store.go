// Package store owns persistence for users, certificates, and the append-only
// verification log table.
package store

import (
	"context"

	"certifai/internal/verification/models"
)

// RecordStore is the persistence contract consumed by the orchestrator.
// Absent rows surface as sentinel.ErrNotFound (wrapped); transport and
// integrity failures surface as wrapped driver errors, which the service
// layer classifies as storage failures.
type RecordStore interface {
	// GetUser returns the user, read-only for this workflow.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// GetCertificate filters by both user and certificate ID. A certificate
	// ID alone is not a valid lookup key; the pairing prevents cross-user
	// access.
	GetCertificate(ctx context.Context, userID, certificateID string) (*models.Certificate, error)

	// UpdateCertificateStatus persists the status transition together with
	// the serialized analysis details in one statement.
	UpdateCertificateStatus(ctx context.Context, certificateID string, status models.Status, details *models.AnalysisResult) error

	// ClaimPending conditionally moves pending -> in_progress. Returns
	// sentinel.ErrConflict when a concurrent run already holds the claim and
	// sentinel.ErrInvalidState when the certificate is terminal.
	ClaimPending(ctx context.Context, certificateID string) error

	// ReleaseClaim moves in_progress back to pending after a failed analysis
	// so a later run can retry.
	ReleaseClaim(ctx context.Context, certificateID string) error

	// AppendVerificationLog inserts one durable, never-mutated audit row.
	AppendVerificationLog(ctx context.Context, certificateID, step, status string, details map[string]any) (*models.LogRecord, error)

	// CountByStatus aggregates certificates per verification status.
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
}
