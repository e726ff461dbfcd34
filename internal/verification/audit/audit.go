// Package audit records the per-run workflow trail: one timestamped entry per
// orchestration step, keyed by correlation ID. Entries are the fast-path,
// bounded-retention counterpart to the durable verification_logs table.
package audit

import (
	"context"
	"time"
)

// StepStatus is the outcome class of a recorded step.
type StepStatus string

const (
	StatusInfo    StepStatus = "info"
	StatusSuccess StepStatus = "success"
	StatusError   StepStatus = "error"
)

// Entry is one recorded workflow step. Context fields (user, certificate,
// client metadata) are merged in by the Logger; callers supply only step,
// status and details.
type Entry struct {
	CorrelationID string         `json:"correlation_id"`
	Step          string         `json:"step"`
	Status        StepStatus     `json:"status"`
	UserID        string         `json:"user_id,omitempty"`
	CertificateID string         `json:"certificate_id,omitempty"`
	ClientIP      string         `json:"client_ip,omitempty"`
	Device        string         `json:"device,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Store persists audit entries with bounded retention and keeps a capped
// most-recent index of correlation IDs for listing.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByCorrelation(ctx context.Context, correlationID string) ([]Entry, error)
	RecentRuns(ctx context.Context, limit int) ([]string, error)
}

// Publisher fans out entries to an external sink (Kafka). Best-effort:
// failures are logged by the caller and never affect the workflow.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}
