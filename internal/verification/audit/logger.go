package audit

import (
	"context"
	"log/slog"

	"certifai/internal/verification/metrics"
	"certifai/pkg/requestcontext"
)

// Logger records workflow steps for a single verification run. Every call is
// best-effort: a store failure falls back to process-log emission and the
// call returns normally. Logging must never abort or alter the workflow.
type Logger struct {
	store     Store
	publisher Publisher
	log       *slog.Logger
	metrics   *metrics.Metrics

	correlationID string
	userID        string
	certificateID string
}

// NewLogger binds a workflow-scoped audit logger to one run. The correlation
// ID and the user/certificate pair are merged into every entry. publisher and
// metrics may be nil.
func NewLogger(store Store, publisher Publisher, log *slog.Logger, m *metrics.Metrics,
	correlationID, userID, certificateID string) *Logger {
	return &Logger{
		store:         store,
		publisher:     publisher,
		log:           log,
		metrics:       m,
		correlationID: correlationID,
		userID:        userID,
		certificateID: certificateID,
	}
}

// Record appends one step entry. Never returns an error and never panics;
// the workflow outcome must not depend on audit persistence.
func (l *Logger) Record(ctx context.Context, step string, status StepStatus, details map[string]any) {
	entry := Entry{
		CorrelationID: l.correlationID,
		Step:          step,
		Status:        status,
		UserID:        l.userID,
		CertificateID: l.certificateID,
		ClientIP:      requestcontext.ClientIP(ctx),
		Device:        requestcontext.Device(ctx),
		Details:       details,
		Timestamp:     requestcontext.Now(ctx),
	}

	if err := l.store.Append(ctx, entry); err != nil {
		l.metrics.RecordAuditFallback()
		l.log.WarnContext(ctx, "audit store write failed, falling back to process log",
			"correlation_id", l.correlationID,
			"step", step,
			"status", string(status),
			"details", details,
			"error", err,
		)
	}

	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, entry); err != nil {
			l.log.WarnContext(ctx, "audit publish failed",
				"correlation_id", l.correlationID,
				"step", step,
				"error", err,
			)
		}
	}
}
