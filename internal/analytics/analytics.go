// Package analytics aggregates verification statistics for reporting.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certifai/internal/transport/http/shared"
	"certifai/internal/verification/models"
	dErrors "certifai/pkg/domain-errors"
)

// Counter is the aggregation query the analytics endpoints need.
type Counter interface {
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
}

// Service computes certificate statistics from the record store.
type Service struct {
	counter Counter
}

// NewService constructs the analytics service.
func NewService(counter Counter) (*Service, error) {
	if counter == nil {
		return nil, fmt.Errorf("counter is required")
	}
	return &Service{counter: counter}, nil
}

// StatusBreakdown is the per-status certificate count with the overall total.
type StatusBreakdown struct {
	Total      int                   `json:"total"`
	Pending    int                   `json:"pending"`
	InProgress int                   `json:"in_progress"`
	Verified   int                   `json:"verified"`
	Rejected   int                   `json:"rejected"`
	Counts     map[models.Status]int `json:"-"`
}

// Breakdown returns certificate counts grouped by verification status.
func (s *Service) Breakdown(ctx context.Context) (*StatusBreakdown, error) {
	counts, err := s.counter.CountByStatus(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageFailed, "count certificates by status")
	}
	b := &StatusBreakdown{
		Pending:    counts[models.StatusPending],
		InProgress: counts[models.StatusInProgress],
		Verified:   counts[models.StatusVerified],
		Rejected:   counts[models.StatusRejected],
		Counts:     counts,
	}
	for _, n := range counts {
		b.Total += n
	}
	return b, nil
}

// Handler exposes the analytics endpoints.
type Handler struct {
	logger    *slog.Logger
	analytics *Service
}

// NewHandler creates the analytics HTTP handler.
func NewHandler(analytics *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, analytics: analytics}
}

// Register mounts the analytics routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/verify/stats", h.handleStats)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	breakdown, err := h.analytics.Breakdown(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute status breakdown", "error", err.Error())
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, breakdown)
}
