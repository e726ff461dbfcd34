// Package handler exposes the verification workflow over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"certifai/internal/platform/metrics"
	"certifai/internal/platform/middleware"
	"certifai/internal/transport/http/shared"
	"certifai/internal/verification/audit"
	"certifai/internal/verification/models"
	dErrors "certifai/pkg/domain-errors"
	"certifai/pkg/requestcontext"
)

const defaultRecentLimit = 50

//go:generate mockgen -source=handler.go -destination=mocks/verification-mocks.go -package=mocks

// Service defines the verification operations the transport layer needs.
type Service interface {
	Verify(ctx context.Context, userID, certificateID string) (*models.Outcome, error)
	Trail(ctx context.Context, correlationID string) ([]audit.Entry, error)
	RecentRuns(ctx context.Context, limit int) ([]string, error)
}

// Handler handles verification endpoints.
type Handler struct {
	logger       *slog.Logger
	verification Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new verification Handler.
func New(
	verification Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		verification: verification,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the verification routes on the chi router.
func (h *Handler) Register(r chi.Router) {
	verifyRouter := chi.NewRouter()
	verifyRouter.Use(middleware.Recovery(h.logger))
	verifyRouter.Use(middleware.RequestID)
	verifyRouter.Use(middleware.RequestTime)
	verifyRouter.Use(middleware.ClientMetadata)
	verifyRouter.Use(middleware.Device)
	verifyRouter.Use(middleware.Logger(h.logger))
	verifyRouter.Use(middleware.Timeout(90 * time.Second))
	verifyRouter.Use(middleware.ContentTypeJSON)
	verifyRouter.Use(middleware.LatencyMiddleware(h.metrics))
	if h.jwtValidator != nil {
		verifyRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	}
	verifyRouter.Post("/api/verify/{userID}/{certificateID}", h.handleVerify)
	verifyRouter.Get("/api/verify/logs/{correlationID}", h.handleTrail)
	verifyRouter.Get("/api/verify/recent", h.handleRecent)

	r.Mount("/", verifyRouter)
}

// handleVerify runs the verification workflow for one certificate. The
// outcome body is returned even on failure so the caller always receives the
// correlation ID for the run.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := chi.URLParam(r, "userID")
	certificateID := chi.URLParam(r, "certificateID")
	if userID == "" || certificateID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "user id and certificate id are required"))
		return
	}

	outcome, err := h.verification.Verify(ctx, userID, certificateID)
	if err != nil {
		h.logger.WarnContext(ctx, "verification did not complete",
			"request_id", requestID,
			"caller_id", middleware.GetCallerID(ctx),
			"user_id", userID,
			"certificate_id", certificateID,
			"correlation_id", outcome.CorrelationID,
			"error", err.Error(),
		)
		h.writeFailure(w, outcome, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, outcome)
}

// writeFailure keeps the outcome body on error responses instead of the bare
// error envelope, so correlation IDs and partial results survive the failure.
func (h *Handler) writeFailure(w http.ResponseWriter, outcome *models.Outcome, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		shared.WriteError(w, err)
		return
	}
	status := shared.DomainCodeToHTTPStatus(domainErr.Code)
	body := struct {
		*models.Outcome
		Error     string `json:"error"`
		Retryable bool   `json:"retryable"`
	}{Outcome: outcome, Error: string(domainErr.Code), Retryable: dErrors.Retryable(err)}
	shared.WriteJSON(w, status, body)
}

func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	correlationID := chi.URLParam(r, "correlationID")
	if correlationID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "correlation id is required"))
		return
	}

	entries, err := h.verification.Trail(ctx, correlationID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit trail",
			"request_id", requestcontext.RequestID(ctx),
			"correlation_id", correlationID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	if len(entries) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no audit entries for correlation id"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"correlation_id": correlationID,
		"entries":        entries,
	})
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	ids, err := h.verification.RecentRuns(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list recent runs",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"correlation_ids": ids,
	})
}
