// Package service implements the verification orchestrator: the idempotent,
// cached, multi-step workflow that drives a certificate from pending to a
// terminal status with a full audit trail.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"certifai/internal/blockchain"
	"certifai/internal/verification/analysis"
	"certifai/internal/verification/audit"
	"certifai/internal/verification/cache"
	"certifai/internal/verification/metrics"
	"certifai/internal/verification/models"
	"certifai/internal/verification/scorer"
	"certifai/internal/verification/store"
	dErrors "certifai/pkg/domain-errors"
	"certifai/pkg/platform/sentinel"
)

const tracerName = "certifai/internal/verification/service"

// Service sequences record lookups, the result cache, the external analysis
// call, the confidence policy, the status transition, and the audit trail.
// Each Verify call is stateless; the store and cache are the only points of
// cross-request coordination.
type Service struct {
	store      store.RecordStore
	cache      cache.ResultCache
	analyzer   analysis.Client
	auditStore audit.Store
	publisher  audit.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	cacheTTL   time.Duration
	tracer     trace.Tracer

	// collapses concurrent in-process runs for the same certificate; the
	// store's conditional claim covers the cross-instance case.
	group singleflight.Group
}

// New constructs the orchestrator. publisher and metrics may be nil.
func New(
	recordStore store.RecordStore,
	resultCache cache.ResultCache,
	analyzer analysis.Client,
	auditStore audit.Store,
	publisher audit.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
	cacheTTL time.Duration,
) (*Service, error) {
	if recordStore == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if resultCache == nil {
		return nil, fmt.Errorf("result cache is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analysis client is required")
	}
	if auditStore == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &Service{
		store:      recordStore,
		cache:      resultCache,
		analyzer:   analyzer,
		auditStore: auditStore,
		publisher:  publisher,
		logger:     logger,
		metrics:    m,
		cacheTTL:   cacheTTL,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Verify runs the workflow for one user/certificate pair.
//
// The returned Outcome is never nil: on failure it carries the correlation ID
// and, when the analysis succeeded but persistence did not, the in-memory
// analysis result alongside the storage error.
func (s *Service) Verify(ctx context.Context, userID, certificateID string) (*models.Outcome, error) {
	if userID == "" || certificateID == "" {
		return &models.Outcome{
			Success: false,
			Message: "user id and certificate id are required",
		}, dErrors.New(dErrors.CodeBadRequest, "user id and certificate id are required")
	}

	type verdict struct {
		outcome *models.Outcome
		err     error
	}
	v, _, _ := s.group.Do(certificateID, func() (any, error) {
		outcome, err := s.verify(ctx, userID, certificateID)
		return verdict{outcome: outcome, err: err}, nil
	})
	result := v.(verdict)
	return result.outcome, result.err
}

func (s *Service) verify(ctx context.Context, userID, certificateID string) (*models.Outcome, error) {
	start := time.Now()
	correlationID := uuid.NewString()

	ctx, span := s.tracer.Start(ctx, "verification.verify",
		trace.WithAttributes(
			attribute.String("verification.user_id", userID),
			attribute.String("verification.certificate_id", certificateID),
			attribute.String("verification.correlation_id", correlationID),
		))
	defer span.End()

	alog := audit.NewLogger(s.auditStore, s.publisher, s.logger, s.metrics,
		correlationID, userID, certificateID)
	alog.Record(ctx, models.StepVerificationStarted, audit.StatusInfo, map[string]any{
		"correlation_id": correlationID,
	})

	fail := func(code dErrors.Code, msg string, result *models.AnalysisResult) (*models.Outcome, error) {
		s.metrics.RecordOutcome("failed", "error")
		return &models.Outcome{
			Success:       false,
			Message:       msg,
			CorrelationID: correlationID,
			Result:        result,
		}, dErrors.New(code, msg)
	}

	// Existence checks run in parallel; the certificate lookup is already
	// scoped to the user, so a mismatched pair reads as absent.
	var (
		user *models.User
		cert *models.Certificate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.store.GetUser(gctx, userID)
		user = u
		return err
	})
	g.Go(func() error {
		c, err := s.store.GetCertificate(gctx, userID, certificateID)
		cert = c
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			msg := "certificate not found for user"
			if user == nil {
				msg = "user not found"
			}
			alog.Record(ctx, models.StepVerificationStarted, audit.StatusError, map[string]any{
				"error": msg,
			})
			return fail(dErrors.CodeNotFound, msg, nil)
		}
		alog.Record(ctx, models.StepVerificationStarted, audit.StatusError, map[string]any{
			"error": err.Error(),
		})
		s.logger.ErrorContext(ctx, "record lookup failed",
			"correlation_id", correlationID, "error", err)
		return fail(dErrors.CodeStorageFailed, "record lookup failed", nil)
	}

	// Idempotency: terminal certificates never re-enter the workflow and
	// never trigger a second external call.
	if cert.Status.Terminal() {
		alog.Record(ctx, models.StepVerificationCompleted, audit.StatusSuccess, map[string]any{
			"short_circuit": true,
			"status":        string(cert.Status),
		})
		s.metrics.RecordOutcome(string(cert.Status), "short_circuit")
		return &models.Outcome{
			Success:       cert.Status == models.StatusVerified,
			Status:        cert.Status,
			Message:       fmt.Sprintf("certificate already %s", cert.Status),
			CorrelationID: correlationID,
			Result:        cert.Details,
		}, nil
	}

	// Data-completeness gate. Distinct from an external-service error: the
	// caller must supply the missing references upstream.
	if !cert.HasDocuments() {
		details := map[string]any{
			"certificate_url_present":      cert.CertificateURL != "",
			"verification_url_pdf_present": cert.VerificationURLPDF != "",
		}
		alog.Record(ctx, models.StepDocumentCheck, audit.StatusError, details)
		if _, err := s.store.AppendVerificationLog(ctx, certificateID,
			models.StepDocumentCheck, string(audit.StatusError), details); err != nil {
			s.logger.WarnContext(ctx, "durable log write failed",
				"correlation_id", correlationID, "step", models.StepDocumentCheck, "error", err)
		}
		return fail(dErrors.CodeDataIncomplete, "certificate is missing required document references", nil)
	}

	// On-chain references are advisory metadata. A malformed value is noted in
	// the trail but never blocks verification.
	if onchain := onchainIssues(cert); len(onchain) > 0 {
		alog.Record(ctx, models.StepDocumentCheck, audit.StatusInfo, onchain)
	}

	// Fast path: a cached result means the last external call succeeded and
	// the status was already persisted, so no storage write happens here.
	if cached, err := s.cache.Get(ctx, certificateID); err == nil {
		alog.Record(ctx, models.StepCacheHit, audit.StatusSuccess, nil)
		status := models.StatusRejected
		if cached.Passed() {
			status = models.StatusVerified
		}
		s.metrics.RecordOutcome(string(status), "cache")
		s.metrics.ObserveVerifyLatency(time.Since(start))
		return &models.Outcome{
			Success:       true,
			Status:        status,
			Message:       "verification served from cache",
			CorrelationID: correlationID,
			Result:        cached,
			CachedResult:  true,
		}, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) && !errors.Is(err, sentinel.ErrExpired) {
		// cache trouble is absorbed: correctness never depends on it
		s.logger.WarnContext(ctx, "result cache read failed",
			"correlation_id", correlationID, "error", err)
	}

	// Claim the certificate before the expensive call so concurrent runs on
	// other instances lose cleanly instead of double-invoking the analyzer.
	if err := s.store.ClaimPending(ctx, certificateID); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			alog.Record(ctx, models.StepVerificationProcess, audit.StatusError, map[string]any{
				"error": "verification already in progress",
			})
			return fail(dErrors.CodeConflict, "verification already in progress", nil)
		case errors.Is(err, sentinel.ErrInvalidState), errors.Is(err, sentinel.ErrNotFound):
			return fail(dErrors.CodeConflict, "certificate state changed during verification", nil)
		default:
			return fail(dErrors.CodeStorageFailed, "failed to claim certificate", nil)
		}
	}

	if _, err := s.store.AppendVerificationLog(ctx, certificateID,
		models.StepVerificationProcess, "started", nil); err != nil {
		s.logger.WarnContext(ctx, "durable log write failed",
			"correlation_id", correlationID, "step", models.StepVerificationProcess, "error", err)
	}
	alog.Record(ctx, models.StepVerificationProcess, audit.StatusInfo, map[string]any{"started": true})

	// Slow path: the external analysis call. Not retried here; retry is a
	// caller concern.
	analysisStart := time.Now()
	result, err := s.analyzer.Analyze(ctx, cert.CertificateURL, cert.VerificationURLPDF)
	s.metrics.ObserveAnalysisLatency(time.Since(analysisStart))
	if err != nil {
		details := map[string]any{"error": err.Error()}
		alog.Record(ctx, models.StepAnalysis, audit.StatusError, details)
		if _, logErr := s.store.AppendVerificationLog(ctx, certificateID,
			models.StepAnalysis, string(audit.StatusError), details); logErr != nil {
			s.logger.WarnContext(ctx, "durable log write failed",
				"correlation_id", correlationID, "step", models.StepAnalysis, "error", logErr)
		}
		if releaseErr := s.store.ReleaseClaim(ctx, certificateID); releaseErr != nil {
			s.logger.ErrorContext(ctx, "failed to release claim after analysis error",
				"correlation_id", correlationID, "certificate_id", certificateID, "error", releaseErr)
		}
		return fail(dErrors.CodeAnalysisFailed, "document analysis failed", nil)
	}
	alog.Record(ctx, models.StepAnalysis, audit.StatusSuccess, map[string]any{
		"total_verification":     result.TotalVerification,
		"verification_url_valid": result.VerificationURLValid,
	})

	// Advisory cross-check; recorded for review, never overrides the
	// service's own verdict.
	assessment := scorer.Score(result)
	alog.Record(ctx, models.StepConfidenceReview, audit.StatusInfo, map[string]any{
		"overall_confidence": assessment.OverallConfidence,
		"passing":            assessment.Passing,
		"reasons":            assessment.Reasons,
	})

	newStatus := models.StatusRejected
	if result.Passed() {
		newStatus = models.StatusVerified
	}

	// The business decision exists now; failing to persist it must surface
	// as a distinct conflict, with the in-memory result still returned.
	if err := s.store.UpdateCertificateStatus(ctx, certificateID, newStatus, result); err != nil {
		alog.Record(ctx, models.StepStatusUpdate, audit.StatusError, map[string]any{
			"error":           err.Error(),
			"intended_status": string(newStatus),
		})
		s.logger.ErrorContext(ctx, "status update failed after successful analysis",
			"correlation_id", correlationID, "certificate_id", certificateID, "error", err)
		if releaseErr := s.store.ReleaseClaim(ctx, certificateID); releaseErr != nil {
			s.logger.ErrorContext(ctx, "failed to release claim after storage error",
				"correlation_id", correlationID, "certificate_id", certificateID, "error", releaseErr)
		}
		s.metrics.RecordOutcome("failed", "error")
		return &models.Outcome{
			Success:       false,
			Status:        cert.Status,
			Message:       "analysis completed but the outcome could not be persisted",
			CorrelationID: correlationID,
			Result:        result,
		}, dErrors.Wrap(err, dErrors.CodeStorageFailed, "persist verification outcome")
	}
	alog.Record(ctx, models.StepStatusUpdate, audit.StatusSuccess, map[string]any{
		"status": string(newStatus),
	})

	// Post-decision bookkeeping is best-effort: the transition is durable,
	// so neither the completion row nor the cache write may change the outcome.
	completedDetails := map[string]any{
		"status": string(newStatus),
		"result": result,
	}
	if _, err := s.store.AppendVerificationLog(ctx, certificateID,
		models.StepVerificationCompleted, string(newStatus), completedDetails); err != nil {
		s.logger.WarnContext(ctx, "durable log write failed",
			"correlation_id", correlationID, "step", models.StepVerificationCompleted, "error", err)
	}
	if err := s.cache.Put(ctx, certificateID, result, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "result cache write failed",
			"correlation_id", correlationID, "error", err)
	}
	alog.Record(ctx, models.StepVerificationCompleted, audit.StatusSuccess, map[string]any{
		"status": string(newStatus),
	})

	s.metrics.RecordOutcome(string(newStatus), "analysis")
	s.metrics.ObserveVerifyLatency(time.Since(start))
	return &models.Outcome{
		Success:       true,
		Status:        newStatus,
		Message:       fmt.Sprintf("verification completed: %s", newStatus),
		CorrelationID: correlationID,
		Result:        result,
	}, nil
}

// Trail returns the retained audit entries for one run.
func (s *Service) Trail(ctx context.Context, correlationID string) ([]audit.Entry, error) {
	entries, err := s.auditStore.ListByCorrelation(ctx, correlationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit trail")
	}
	return entries, nil
}

// RecentRuns returns the newest correlation IDs, newest first.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]string, error) {
	ids, err := s.auditStore.RecentRuns(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list recent runs")
	}
	return ids, nil
}

// onchainIssues reports format problems in the certificate's optional on-chain
// references. An empty map means every present reference is well-formed.
func onchainIssues(cert *models.Certificate) map[string]any {
	issues := map[string]any{}
	if cert.NFTMintAddress != nil && !blockchain.ValidMintAddress(*cert.NFTMintAddress) {
		issues["nft_mint_address_valid"] = false
	}
	if cert.ArweaveURL != nil && !blockchain.ValidArweaveURL(*cert.ArweaveURL) {
		issues["arweave_url_valid"] = false
	}
	return issues
}
