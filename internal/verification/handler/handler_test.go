package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"certifai/internal/platform/middleware"
	"certifai/internal/verification/audit"
	"certifai/internal/verification/handler/mocks"
	"certifai/internal/verification/models"
	dErrors "certifai/pkg/domain-errors"
)

type VerificationHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *VerificationHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestVerificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(VerificationHandlerSuite))
}

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(mockService, logger, nil, nil)
	r := chi.NewRouter()
	h.Register(r)
	return r, mockService
}

func (s *VerificationHandlerSuite) TestHandleVerifySuccess() {
	router, mockService := newTestRouter(s.T())

	mockService.EXPECT().Verify(gomock.Any(), "user123", "cert456").Return(&models.Outcome{
		Success:       true,
		Status:        models.StatusVerified,
		Message:       "verification completed: verified",
		CorrelationID: "corr-1",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/verify/user123/cert456", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), true, resp["success"])
	assert.Equal(s.T(), "verified", resp["status"])
	assert.Equal(s.T(), "corr-1", resp["correlation_id"])
}

func (s *VerificationHandlerSuite) TestHandleVerifyNotFound() {
	router, mockService := newTestRouter(s.T())

	mockService.EXPECT().Verify(gomock.Any(), "user123", "missing").Return(&models.Outcome{
		Success:       false,
		Message:       "certificate not found for user",
		CorrelationID: "corr-2",
	}, dErrors.New(dErrors.CodeNotFound, "certificate not found for user"))

	req := httptest.NewRequest(http.MethodPost, "/api/verify/user123/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "not_found", resp["error"])
	assert.Equal(s.T(), false, resp["retryable"])
	// the correlation ID must survive failure responses
	assert.Equal(s.T(), "corr-2", resp["correlation_id"])
}

func (s *VerificationHandlerSuite) TestHandleVerifyDataIncomplete() {
	router, mockService := newTestRouter(s.T())

	mockService.EXPECT().Verify(gomock.Any(), "user123", "cert456").Return(&models.Outcome{
		Success:       false,
		Message:       "certificate is missing required document references",
		CorrelationID: "corr-3",
	}, dErrors.New(dErrors.CodeDataIncomplete, "certificate is missing required document references"))

	req := httptest.NewRequest(http.MethodPost, "/api/verify/user123/cert456", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "data_incomplete", resp["error"])
}

func (s *VerificationHandlerSuite) TestHandleVerifyAnalysisFailureMapsToBadGateway() {
	router, mockService := newTestRouter(s.T())

	mockService.EXPECT().Verify(gomock.Any(), "user123", "cert456").Return(&models.Outcome{
		Success:       false,
		Message:       "document analysis failed",
		CorrelationID: "corr-4",
	}, dErrors.New(dErrors.CodeAnalysisFailed, "document analysis failed"))

	req := httptest.NewRequest(http.MethodPost, "/api/verify/user123/cert456", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadGateway, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	// analysis failures are transient, the caller may retry
	assert.Equal(s.T(), true, resp["retryable"])
}

func (s *VerificationHandlerSuite) TestHandleVerifyConflictWhileInProgress() {
	router, mockService := newTestRouter(s.T())

	mockService.EXPECT().Verify(gomock.Any(), "user123", "cert456").Return(&models.Outcome{
		Success:       false,
		Message:       "verification already in progress",
		CorrelationID: "corr-5",
	}, dErrors.New(dErrors.CodeConflict, "verification already in progress"))

	req := httptest.NewRequest(http.MethodPost, "/api/verify/user123/cert456", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != "valid-token" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.JWTClaims{Subject: "caller-1"}, nil
}

func (s *VerificationHandlerSuite) TestRequireAuthGuardsRoutes() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(mockService, logger, nil, stubValidator{})
	router := chi.NewRouter()
	h.Register(router)

	req := httptest.NewRequest(http.MethodPost, "/api/verify/user123/cert456", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)

	mockService.EXPECT().Verify(gomock.Any(), "user123", "cert456").Return(&models.Outcome{
		Success:       true,
		Status:        models.StatusVerified,
		CorrelationID: "corr-6",
	}, nil)
	req = httptest.NewRequest(http.MethodPost, "/api/verify/user123/cert456", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *VerificationHandlerSuite) TestHandleTrail() {
	router, mockService := newTestRouter(s.T())

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	mockService.EXPECT().Trail(gomock.Any(), "corr-1").Return([]audit.Entry{
		{
			CorrelationID: "corr-1",
			Step:          models.StepVerificationStarted,
			Status:        audit.StatusInfo,
			UserID:        "user123",
			CertificateID: "cert456",
			Timestamp:     now,
		},
		{
			CorrelationID: "corr-1",
			Step:          models.StepVerificationCompleted,
			Status:        audit.StatusSuccess,
			UserID:        "user123",
			CertificateID: "cert456",
			Timestamp:     now.Add(2 * time.Second),
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/verify/logs/corr-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp struct {
		CorrelationID string        `json:"correlation_id"`
		Entries       []audit.Entry `json:"entries"`
	}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "corr-1", resp.CorrelationID)
	require.Len(s.T(), resp.Entries, 2)
	assert.Equal(s.T(), models.StepVerificationStarted, resp.Entries[0].Step)
}

func (s *VerificationHandlerSuite) TestHandleTrailEmptyIsNotFound() {
	router, mockService := newTestRouter(s.T())

	mockService.EXPECT().Trail(gomock.Any(), "expired").Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/verify/logs/expired", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *VerificationHandlerSuite) TestHandleRecentDefaultLimit() {
	router, mockService := newTestRouter(s.T())

	mockService.EXPECT().RecentRuns(gomock.Any(), defaultRecentLimit).Return([]string{"corr-2", "corr-1"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/verify/recent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp struct {
		CorrelationIDs []string `json:"correlation_ids"`
	}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), []string{"corr-2", "corr-1"}, resp.CorrelationIDs)
}

func (s *VerificationHandlerSuite) TestHandleRecentRejectsBadLimit() {
	router, _ := newTestRouter(s.T())

	for _, limit := range []string{"0", "-1", "banana"} {
		req := httptest.NewRequest(http.MethodGet, "/api/verify/recent?limit="+limit, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}
