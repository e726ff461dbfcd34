package analytics

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certifai/internal/verification/models"
	"certifai/internal/verification/store"
)

func TestBreakdownSumsStatuses(t *testing.T) {
	records := store.NewMemory()
	records.SeedCertificate(&models.Certificate{ID: "c1", UserID: "u1", Status: models.StatusPending})
	records.SeedCertificate(&models.Certificate{ID: "c2", UserID: "u1", Status: models.StatusVerified})
	records.SeedCertificate(&models.Certificate{ID: "c3", UserID: "u2", Status: models.StatusVerified})
	records.SeedCertificate(&models.Certificate{ID: "c4", UserID: "u2", Status: models.StatusRejected})

	svc, err := NewService(records)
	require.NoError(t, err)

	b, err := svc.Breakdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, b.Total)
	assert.Equal(t, 1, b.Pending)
	assert.Equal(t, 2, b.Verified)
	assert.Equal(t, 1, b.Rejected)
	assert.Zero(t, b.InProgress)
}

func TestHandleStats(t *testing.T) {
	records := store.NewMemory()
	records.SeedCertificate(&models.Certificate{ID: "c1", UserID: "u1", Status: models.StatusVerified})

	svc, err := NewService(records)
	require.NoError(t, err)
	h := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodGet, "/api/verify/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["total"])
	assert.Equal(t, float64(1), resp["verified"])
}
