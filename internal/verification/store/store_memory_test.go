package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certifai/internal/verification/models"
	"certifai/pkg/platform/sentinel"
)

func seeded() *MemoryStore {
	s := NewMemory()
	s.SeedUser(&models.User{ID: "u1", Email: "u1@example.com", FullName: "User One"})
	s.SeedCertificate(&models.Certificate{
		ID:                 "c1",
		UserID:             "u1",
		Title:              "BSc Computer Science",
		CertificateURL:     "https://docs/cert.pdf",
		VerificationURLPDF: "https://docs/page.pdf",
		Status:             models.StatusPending,
	})
	return s
}

func TestMemoryStoreLookups(t *testing.T) {
	ctx := context.Background()
	s := seeded()

	t.Run("user found", func(t *testing.T) {
		u, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "User One", u.FullName)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		_, err := s.GetUser(ctx, "ghost")
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	})

	t.Run("certificate requires matching owner", func(t *testing.T) {
		_, err := s.GetCertificate(ctx, "someone-else", "c1")
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))

		c, err := s.GetCertificate(ctx, "u1", "c1")
		require.NoError(t, err)
		assert.Equal(t, "c1", c.ID)
	})
}

func TestMemoryStoreClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("claim moves pending to in_progress", func(t *testing.T) {
		s := seeded()
		require.NoError(t, s.ClaimPending(ctx, "c1"))
		assert.Equal(t, models.StatusInProgress, s.Certificate("c1").Status)
	})

	t.Run("second claim conflicts", func(t *testing.T) {
		s := seeded()
		require.NoError(t, s.ClaimPending(ctx, "c1"))
		err := s.ClaimPending(ctx, "c1")
		assert.True(t, errors.Is(err, sentinel.ErrConflict))
	})

	t.Run("terminal state rejects claim", func(t *testing.T) {
		s := seeded()
		require.NoError(t, s.UpdateCertificateStatus(ctx, "c1", models.StatusVerified, nil))
		err := s.ClaimPending(ctx, "c1")
		assert.True(t, errors.Is(err, sentinel.ErrInvalidState))
	})

	t.Run("terminal state rejects further transitions", func(t *testing.T) {
		s := seeded()
		require.NoError(t, s.UpdateCertificateStatus(ctx, "c1", models.StatusVerified, nil))
		err := s.UpdateCertificateStatus(ctx, "c1", models.StatusRejected, nil)
		assert.True(t, errors.Is(err, sentinel.ErrInvalidState))
		assert.Equal(t, models.StatusVerified, s.Certificate("c1").Status)
	})

	t.Run("release returns claim to pending", func(t *testing.T) {
		s := seeded()
		require.NoError(t, s.ClaimPending(ctx, "c1"))
		require.NoError(t, s.ReleaseClaim(ctx, "c1"))
		assert.Equal(t, models.StatusPending, s.Certificate("c1").Status)
	})
}

func TestMemoryStoreLogsAndCounts(t *testing.T) {
	ctx := context.Background()
	s := seeded()

	record, err := s.AppendVerificationLog(ctx, "c1", models.StepVerificationStarted, "info", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)

	logs := s.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.StepVerificationStarted, logs[0].Step)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StatusPending])
}
