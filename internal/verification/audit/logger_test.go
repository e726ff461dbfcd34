package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Append(context.Context, Entry) error { return errors.New("backend down") }
func (failingStore) ListByCorrelation(context.Context, string) ([]Entry, error) {
	return nil, errors.New("backend down")
}
func (failingStore) RecentRuns(context.Context, int) ([]string, error) {
	return nil, errors.New("backend down")
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, Entry) error {
	p.calls++
	return errors.New("broker down")
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLoggerRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("merges workflow context into every entry", func(t *testing.T) {
		store := NewMemoryStore()
		logger := NewLogger(store, nil, discard(), nil, "corr-1", "u1", "c1")

		logger.Record(ctx, "verification_started", StatusInfo, nil)
		logger.Record(ctx, "analysis", StatusError, map[string]any{"error": "boom"})

		entries, err := store.ListByCorrelation(ctx, "corr-1")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Equal(t, "corr-1", e.CorrelationID)
			assert.Equal(t, "u1", e.UserID)
			assert.Equal(t, "c1", e.CertificateID)
			assert.False(t, e.Timestamp.IsZero())
		}
		assert.Equal(t, StatusError, entries[1].Status)
		assert.Equal(t, "boom", entries[1].Details["error"])
	})

	t.Run("store failure falls back without panicking", func(t *testing.T) {
		logger := NewLogger(failingStore{}, nil, discard(), nil, "corr-1", "u1", "c1")
		assert.NotPanics(t, func() {
			logger.Record(ctx, "verification_started", StatusInfo, nil)
		})
	})

	t.Run("publisher failure is absorbed", func(t *testing.T) {
		pub := &failingPublisher{}
		logger := NewLogger(NewMemoryStore(), pub, discard(), nil, "corr-1", "u1", "c1")
		assert.NotPanics(t, func() {
			logger.Record(ctx, "cache_hit", StatusSuccess, nil)
		})
		assert.Equal(t, 1, pub.calls)
	})
}

func TestMemoryStoreRecentIndex(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Now()
	for i, id := range []string{"a", "b", "c", "b"} {
		require.NoError(t, store.Append(ctx, Entry{
			CorrelationID: id,
			Step:          "verification_started",
			Status:        StatusInfo,
			Timestamp:     base.Add(time.Duration(i) * time.Second),
		}))
	}

	t.Run("deduplicated newest first", func(t *testing.T) {
		ids, err := store.RecentRuns(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, ids)
	})

	t.Run("limit respected", func(t *testing.T) {
		ids, err := store.RecentRuns(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, ids)
	})

	t.Run("entries ordered oldest first", func(t *testing.T) {
		entries, err := store.ListByCorrelation(ctx, "b")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.True(t, entries[0].Timestamp.Before(entries[1].Timestamp))
	})
}
