//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certifai/internal/verification/audit"
	"certifai/internal/verification/models"
	"certifai/pkg/testutil/containers"
)

type RedisAuditStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *audit.RedisStore
}

func TestRedisAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisAuditStoreSuite))
}

func (s *RedisAuditStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = audit.NewRedisStore(s.redis.Client, time.Hour)
}

func (s *RedisAuditStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisAuditStoreSuite) entry(correlationID, step string, ts time.Time) audit.Entry {
	return audit.Entry{
		CorrelationID: correlationID,
		Step:          step,
		Status:        audit.StatusInfo,
		UserID:        "user-1",
		CertificateID: "cert-1",
		Timestamp:     ts,
	}
}

func (s *RedisAuditStoreSuite) TestAppendAndListByCorrelation() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	s.Require().NoError(s.store.Append(ctx, s.entry("corr-1", models.StepVerificationStarted, base)))
	s.Require().NoError(s.store.Append(ctx, s.entry("corr-1", models.StepAnalysis, base.Add(time.Second))))
	s.Require().NoError(s.store.Append(ctx, s.entry("corr-2", models.StepVerificationStarted, base)))

	entries, err := s.store.ListByCorrelation(ctx, "corr-1")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	// chronological order
	s.Equal(models.StepVerificationStarted, entries[0].Step)
	s.Equal(models.StepAnalysis, entries[1].Step)
	s.Equal("cert-1", entries[0].CertificateID)
}

func (s *RedisAuditStoreSuite) TestListUnknownCorrelationIsEmpty() {
	entries, err := s.store.ListByCorrelation(context.Background(), "absent")
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *RedisAuditStoreSuite) TestRecentRunsDedupedNewestFirst() {
	ctx := context.Background()
	base := time.Now().UTC()

	for i, corr := range []string{"a", "b", "a", "c"} {
		s.Require().NoError(s.store.Append(ctx, s.entry(corr, models.StepVerificationStarted,
			base.Add(time.Duration(i)*time.Second))))
	}

	recent, err := s.store.RecentRuns(ctx, 10)
	s.Require().NoError(err)
	// re-running "a" moves it to the front without duplicating it
	s.Equal([]string{"c", "a", "b"}, recent)
}

func (s *RedisAuditStoreSuite) TestRecentRunsHonorsLimit() {
	ctx := context.Background()
	base := time.Now().UTC()

	for i, corr := range []string{"a", "b", "c"} {
		s.Require().NoError(s.store.Append(ctx, s.entry(corr, models.StepVerificationStarted,
			base.Add(time.Duration(i)*time.Second))))
	}

	recent, err := s.store.RecentRuns(ctx, 2)
	s.Require().NoError(err)
	s.Equal([]string{"c", "b"}, recent)
}
