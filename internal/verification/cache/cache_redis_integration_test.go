//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certifai/internal/verification/cache"
	"certifai/internal/verification/models"
	"certifai/pkg/platform/sentinel"
	"certifai/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = cache.NewRedisCache(s.redis.Client, nil)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestPutGetRoundTrip() {
	ctx := context.Background()

	score := 0.87
	valid := true
	pass := models.TotalVerificationPass
	result := &models.AnalysisResult{
		DocumentA:            &models.DocumentAnalysis{ConfidenceScore: &score},
		VerificationURLValid: &valid,
		TotalVerification:    &pass,
	}

	s.Require().NoError(s.cache.Put(ctx, "cert-1", result, time.Hour))

	got, err := s.cache.Get(ctx, "cert-1")
	s.Require().NoError(err)
	s.InDelta(0.87, got.DocumentAScore(), 1e-9)
	s.True(got.Passed())
}

func (s *RedisCacheSuite) TestMissIsNotFound() {
	_, err := s.cache.Get(context.Background(), "absent")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestEntryExpires() {
	ctx := context.Background()

	pass := models.TotalVerificationPass
	result := &models.AnalysisResult{TotalVerification: &pass}
	s.Require().NoError(s.cache.Put(ctx, "cert-1", result, time.Second))

	time.Sleep(1500 * time.Millisecond)

	_, err := s.cache.Get(ctx, "cert-1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
