//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"purposepay/internal/ratelimit/models"
	"purposepay/internal/ratelimit/store/bucket"
	"purposepay/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedisBucketStore(s.redis.Client)
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketStoreSuite) TestLimitAndReset() {
	ctx := context.Background()
	limit := models.Limit{RequestsPerWindow: 3, Window: time.Minute}
	key := models.Key(models.ClassWrite, "10.1.1.1")

	for i := range 3 {
		result, err := s.store.Allow(ctx, key, limit)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(2-i, result.Remaining)
	}

	result, err := s.store.Allow(ctx, key, limit)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Positive(result.RetryAfter)

	s.Require().NoError(s.store.Reset(ctx, key))
	result, err = s.store.Allow(ctx, key, limit)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisBucketStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	limit := models.Limit{RequestsPerWindow: 1, Window: 200 * time.Millisecond}

	result, err := s.store.Allow(ctx, "short", limit)
	s.Require().NoError(err)
	s.True(result.Allowed)

	result, err = s.store.Allow(ctx, "short", limit)
	s.Require().NoError(err)
	s.False(result.Allowed)

	s.Eventually(func() bool {
		r, err := s.store.Allow(ctx, "short", limit)
		return err == nil && r.Allowed
	}, 2*time.Second, 50*time.Millisecond)
}
