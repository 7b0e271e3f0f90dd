//go:build integration

package consent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"veil/internal/consent"
	"veil/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	store *consent.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.store = consent.NewRedisStore(s.redis.Client, zap.NewNop())
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) TestSaveAndList() {
	base := time.Now().UTC().Truncate(time.Second)
	s.Require().NoError(s.store.Save(s.ctx, newTestConsent("c-1", "user-1", base.Add(-time.Hour))))
	s.Require().NoError(s.store.Save(s.ctx, newTestConsent("c-2", "user-1", base)))

	got, err := s.store.ListByUserPolicy(s.ctx, "user-1", "pol-1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("c-2", got[0].ConsentID)

	byUser, err := s.store.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Len(byUser, 2)

	none, err := s.store.ListByUser(s.ctx, "ghost")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *RedisStoreSuite) TestUpsertFlipsActivity() {
	c := newTestConsent("c-1", "user-1", time.Now())
	s.Require().NoError(s.store.Save(s.ctx, c))

	c.IsActive = false
	s.Require().NoError(s.store.Save(s.ctx, c))

	got, err := s.store.ListByUserPolicy(s.ctx, "user-1", "pol-1")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.False(got[0].IsActive)
}

func (s *RedisStoreSuite) TestStaleIndexEntrySkipped() {
	c := newTestConsent("c-1", "user-1", time.Now())
	s.Require().NoError(s.store.Save(s.ctx, c))

	// Delete the record behind the index's back.
	s.Require().NoError(s.redis.Client.Del(s.ctx, "veil:consent:c-1").Err())

	got, err := s.store.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Empty(got)
}
