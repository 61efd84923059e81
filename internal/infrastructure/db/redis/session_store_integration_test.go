//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/infrastructure/db/redis"
)

type SessionStoreSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *goredis.Client
	backend   *redis.SessionBackend
}

func TestSessionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	uri, err := container.ConnectionString(ctx)
	s.Require().NoError(err)
	opts, err := goredis.ParseURL(uri)
	s.Require().NoError(err)

	s.client = goredis.NewClient(opts)
	s.Require().NoError(s.client.Ping(ctx).Err())
	s.backend = redis.NewSessionBackend(s.client, time.Hour)
}

func (s *SessionStoreSuite) TearDownSuite() {
	ctx := context.Background()
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(ctx)
	}
}

func (s *SessionStoreSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func (s *SessionStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	store := s.backend.ForProfile(uuid.NewString())
	sess := domain.Session{
		Token: "tok",
		User:  domain.UserProfile{ID: "u2", Username: "techstore", Name: "User TechStore", Role: domain.RoleClient, ClientID: "C1", ClientName: "TechStore"},
	}

	s.Require().NoError(store.Write(ctx, sess))
	got, ok := store.Read(ctx)
	s.Require().True(ok)
	s.Equal(sess, got)
}

func (s *SessionStoreSuite) TestProfilesAreIsolated() {
	ctx := context.Background()
	a := s.backend.ForProfile("a")
	b := s.backend.ForProfile("b")

	s.Require().NoError(a.Write(ctx, domain.Session{Token: "t", User: domain.UserProfile{Username: "admin", Role: domain.RoleAdmin}}))
	_, ok := b.Read(ctx)
	s.False(ok)
}

func (s *SessionStoreSuite) TestClearIsIdempotent() {
	ctx := context.Background()
	store := s.backend.ForProfile("p")
	s.Require().NoError(store.Write(ctx, domain.Session{Token: "t", User: domain.UserProfile{Username: "admin", Role: domain.RoleAdmin}}))

	s.Require().NoError(store.Clear(ctx))
	s.Require().NoError(store.Clear(ctx))
	_, ok := store.Read(ctx)
	s.False(ok)
	s.Equal(int64(0), s.client.Exists(ctx, "wms:profile:p:token", "wms:profile:p:user").Val())
}

func (s *SessionStoreSuite) TestCorruptedUserReadsAsNoSession() {
	ctx := context.Background()
	s.Require().NoError(s.client.Set(ctx, "wms:profile:x:token", "t", 0).Err())
	s.Require().NoError(s.client.Set(ctx, "wms:profile:x:user", "{broken", 0).Err())

	_, ok := s.backend.ForProfile("x").Read(ctx)
	s.False(ok)
}

func (s *SessionStoreSuite) TestTokenWithoutUserReadsAsNoSession() {
	ctx := context.Background()
	s.Require().NoError(s.client.Set(ctx, "wms:profile:y:token", "t", 0).Err())

	_, ok := s.backend.ForProfile("y").Read(ctx)
	s.False(ok)
}
