//go:build integration

package checkout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"storefront/internal/fetchers/cart"
	"storefront/internal/fetchers/checkout"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/testutil/containers"
)

type RedisCheckoutStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *checkout.RedisStore
	ctx   context.Context
}

func TestRedisCheckoutStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCheckoutStoreSuite))
}

func (s *RedisCheckoutStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = checkout.NewRedisStore(s.redis.Client, "test:")
	s.ctx = context.Background()
}

func (s *RedisCheckoutStoreSuite) TestSaveAndFind() {
	token, err := checkout.NewToken()
	s.Require().NoError(err)
	now := time.Now().UTC().Truncate(time.Second)
	in := &checkout.Session{
		Token:     token,
		StoreID:   "acme",
		Status:    checkout.StatusOpen,
		Currency:  "COP",
		Items:     []cart.Item{{ID: "i1", ProductID: "p1", Title: "Blue Shirt", Price: 89900, Quantity: 2}},
		Subtotal:  179800,
		Total:     179800,
		Customer:  &checkout.Customer{Email: "ana@example.com"},
		CreatedAt: now,
		ExpiresAt: now.Add(checkout.Lifetime),
	}
	s.Require().NoError(s.store.Save(s.ctx, in))

	got, err := s.store.Find(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(in.Items, got.Items)
	s.Equal("ana@example.com", got.Customer.Email)
	s.True(in.ExpiresAt.Equal(got.ExpiresAt))

	ttl, err := s.redis.Client.TTL(s.ctx, "test:checkouts:"+token).Result()
	s.Require().NoError(err)
	s.Greater(ttl, checkout.Lifetime, "sessions stay readable after they expire")
}

func (s *RedisCheckoutStoreSuite) TestMissing() {
	_, err := s.store.Find(s.ctx, "fs_missing")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
