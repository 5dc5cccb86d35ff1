//go:build integration

package cart_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"storefront/internal/fetchers/cart"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/testutil/containers"
)

type RedisCartStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *cart.RedisStore
	ctx   context.Context
}

func TestRedisCartStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCartStoreSuite))
}

func (s *RedisCartStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = cart.NewRedisStore(s.redis.Client, "test:")
	s.ctx = context.Background()
}

func (s *RedisCartStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func newCart(id string) *cart.Cart {
	now := time.Now()
	return &cart.Cart{ID: id, StoreID: "acme", SessionID: "sess", Currency: "COP", CreatedAt: now, ExpiresAt: now.Add(cart.Lifetime)}
}

func (s *RedisCartStoreSuite) TestConcurrentCreatesConverge() {
	ids := make([]string, 10)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := s.store.Create(s.ctx, newCart(string(rune('a'+i))))
			if err == nil {
				ids[i] = c.ID
			}
		}()
	}
	wg.Wait()
	for _, id := range ids {
		s.Equal(ids[0], id)
	}
}

func (s *RedisCartStoreSuite) TestConcurrentUpdatesAreNotLost() {
	_, err := s.store.Create(s.ctx, newCart("c1"))
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.store.Update(s.ctx, "acme", "sess", func(c *cart.Cart) error {
				c.Items = append(c.Items, cart.Item{ProductID: "p", Quantity: 1})
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := s.store.Find(s.ctx, "acme", "sess")
	s.Require().NoError(err)
	s.Len(got.Items, 4)
}

func (s *RedisCartStoreSuite) TestMissingCart() {
	_, err := s.store.Find(s.ctx, "acme", "nobody")
	s.True(errors.Is(err, sentinel.ErrNotFound))

	_, err = s.store.Update(s.ctx, "acme", "nobody", func(*cart.Cart) error { return nil })
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *RedisCartStoreSuite) TestDelete() {
	_, err := s.store.Create(s.ctx, newCart("c1"))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Delete(s.ctx, "acme", "sess"))
	_, err = s.store.Find(s.ctx, "acme", "sess")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
