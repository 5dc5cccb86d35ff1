//go:build integration

package invalidation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"storefront/internal/cache"
	"storefront/internal/invalidation"
	"storefront/internal/platform/kafka/consumer"
	"storefront/internal/platform/kafka/producer"
	"storefront/pkg/testutil/containers"
)

type EventsIntegrationSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	topic    string
}

func TestEventsIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(EventsIntegrationSuite))
}

func (s *EventsIntegrationSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())
	s.topic = "storefront.cache.invalidations"
	s.Require().NoError(consumer.EnsureTopic(context.Background(), s.redpanda.Brokers, s.topic, 1))
}

// TestBroadcastReachesEveryInstance runs two consumer groups, standing in for two
// renderer instances, and checks that one broadcast clears both caches.
func (s *EventsIntegrationSuite) TestBroadcastReachesEveryInstance() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	caches := []*cache.Memory{cache.NewMemory(), cache.NewMemory()}
	for _, c := range caches {
		handler := invalidation.NewEventHandler(invalidation.New(c), nil, nil)
		cons, err := consumer.New(consumer.Config{
			Brokers: s.redpanda.Brokers,
			Topics:  []string{s.topic},
			Group:   "storefront-renderer-" + uuid.NewString(),
		}, handler, nil)
		s.Require().NoError(err)
		defer cons.Close()
		go func() { _ = cons.Run(ctx) }()
	}

	prod, err := producer.New(s.redpanda.Brokers, s.topic)
	s.Require().NoError(err)
	defer prod.Close()
	broadcaster := invalidation.NewBroadcaster(prod)

	key := cache.ProductKey("s1", "p1")
	s.Eventually(func() bool {
		for _, c := range caches {
			c.Set(ctx, key, "stale", time.Hour)
		}
		if err := broadcaster.Broadcast(ctx, invalidation.Event{StoreID: "s1", ChangeType: invalidation.ProductUpdated, EntityID: "p1"}); err != nil {
			return false
		}
		time.Sleep(300 * time.Millisecond)
		for _, c := range caches {
			if _, ok := c.Get(ctx, key); ok {
				return false
			}
		}
		return true
	}, 45*time.Second, 500*time.Millisecond)
}
