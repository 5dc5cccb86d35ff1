package invalidation

import (
	"context"
	"encoding/json"
	"log/slog"

	"storefront/internal/invalidation/metrics"
	"storefront/internal/platform/kafka/consumer"
	dErrors "storefront/pkg/domain-errors"
)

// Publisher sends encoded events to peer instances.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Broadcaster publishes invalidation events so every renderer instance clears its
// own cache.
type Broadcaster struct {
	publisher Publisher
}

func NewBroadcaster(p Publisher) *Broadcaster {
	return &Broadcaster{publisher: p}
}

// Broadcast publishes ev keyed by store id, keeping one store's events ordered.
func (b *Broadcaster) Broadcast(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode invalidation event")
	}
	if err := b.publisher.Publish(ctx, []byte(ev.StoreID), raw); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to publish invalidation event")
	}
	return nil
}

// EventHandler applies invalidation events consumed from the message bus.
type EventHandler struct {
	service *Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewEventHandler(service *Service, logger *slog.Logger, m *metrics.Metrics) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{service: service, logger: logger, metrics: m}
}

// Handle decodes and applies one event. Malformed events are logged and skipped so
// one bad record never stalls the partition.
func (h *EventHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		h.logger.WarnContext(ctx, "skipping malformed invalidation event",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		h.record("malformed")
		return nil
	}
	if _, err := h.service.Invalidate(ctx, ev); err != nil {
		h.logger.WarnContext(ctx, "rejected invalidation event",
			"store_id", ev.StoreID,
			"change_type", ev.ChangeType,
			"offset", msg.Offset,
			"error", err,
		)
		h.record("rejected")
		return nil
	}
	h.record("applied")
	return nil
}

func (h *EventHandler) record(result string) {
	if h.metrics != nil {
		h.metrics.IncrementEvent(result)
	}
}
