package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks cache invalidations by change type.
type Metrics struct {
	Invalidations        *prometheus.CounterVec
	EntriesRemoved       *prometheus.CounterVec
	InvalidationDuration prometheus.Histogram
	EventsConsumed       *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Invalidations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cache_invalidations_total",
			Help: "Invalidation requests by change type",
		}, []string{"change_type"}),
		EntriesRemoved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cache_invalidated_entries_total",
			Help: "Cache entries removed by invalidation, by change type",
		}, []string{"change_type"}),
		InvalidationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_cache_invalidation_duration_seconds",
			Help:    "Duration of one invalidation request",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		EventsConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_invalidation_events_consumed_total",
			Help: "Invalidation events read from the message bus by result",
		}, []string{"result"}),
	}
}

// ObserveInvalidation records one applied invalidation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveInvalidation(changeType string, removed int, start time.Time) {
	m.Invalidations.WithLabelValues(changeType).Inc()
	m.EntriesRemoved.WithLabelValues(changeType).Add(float64(removed))
	m.InvalidationDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementEvent(result string) {
	m.EventsConsumed.WithLabelValues(result).Inc()
}
