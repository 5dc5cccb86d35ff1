package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the storefront cache.
// Hit and miss counters are labelled by key family (product, products, domain, ...).
type Metrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	PrefixDeletes prometheus.Histogram
	Entries       prometheus.Gauge
}

// New creates a new Metrics instance with all cache metrics registered.
func New() *Metrics {
	return &Metrics{
		Hits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cache_hits_total",
			Help: "Cache hits by key family",
		}, []string{"family"}),
		Misses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cache_misses_total",
			Help: "Cache misses by key family",
		}, []string{"family"}),
		PrefixDeletes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_cache_prefix_deleted_keys",
			Help:    "Number of keys removed by one prefix deletion",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
		Entries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_cache_entries",
			Help: "Entries held by the process-local cache after the last sweep",
		}),
	}
}

// IncrementHit records a cache hit for family.
func (m *Metrics) IncrementHit(family string) {
	m.Hits.WithLabelValues(family).Inc()
}

// IncrementMiss records a cache miss for family.
func (m *Metrics) IncrementMiss(family string) {
	m.Misses.WithLabelValues(family).Inc()
}

// ObserveDeleted records the size of one prefix deletion.
func (m *Metrics) ObserveDeleted(n int) {
	m.PrefixDeletes.Observe(float64(n))
}

// SetEntries records the current entry count.
func (m *Metrics) SetEntries(n int) {
	m.Entries.Set(float64(n))
}
