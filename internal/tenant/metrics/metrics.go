package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes recorded by the domain resolver.
const (
	OutcomeCacheHit  = "cache_hit"
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeNotActive = "not_active"
	OutcomeError     = "error"
)

// Metrics provides observability for hostname resolution, the first step of every render.
type Metrics struct {
	Resolutions      *prometheus.CounterVec
	ResolveDuration  prometheus.Histogram
	BackendLookups   prometheus.Counter
	CoalescedLookups prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_domain_resolutions_total",
			Help: "Domain resolutions by outcome",
		}, []string{"outcome"}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_domain_resolve_duration_seconds",
			Help:    "Duration of hostname to store resolution",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		BackendLookups: promauto.NewCounter(prometheus.CounterOpts{
			Name: "storefront_domain_backend_lookups_total",
			Help: "Store record lookups that reached the business data backend",
		}),
		CoalescedLookups: promauto.NewCounter(prometheus.CounterOpts{
			Name: "storefront_domain_coalesced_lookups_total",
			Help: "Concurrent resolutions that shared an in-flight backend lookup",
		}),
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// ObserveResolve records the duration of a Resolve call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementBackendLookup() {
	m.BackendLookups.Inc()
}

func (m *Metrics) IncrementCoalesced() {
	m.CoalescedLookups.Inc()
}
