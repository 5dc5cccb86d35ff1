package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions   *prometheus.CounterVec
	StoreErrors  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_ratelimit_decisions_total",
			Help: "API rate limit decisions by outcome",
		}, []string{"outcome"}),
		StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "storefront_ratelimit_store_errors_total",
			Help: "Rate limit checks that failed open because the store errored",
		}),
	}
}

func (m *Metrics) IncrementAllowed() {
	m.Decisions.WithLabelValues("allowed").Inc()
}

func (m *Metrics) IncrementDenied() {
	m.Decisions.WithLabelValues("denied").Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	m.StoreErrors.Inc()
}
