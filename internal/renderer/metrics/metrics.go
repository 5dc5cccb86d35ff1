package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for page rendering.
type Metrics struct {
	Renders        *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	StateDuration  *prometheus.HistogramVec
	SoftFailures   *prometheus.CounterVec
	ErrorPages     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Renders: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_renders_total",
			Help: "Rendered pages by template type and status code",
		}, []string{"template", "status"}),
		RenderDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_render_duration_seconds",
			Help:    "End to end page render duration",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"template"}),
		StateDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_render_state_duration_seconds",
			Help:    "Time spent in each render state",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"state"}),
		SoftFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_render_soft_failures_total",
			Help: "Optional data loads that failed and rendered an empty value",
		}, []string{"data"}),
		ErrorPages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_error_pages_total",
			Help: "Error pages served by error code",
		}, []string{"code"}),
	}
}

// ObserveRender records a finished render.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRender(templateType string, status int, start time.Time) {
	m.Renders.WithLabelValues(templateType, strconv.Itoa(status)).Inc()
	m.RenderDuration.WithLabelValues(templateType).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveState(state string, start time.Time) {
	m.StateDuration.WithLabelValues(state).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementSoftFailure(data string) {
	m.SoftFailures.WithLabelValues(data).Inc()
}

func (m *Metrics) IncrementErrorPage(code string) {
	m.ErrorPages.WithLabelValues(code).Inc()
}
