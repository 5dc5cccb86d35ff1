package storefront

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/platform/metrics"
	"storefront/internal/platform/middleware"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/platform/middleware/admin"
	"storefront/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// RouterConfig lists everything the HTTP surface is built from. Admin routes are
// guarded by AdminToken; nil metrics disables request metrics. APIRateLimit, when set,
// wraps the cart and checkout API only.
type RouterConfig struct {
	Pages        *PageHandler
	API          *APIHandler
	APIRateLimit func(http.Handler) http.Handler
	Admin        []Registrar
	AdminToken   string
	Health       map[string]HealthCheck
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// NewRouter assembles the storefront router: operational endpoints, admin endpoints,
// the cart and checkout API and the catch-all page renderer, in that order.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(middleware.StorefrontContext)
	r.Use(middleware.RequestLogger(cfg.Logger, cfg.Metrics))

	r.Get("/healthz", healthHandler(cfg.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.AdminToken, cfg.Logger))
		for _, a := range cfg.Admin {
			a.Register(r)
		}
	})
	if cfg.API != nil {
		r.Group(func(r chi.Router) {
			if cfg.APIRateLimit != nil {
				r.Use(cfg.APIRateLimit)
			}
			cfg.API.Register(r)
		})
	}
	if cfg.Pages != nil {
		cfg.Pages.Register(r)
	}
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
