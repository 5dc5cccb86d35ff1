package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storefront/internal/platform/metrics"
	"storefront/pkg/requestcontext"
)

// CartSessionCookie is the cookie carrying the opaque cart session id.
const CartSessionCookie = "cart_session"

// StorefrontContext copies the request id, host and cart session into the context so
// services do not need the *http.Request.
func StorefrontContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithRequestID(r.Context(), chimw.GetReqID(r.Context()))
		ctx = requestcontext.WithHost(ctx, r.Host)
		if c, err := r.Cookie(CartSessionCookie); err == nil && c.Value != "" {
			ctx = requestcontext.WithCartSession(ctx, c.Value)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request and feeds the HTTP metrics when m is non-nil.
func RequestLogger(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			if m != nil {
				m.ObserveRequest(route, ww.Status(), start)
			}
			logger.InfoContext(r.Context(), "http request",
				"request_id", chimw.GetReqID(r.Context()),
				"method", r.Method,
				"host", r.Host,
				"path", r.URL.Path,
				"route", route,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
