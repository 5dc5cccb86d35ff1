package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/ratelimit/metrics"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
)

const keyPrefix = "ratelimit:api:"

// Limiter admits limit requests per client IP per window.
type Limiter struct {
	store   Store
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func New(store Store, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Middleware rejects requests over the limit with 429. Store failures let the request
// through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := clientIP(r)

		res, err := l.store.AllowN(ctx, keyPrefix+ip, 1, l.limit, l.window)
		if err != nil {
			if l.metrics != nil {
				l.metrics.IncrementStoreErrors()
			}
			l.logger.WarnContext(ctx, "rate limit check failed, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			if l.metrics != nil {
				l.metrics.IncrementDenied()
			}
			l.logger.InfoContext(ctx, "api rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter(l.now())))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
			return
		}
		if l.metrics != nil {
			l.metrics.IncrementAllowed()
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP reads RemoteAddr, which chi's RealIP middleware has already rewritten
// from the proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
