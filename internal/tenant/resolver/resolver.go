// Package resolver maps request hostnames to merchant stores.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"storefront/internal/cache"
	"storefront/internal/tenant/metrics"
	"storefront/internal/tenant/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
)

var tracer = otel.Tracer("storefront/tenant/resolver")

// StoreLookup finds store records by hostname.
type StoreLookup interface {
	FindByCustomDomain(ctx context.Context, host string) (*models.Store, error)
	FindByDefaultDomain(ctx context.Context, host string) (*models.Store, error)
}

// cachedDomain is the cache value for a hostname: a store, a not-found marker,
// or a failed-lookup marker.
type cachedDomain struct {
	Store    *models.Store `json:"store,omitempty"`
	NotFound bool          `json:"notFound,omitempty"`
	Failed   bool          `json:"failed,omitempty"`
}

// Resolver resolves hostnames with a cache in front of the store records.
type Resolver struct {
	lookup  StoreLookup
	cache   cache.Store
	ttls    cache.TTLs
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func WithTTLs(ttls cache.TTLs) Option {
	return func(r *Resolver) {
		r.ttls = ttls
	}
}

func New(lookup StoreLookup, c cache.Store, opts ...Option) *Resolver {
	r := &Resolver{
		lookup: lookup,
		cache:  c,
		ttls:   cache.DefaultTTLs(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NormalizeHost lowercases host and strips any port and trailing dot.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

// Resolve returns the active store bound to hostname.
// Errors carry CodeStoreNotFound or CodeStoreNotActive. A store that failed to load
// is reported as not found for the error TTL.
func (r *Resolver) Resolve(ctx context.Context, hostname string) (*models.Store, error) {
	start := time.Now()
	if r.metrics != nil {
		defer r.metrics.ObserveResolve(start)
	}
	host := NormalizeHost(hostname)

	ctx, span := tracer.Start(ctx, "tenant.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("storefront.host", host))

	if host == "" {
		r.outcome(metrics.OutcomeNotFound)
		return nil, dErrors.New(dErrors.CodeStoreNotFound, "store not found")
	}

	entry, hit := cache.Get[*cachedDomain](ctx, r.cache, cache.DomainKey(host))
	if hit && entry != nil {
		r.outcome(metrics.OutcomeCacheHit)
	} else {
		v, err, shared := r.group.Do(host, func() (any, error) {
			return r.load(ctx, host), nil
		})
		if err != nil {
			return nil, err
		}
		if shared && r.metrics != nil {
			r.metrics.IncrementCoalesced()
		}
		entry = v.(*cachedDomain)
	}

	switch {
	case entry.Failed:
		span.SetStatus(codes.Error, "store lookup failed")
		r.outcome(metrics.OutcomeError)
		return nil, dErrors.New(dErrors.CodeStoreNotFound, "store not found")
	case entry.NotFound || entry.Store == nil:
		r.outcome(metrics.OutcomeNotFound)
		return nil, dErrors.New(dErrors.CodeStoreNotFound, "store not found")
	case !entry.Store.IsActive():
		span.SetAttributes(attribute.String("storefront.store_id", entry.Store.ID))
		r.outcome(metrics.OutcomeNotActive)
		return nil, dErrors.New(dErrors.CodeStoreNotActive, "store is not active")
	}
	span.SetAttributes(attribute.String("storefront.store_id", entry.Store.ID))
	if !hit {
		r.outcome(metrics.OutcomeFound)
	}
	return entry.Store, nil
}

// Invalidate drops the cached mapping for hostname.
func (r *Resolver) Invalidate(ctx context.Context, hostname string) {
	r.cache.DeleteKey(ctx, cache.DomainKey(NormalizeHost(hostname)))
}

// load queries both hostname columns in parallel and caches the outcome.
func (r *Resolver) load(ctx context.Context, host string) *cachedDomain {
	if r.metrics != nil {
		r.metrics.IncrementBackendLookup()
	}
	var custom, fallback *models.Store
	var customErr, fallbackErr error

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.Go(func() error {
		custom, customErr = r.lookup.FindByCustomDomain(gctx, host)
		return nil
	})
	g.Go(func() error {
		fallback, fallbackErr = r.lookup.FindByDefaultDomain(gctx, host)
		return nil
	})
	_ = g.Wait()

	key := cache.DomainKey(host)
	var entry *cachedDomain
	ttl := r.ttls.Domain
	switch {
	case customErr == nil && custom != nil:
		entry = &cachedDomain{Store: custom}
	case fallbackErr == nil && fallback != nil:
		entry = &cachedDomain{Store: fallback}
	case isLookupFailure(customErr) || isLookupFailure(fallbackErr):
		r.logger.ErrorContext(ctx, "store lookup failed",
			"host", host,
			"custom_domain_error", customErr,
			"default_domain_error", fallbackErr,
		)
		entry = &cachedDomain{Failed: true}
		ttl = r.ttls.DomainError
	default:
		entry = &cachedDomain{NotFound: true}
		ttl = r.ttls.DomainMiss
	}
	r.cache.Set(ctx, key, entry, ttl)
	return entry
}

func isLookupFailure(err error) bool {
	return err != nil && !errors.Is(err, sentinel.ErrNotFound)
}

func (r *Resolver) outcome(outcome string) {
	if r.metrics != nil {
		r.metrics.IncrementOutcome(outcome)
	}
}
