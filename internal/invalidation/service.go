// Package invalidation maps business-data change events to the cache entries they
// make stale and removes them.
package invalidation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storefront/internal/cache"
	"storefront/internal/invalidation/metrics"
	dErrors "storefront/pkg/domain-errors"
)

// Service removes cache entries for change events. It never writes to the cache.
type Service struct {
	cache   cache.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(c cache.Store, opts ...Option) *Service {
	s := &Service{cache: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate drops every entry made stale by ev. Events with EntityIDs are applied
// once per id; the counts are summed.
func (s *Service) Invalidate(ctx context.Context, ev Event) (Result, error) {
	start := time.Now()
	if strings.TrimSpace(ev.StoreID) == "" {
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "storeId is required")
	}
	if !Valid(ev.ChangeType) {
		return Result{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown change type %q", ev.ChangeType))
	}

	res := Result{ChangeType: ev.ChangeType}
	if len(ev.EntityIDs) > 0 {
		for _, id := range ev.EntityIDs {
			res.Removed += s.apply(ctx, planFor(ev.ChangeType, ev.StoreID, id))
		}
	} else {
		res.Removed = s.apply(ctx, planFor(ev.ChangeType, ev.StoreID, ev.EntityID))
	}

	if s.metrics != nil {
		s.metrics.ObserveInvalidation(string(ev.ChangeType), res.Removed, start)
	}
	s.logger.InfoContext(ctx, "cache invalidated",
		"store_id", ev.StoreID,
		"change_type", ev.ChangeType,
		"entity_id", ev.EntityID,
		"entity_count", len(ev.EntityIDs),
		"removed", res.Removed,
	)
	return res, nil
}

func (s *Service) apply(ctx context.Context, p plan) int {
	removed := 0
	for _, key := range p.keys {
		s.cache.DeleteKey(ctx, key)
		removed++
	}
	for _, prefix := range p.prefixes {
		removed += s.cache.DeleteByPrefix(ctx, prefix)
	}
	return removed
}

// Valid reports whether ct is a known change type.
func Valid(ct ChangeType) bool {
	for _, known := range ChangeTypes {
		if ct == known {
			return true
		}
	}
	return false
}

// planFor is the invalidation map. Every change type has a case; the caller has
// already rejected unknown types.
func planFor(ct ChangeType, storeID, entityID string) plan {
	productLists := []string{
		cache.StorePrefix(cache.FamilyProducts, storeID),
		cache.StorePrefix(cache.FamilyFeaturedProducts, storeID),
		cache.StorePrefix(cache.FamilySearchProducts, storeID),
		cache.StorePrefix(cache.FamilyCollection, storeID),
		cache.StorePrefix(cache.FamilyCollections, storeID),
	}
	// Menus embed resolved links, so every menu cache goes with the navigation.
	navigation := []string{
		cache.StorePrefix(cache.FamilyNavigation, storeID),
		cache.StorePrefix(cache.FamilyNavigationMenu, storeID),
	}
	// Handle mappings are not keyed by id, so a rename or a reused handle cannot be
	// targeted and all of the store's mappings go.
	handles := cache.StorePrefix(cache.FamilyProductHandle, storeID)
	pageLists := append([]string{
		cache.StorePrefix(cache.FamilyPages, storeID),
		cache.StorePrefix(cache.FamilyVisiblePages, storeID),
		cache.StorePrefix(cache.FamilyPoliciesPages, storeID),
	}, navigation...)

	var p plan
	switch ct {
	case ProductCreated:
		p.prefixes = append(productLists, handles)
	case ProductUpdated, ProductDeleted:
		p.keys = entityKey(entityID, func(id string) string { return cache.ProductKey(storeID, id) })
		p.prefixes = append(productLists, handles)
	case CollectionCreated:
		p.prefixes = append([]string{cache.StorePrefix(cache.FamilyCollections, storeID)}, navigation...)
	case CollectionUpdated, CollectionDeleted:
		p.keys = entityKey(entityID, func(id string) string { return cache.CollectionKey(storeID, id) })
		p.prefixes = append([]string{
			cache.StorePrefix(cache.FamilyCollections, storeID),
			cache.StorePrefix(cache.FamilyCollection, storeID),
			cache.StorePrefix(cache.FamilyProducts, storeID),
		}, navigation...)
	case PageCreated:
		p.prefixes = pageLists
	case PageUpdated, PageDeleted:
		p.keys = entityKey(entityID, func(id string) string { return cache.PageKey(storeID, id) })
		p.prefixes = append(pageLists, cache.StorePrefix(cache.FamilyPageSlug, storeID))
	case NavigationUpdated:
		p.prefixes = navigation
	case TemplateUpdated:
		if isTemplatePath(entityID) {
			p.keys = []string{
				cache.TemplateKey(storeID, entityID),
				cache.CompiledTemplateKey(storeID, entityID),
				cache.ProcessedThemeKey(storeID),
			}
			break
		}
		p.prefixes = []string{
			cache.StorePrefix(cache.FamilyTemplate, storeID),
			cache.StorePrefix(cache.FamilyCompiledTemplate, storeID),
		}
	case StoreSettingsUpdated:
		p.prefixes = append([]string{cache.DomainPrefix()}, navigation...)
	case DomainUpdated:
		p.prefixes = []string{cache.DomainPrefix()}
	}
	return p
}

func entityKey(entityID string, key func(string) string) []string {
	if entityID == "" {
		return nil
	}
	return []string{key(entityID)}
}

// isTemplatePath reports whether entityID names a theme file rather than a theme id.
func isTemplatePath(entityID string) bool {
	return strings.Contains(entityID, "/") || strings.HasSuffix(entityID, ".liquid") || strings.HasSuffix(entityID, ".json")
}
