package tenant

import (
	"storefront/internal/cache"
	"storefront/internal/tenant/models"
	"storefront/internal/tenant/resolver"
)

// Store is a merchant tenant.
type Store = models.Store

// Resolver maps hostnames to stores.
type Resolver = resolver.Resolver

// NewResolver constructs the domain resolver over the store records and the cache.
func NewResolver(lookup resolver.StoreLookup, c cache.Store, opts ...resolver.Option) *Resolver {
	return resolver.New(lookup, c, opts...)
}
