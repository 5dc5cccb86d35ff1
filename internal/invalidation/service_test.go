package invalidation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"storefront/internal/cache"
	dErrors "storefront/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	cache   *cache.Memory
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.cache = cache.NewMemory()
	s.service = New(s.cache)
	s.seed()
}

// seed fills one entry per key family for stores s1 and s2.
func (s *ServiceSuite) seed() {
	for _, store := range []string{"s1", "s2"} {
		for _, key := range []string{
			cache.ProductKey(store, "p1"),
			cache.ProductKey(store, "p2"),
			cache.ProductHandleKey(store, "blue-shirt"),
			cache.ProductsKey(store, 20, ""),
			cache.FeaturedProductsKey(store, 8),
			cache.SearchProductsKey(store, "shirt", 20),
			cache.CollectionKey(store, "c1"),
			cache.CollectionProductsKey(store, "c1", 8, ""),
			cache.CollectionsKey(store, 10, ""),
			cache.PageKey(store, "pg1"),
			cache.PageSlugKey(store, "about"),
			cache.PagesKey(store, 10, ""),
			cache.VisiblePagesKey(store),
			cache.PoliciesPagesKey(store),
			cache.NavigationKey(store),
			cache.NavigationMenuKey(store, "main-menu"),
			cache.CartKey(store, "sess"),
			cache.TemplateKey(store, "layout/theme.liquid"),
			cache.CompiledTemplateKey(store, "layout/theme.liquid"),
			cache.ProcessedThemeKey(store),
		} {
			s.cache.Set(s.ctx, key, "v", time.Hour)
		}
	}
	s.cache.Set(s.ctx, cache.DomainKey("acme.platform.test"), "v", time.Hour)
	s.cache.Set(s.ctx, cache.DomainKey("other.platform.test"), "v", time.Hour)
}

func (s *ServiceSuite) cached(key string) bool {
	_, ok := s.cache.Get(s.ctx, key)
	return ok
}

func (s *ServiceSuite) assertGone(keys ...string) {
	s.T().Helper()
	for _, k := range keys {
		s.False(s.cached(k), "expected %s to be invalidated", k)
	}
}

func (s *ServiceSuite) assertKept(keys ...string) {
	s.T().Helper()
	for _, k := range keys {
		s.True(s.cached(k), "expected %s to survive", k)
	}
}

func (s *ServiceSuite) invalidate(ct ChangeType, entityID string) Result {
	res, err := s.service.Invalidate(s.ctx, Event{StoreID: "s1", ChangeType: ct, EntityID: entityID})
	s.Require().NoError(err)
	s.Equal(ct, res.ChangeType)
	return res
}

// =============================================================================
// Invalidation map
// =============================================================================
// Justification: each change type must drop exactly its families for one store.

func (s *ServiceSuite) TestProductUpdated() {
	res := s.invalidate(ProductUpdated, "p1")
	s.assertGone(
		cache.ProductKey("s1", "p1"),
		cache.ProductHandleKey("s1", "blue-shirt"),
		cache.ProductsKey("s1", 20, ""),
		cache.FeaturedProductsKey("s1", 8),
		cache.SearchProductsKey("s1", "shirt", 20),
		cache.CollectionKey("s1", "c1"),
		cache.CollectionProductsKey("s1", "c1", 8, ""),
		cache.CollectionsKey("s1", 10, ""),
	)
	s.assertKept(
		cache.ProductKey("s1", "p2"),
		cache.PageKey("s1", "pg1"),
		cache.NavigationKey("s1"),
		cache.TemplateKey("s1", "layout/theme.liquid"),
		cache.ProductKey("s2", "p1"),
		cache.ProductsKey("s2", 20, ""),
		cache.ProductHandleKey("s2", "blue-shirt"),
	)
	s.Equal(8, res.Removed)
}

func (s *ServiceSuite) TestProductCreatedAndDeleted() {
	s.invalidate(ProductCreated, "")
	s.assertKept(cache.ProductKey("s1", "p1"), cache.ProductKey("s1", "p2"))
	s.assertGone(cache.ProductsKey("s1", 20, ""), cache.FeaturedProductsKey("s1", 8), cache.ProductHandleKey("s1", "blue-shirt"))

	s.cache.Set(s.ctx, cache.ProductHandleKey("s1", "red-shirt"), "p2", time.Hour)
	s.invalidate(ProductDeleted, "p2")
	s.assertGone(cache.ProductKey("s1", "p2"), cache.ProductHandleKey("s1", "red-shirt"))
	s.assertKept(cache.ProductKey("s1", "p1"))
}

func (s *ServiceSuite) TestCollectionChanges() {
	s.invalidate(CollectionCreated, "")
	s.assertGone(cache.CollectionsKey("s1", 10, ""), cache.NavigationKey("s1"), cache.NavigationMenuKey("s1", "main-menu"))
	s.assertKept(cache.CollectionKey("s1", "c1"), cache.ProductsKey("s1", 20, ""))

	s.invalidate(CollectionUpdated, "c1")
	s.assertGone(
		cache.CollectionKey("s1", "c1"),
		cache.CollectionProductsKey("s1", "c1", 8, ""),
		cache.ProductsKey("s1", 20, ""),
	)
	s.assertKept(cache.ProductKey("s1", "p1"), cache.FeaturedProductsKey("s1", 8), cache.CollectionKey("s2", "c1"))
}

func (s *ServiceSuite) TestCollectionDeleted() {
	s.invalidate(CollectionDeleted, "c1")
	s.assertGone(cache.CollectionKey("s1", "c1"), cache.CollectionsKey("s1", 10, ""), cache.NavigationKey("s1"))
}

func (s *ServiceSuite) TestPageChanges() {
	s.invalidate(PageCreated, "")
	s.assertGone(cache.PagesKey("s1", 10, ""), cache.NavigationKey("s1"), cache.VisiblePagesKey("s1"), cache.PoliciesPagesKey("s1"))
	s.assertKept(cache.PageKey("s1", "pg1"), cache.PageSlugKey("s1", "about"))

	s.invalidate(PageUpdated, "pg1")
	s.assertGone(cache.PageKey("s1", "pg1"), cache.PageSlugKey("s1", "about"))
	s.assertKept(cache.ProductKey("s1", "p1"), cache.PageKey("s2", "pg1"))
}

func (s *ServiceSuite) TestPageDeleted() {
	s.invalidate(PageDeleted, "pg1")
	s.assertGone(cache.PageKey("s1", "pg1"), cache.PageSlugKey("s1", "about"), cache.VisiblePagesKey("s1"))
}

func (s *ServiceSuite) TestNavigationUpdated() {
	s.invalidate(NavigationUpdated, "")
	s.assertGone(cache.NavigationKey("s1"), cache.NavigationMenuKey("s1", "main-menu"))
	s.assertKept(cache.PagesKey("s1", 10, ""), cache.NavigationKey("s2"), cache.NavigationMenuKey("s2", "main-menu"))
}

func (s *ServiceSuite) TestTemplateUpdatedKeepsSiblings() {
	for _, key := range []string{
		cache.TemplateKey("s1", "sections/header.liquid"),
		cache.CompiledTemplateKey("s1", "sections/header.liquid"),
	} {
		s.cache.Set(s.ctx, key, "v", time.Hour)
	}

	res := s.invalidate(TemplateUpdated, "sections/header.liquid")
	s.assertGone(
		cache.TemplateKey("s1", "sections/header.liquid"),
		cache.CompiledTemplateKey("s1", "sections/header.liquid"),
		cache.ProcessedThemeKey("s1"),
	)
	s.assertKept(
		cache.TemplateKey("s1", "layout/theme.liquid"),
		cache.CompiledTemplateKey("s1", "layout/theme.liquid"),
		cache.TemplateKey("s2", "layout/theme.liquid"),
		cache.ProductKey("s1", "p1"),
	)
	s.Equal(3, res.Removed)
}

func (s *ServiceSuite) TestTemplateUpdatedForWholeTheme() {
	s.invalidate(TemplateUpdated, "")
	s.assertGone(
		cache.TemplateKey("s1", "layout/theme.liquid"),
		cache.CompiledTemplateKey("s1", "layout/theme.liquid"),
		cache.ProcessedThemeKey("s1"),
	)
	s.assertKept(cache.TemplateKey("s2", "layout/theme.liquid"), cache.ProcessedThemeKey("s2"))
}

func (s *ServiceSuite) TestStoreSettingsUpdated() {
	s.invalidate(StoreSettingsUpdated, "")
	s.assertGone(cache.DomainKey("acme.platform.test"), cache.DomainKey("other.platform.test"), cache.NavigationKey("s1"))
	s.assertKept(cache.NavigationKey("s2"), cache.ProductKey("s1", "p1"))
}

func (s *ServiceSuite) TestDomainUpdated() {
	s.invalidate(DomainUpdated, "")
	s.assertGone(cache.DomainKey("acme.platform.test"), cache.DomainKey("other.platform.test"))
	s.assertKept(cache.NavigationKey("s1"))
}

func (s *ServiceSuite) TestEveryChangeTypeHasAPlan() {
	for _, ct := range ChangeTypes {
		p := planFor(ct, "s1", "x")
		s.NotEmpty(p.prefixes, "change type %s drops nothing", ct)
	}
}

// =============================================================================
// Batches and validation
// =============================================================================

func (s *ServiceSuite) TestBatchInvalidation() {
	_, err := s.service.Invalidate(s.ctx, Event{StoreID: "s1", ChangeType: ProductUpdated, EntityIDs: []string{"p1", "p2"}})
	s.Require().NoError(err)
	s.assertGone(cache.ProductKey("s1", "p1"), cache.ProductKey("s1", "p2"))
	s.assertKept(cache.ProductKey("s2", "p1"))
}

func (s *ServiceSuite) TestRejectsUnknownChangeType() {
	_, err := s.service.Invalidate(s.ctx, Event{StoreID: "s1", ChangeType: "price_changed"})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.assertKept(cache.ProductKey("s1", "p1"))
}

func (s *ServiceSuite) TestRequiresStoreID() {
	_, err := s.service.Invalidate(s.ctx, Event{ChangeType: ProductCreated})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
