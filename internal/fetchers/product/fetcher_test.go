package product

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"storefront/internal/cache"
	"storefront/internal/catalog/models"
	"storefront/internal/catalog/ports"
	"storefront/internal/catalog/store"
	"storefront/internal/fetchers/drops"
	"storefront/internal/invalidation"
	dErrors "storefront/pkg/domain-errors"
)

// countingRepo counts backend reads so tests can tell cache hits from misses.
type countingRepo struct {
	*store.InMemory[*models.Product]
	gets  atomic.Int32
	lists atomic.Int32
	fail  error
}

func (r *countingRepo) Get(ctx context.Context, storeID, id string) (*models.Product, error) {
	r.gets.Add(1)
	if r.fail != nil {
		return nil, r.fail
	}
	return r.InMemory.Get(ctx, storeID, id)
}

func (r *countingRepo) List(ctx context.Context, storeID string, q ports.Query) (ports.Page[*models.Product], error) {
	r.lists.Add(1)
	if r.fail != nil {
		return ports.Page[*models.Product]{}, r.fail
	}
	return r.InMemory.List(ctx, storeID, q)
}

type FetcherSuite struct {
	suite.Suite
	ctx     context.Context
	repo    *countingRepo
	cache   *cache.Memory
	fetcher *Fetcher
	base    time.Time
}

func TestFetcherSuite(t *testing.T) {
	suite.Run(t, new(FetcherSuite))
}

func (s *FetcherSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = &countingRepo{InMemory: store.NewInMemory[*models.Product]()}
	s.cache = cache.NewMemory()
	s.fetcher = New(s.repo, s.cache)
	s.base = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	compareAt := 120000.0
	s.Require().NoError(s.repo.Save(s.ctx,
		&models.Product{ID: "p1", StoreID: "acme", Name: "Blue Shirt", Price: 89900, CompareAtPrice: &compareAt, Status: models.ProductStatusActive, CollectionID: "c1", Quantity: 3, Images: []models.Image{{URL: "https://cdn.test/blue.jpg"}}, CreatedAt: s.base.Add(-3 * time.Hour)},
		&models.Product{ID: "p2", StoreID: "acme", Name: "Red Shirt", Price: 79900, Status: models.ProductStatusActive, CollectionID: "c1", Featured: true, CreatedAt: s.base.Add(-2 * time.Hour)},
		&models.Product{ID: "p3", StoreID: "acme", Name: "Coffee Mug", Price: 25000, Status: models.ProductStatusActive, CreatedAt: s.base.Add(-time.Hour)},
		&models.Product{ID: "p4", StoreID: "acme", Name: "Hidden Shirt", Price: 10000, Status: models.ProductStatusDraft, CollectionID: "c1", CreatedAt: s.base},
	))
}

// =============================================================================
// Single product reads
// =============================================================================

func (s *FetcherSuite) TestGetTransformsProduct() {
	p, err := s.fetcher.Get(s.ctx, "acme", "p1")
	s.Require().NoError(err)
	s.Equal("Blue Shirt", p.Title)
	s.Equal("blue-shirt", p.Handle)
	s.Equal("$89.900", p.Price)
	s.Equal("$120.000", p.CompareAtPrice)
	s.Equal("/products/blue-shirt", p.URL)
	s.Equal("https://cdn.test/blue.jpg", p.FeaturedImage)
	s.Equal("Blue Shirt", p.Images[0].Alt)
	s.True(p.Available)
}

func (s *FetcherSuite) TestGetFallsBackToHandle() {
	p, err := s.fetcher.Get(s.ctx, "acme", "red-shirt")
	s.Require().NoError(err)
	s.Equal("p2", p.ID)

	lists := s.repo.lists.Load()
	again, err := s.fetcher.Get(s.ctx, "acme", "red-shirt")
	s.Require().NoError(err)
	s.Equal(p, again)
	s.Equal(lists, s.repo.lists.Load(), "handle lookups are cached")
}

func (s *FetcherSuite) TestGetHidesInactiveAndForeignProducts() {
	_, err := s.fetcher.Get(s.ctx, "acme", "p4")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.fetcher.Get(s.ctx, "globex", "p1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *FetcherSuite) TestBackendFailureIsDataFetchError() {
	s.repo.fail = errors.New("connection reset")
	_, err := s.fetcher.Get(s.ctx, "acme", "p1")
	s.True(dErrors.HasCode(err, dErrors.CodeDataFetch))
	_, err = s.fetcher.List(s.ctx, "acme", 10, "")
	s.True(dErrors.HasCode(err, dErrors.CodeDataFetch))
}

// TestUpdateInvalidatesOnlyThatProduct checks that a product_updated event forces the
// next read of that product to miss while other cached products stay hits.
func (s *FetcherSuite) TestUpdateInvalidatesOnlyThatProduct() {
	_, err := s.fetcher.Get(s.ctx, "acme", "p1")
	s.Require().NoError(err)
	_, err = s.fetcher.Get(s.ctx, "acme", "p2")
	s.Require().NoError(err)
	s.Equal(int32(2), s.repo.gets.Load())

	_, err = invalidation.New(s.cache).Invalidate(s.ctx, invalidation.Event{StoreID: "acme", ChangeType: invalidation.ProductUpdated, EntityID: "p1"})
	s.Require().NoError(err)

	_, err = s.fetcher.Get(s.ctx, "acme", "p2")
	s.Require().NoError(err)
	s.Equal(int32(2), s.repo.gets.Load(), "p2 stays cached")

	_, err = s.fetcher.Get(s.ctx, "acme", "p1")
	s.Require().NoError(err)
	s.Equal(int32(3), s.repo.gets.Load(), "p1 is read again")
}

func (s *FetcherSuite) TestRenamedProductReleasesOldHandle() {
	_, err := s.fetcher.Get(s.ctx, "acme", "blue-shirt")
	s.Require().NoError(err)

	renamed, err := s.repo.InMemory.Get(s.ctx, "acme", "p1")
	s.Require().NoError(err)
	renamed.Name = "Navy Shirt"
	s.Require().NoError(s.repo.Save(s.ctx, renamed))
	s.invalidate(invalidation.ProductUpdated, "p1")

	_, err = s.fetcher.Get(s.ctx, "acme", "blue-shirt")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "old handle no longer resolves")

	p, err := s.fetcher.Get(s.ctx, "acme", "navy-shirt")
	s.Require().NoError(err)
	s.Equal("p1", p.ID)
}

func (s *FetcherSuite) TestReusedHandleResolvesToNewProduct() {
	_, err := s.fetcher.Get(s.ctx, "acme", "blue-shirt")
	s.Require().NoError(err)

	s.Require().NoError(s.repo.Delete(s.ctx, "acme", "p1"))
	s.invalidate(invalidation.ProductDeleted, "p1")
	s.Require().NoError(s.repo.Save(s.ctx, &models.Product{ID: "p9", StoreID: "acme", Name: "Blue Shirt", Price: 99900, Status: models.ProductStatusActive, CreatedAt: s.base}))
	s.invalidate(invalidation.ProductCreated, "p9")

	p, err := s.fetcher.Get(s.ctx, "acme", "blue-shirt")
	s.Require().NoError(err)
	s.Equal("p9", p.ID)
	s.Equal("$99.900", p.Price)
}

func (s *FetcherSuite) invalidate(ct invalidation.ChangeType, entityID string) {
	_, err := invalidation.New(s.cache).Invalidate(s.ctx, invalidation.Event{StoreID: "acme", ChangeType: ct, EntityID: entityID})
	s.Require().NoError(err)
}

// =============================================================================
// Lists
// =============================================================================

func (s *FetcherSuite) TestListPaginatesActiveProducts() {
	first, err := s.fetcher.List(s.ctx, "acme", 2, "")
	s.Require().NoError(err)
	s.Require().Len(first.Products, 2)
	s.Equal("p3", first.Products[0].ID)
	s.NotEmpty(first.NextToken)

	second, err := s.fetcher.List(s.ctx, "acme", 2, first.NextToken)
	s.Require().NoError(err)
	s.Require().Len(second.Products, 1)
	s.Equal("p1", second.Products[0].ID)
	s.Empty(second.NextToken)

	_, ok := s.cache.Get(s.ctx, cache.ProductsKey("acme", 2, ""))
	s.True(ok)
}

func (s *FetcherSuite) TestInvalidTokenIsBadRequest() {
	_, err := s.fetcher.List(s.ctx, "acme", 2, "not-a-token")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *FetcherSuite) TestFeatured() {
	featured, err := s.fetcher.Featured(s.ctx, "acme", 8)
	s.Require().NoError(err)
	s.Require().Len(featured, 1)
	s.Equal("p2", featured[0].ID)

	empty := New(&countingRepo{InMemory: store.NewInMemory[*models.Product]()}, cache.NewMemory())
	none, err := empty.Featured(s.ctx, "acme", 8)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *FetcherSuite) TestFeaturedFallsBackToNewest() {
	repo := &countingRepo{InMemory: store.NewInMemory[*models.Product]()}
	s.Require().NoError(repo.Save(s.ctx, &models.Product{ID: "x", StoreID: "s", Name: "X", Status: models.ProductStatusActive}))
	got, err := New(repo, cache.NewMemory()).Featured(s.ctx, "s", 4)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("x", got[0].ID)
}

func (s *FetcherSuite) TestByCollectionAndRelated() {
	page, err := s.fetcher.ByCollection(s.ctx, "acme", "c1", 8, "")
	s.Require().NoError(err)
	s.Len(page.Products, 2)

	p1, err := s.fetcher.Get(s.ctx, "acme", "p1")
	s.Require().NoError(err)
	related, err := s.fetcher.Related(s.ctx, "acme", p1, 4)
	s.Require().NoError(err)
	s.Require().Len(related, 1)
	s.Equal("p2", related[0].ID)

	none, err := s.fetcher.Related(s.ctx, "acme", &drops.Product{ID: "p3"}, 4)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *FetcherSuite) TestSearch() {
	found, err := s.fetcher.Search(s.ctx, "acme", "SHIRT", 20)
	s.Require().NoError(err)
	s.Len(found, 2)

	_, ok := s.cache.Get(s.ctx, cache.SearchProductsKey("acme", "shirt", 20))
	s.True(ok, "search keys normalize the term")

	empty, err := s.fetcher.Search(s.ctx, "acme", "  ", 20)
	s.Require().NoError(err)
	s.Empty(empty)
}
