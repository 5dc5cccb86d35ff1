package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"storefront/internal/cache"
	"storefront/internal/catalog/models"
	"storefront/internal/catalog/store"
	"storefront/internal/fetchers/product"
	tenantmodels "storefront/internal/tenant/models"
	tenantstore "storefront/internal/tenant/store"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/requestcontext"
)

type CartSuite struct {
	suite.Suite
	ctx     context.Context
	store   *InMemory
	cache   *cache.Memory
	fetcher *Fetcher
	now     time.Time
}

func TestCartSuite(t *testing.T) {
	suite.Run(t, new(CartSuite))
}

func (s *CartSuite) SetupTest() {
	s.now = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = NewInMemory()
	s.cache = cache.NewMemory()

	repo := store.NewInMemory[*models.Product]()
	variantPrice := 99900.0
	s.Require().NoError(repo.Save(s.ctx,
		&models.Product{ID: "p1", StoreID: "acme", Name: "Blue Shirt", Price: 89900, Status: models.ProductStatusActive, Quantity: 10, Images: []models.Image{{URL: "https://cdn.test/blue.jpg"}},
			Variants: []models.Variant{{ID: "v-l", Title: "L", Price: &variantPrice, Available: true}, {ID: "v-xl", Title: "XL", Available: false}}},
		&models.Product{ID: "p2", StoreID: "acme", Name: "Mug", Price: 25000, Status: models.ProductStatusActive, Quantity: 5},
		&models.Product{ID: "p3", StoreID: "acme", Name: "Sold Out", Price: 1000, Status: models.ProductStatusActive},
	))
	s.fetcher = New(s.store, product.New(repo, s.cache), s.cache)
}

// =============================================================================
// Reads
// =============================================================================

func (s *CartSuite) TestGetWithoutCartIsEmptyAndCreatesNothing() {
	c, err := s.fetcher.Get(s.ctx, "acme", "")
	s.Require().NoError(err)
	s.Equal(0, c.ItemCount)
	s.Empty(c.Items)

	c, err = s.fetcher.Get(s.ctx, "acme", "unknown-session")
	s.Require().NoError(err)
	s.Empty(c.ID)

	_, err = s.store.Find(s.ctx, "acme", "unknown-session")
	s.Error(err)
}

func (s *CartSuite) TestTotalsAndItemViews() {
	c, err := s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p1", Quantity: 2})
	s.Require().NoError(err)
	_, err = s.fetcher.AddItem(s.ctx, "acme", c.SessionID, AddItemRequest{ProductID: "mug", Quantity: 1})
	s.Require().NoError(err)

	view, err := s.fetcher.Get(s.ctx, "acme", "sess")
	s.Require().NoError(err)
	s.Equal(3, view.ItemCount)
	s.InDelta(2*89900+25000, view.TotalPrice, 0.001)
	s.Require().Len(view.Items, 2)
	s.Equal("Blue Shirt", view.Items[0].Title)
	s.InDelta(179800, view.Items[0].LinePrice, 0.001)
	s.Equal("https://cdn.test/blue.jpg", view.Items[0].Image)
	s.Equal("/products/blue-shirt", view.Items[0].URL)
	s.Equal("COP", view.Currency)
}

// =============================================================================
// Mutations
// Justification: every write must drop the cached view so the next render sees it.
// =============================================================================

func (s *CartSuite) TestAddItemMergesSameProductAndVariant() {
	_, err := s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p1", VariantID: "v-l", Quantity: 1})
	s.Require().NoError(err)
	c, err := s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p1", VariantID: "v-l", Quantity: 2})
	s.Require().NoError(err)
	s.Require().Len(c.Items, 1)
	s.Equal(3, c.Items[0].Quantity)
	s.Equal("Blue Shirt - L", c.Items[0].Title)
	s.InDelta(99900, c.Items[0].Price, 0.001)

	c, err = s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p1", Quantity: 1})
	s.Require().NoError(err)
	s.Len(c.Items, 2, "a different variant is a different line")
}

func (s *CartSuite) TestAddItemValidation() {
	_, err := s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p1", Quantity: 0})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "missing", Quantity: 1})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p3", Quantity: 1})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p1", VariantID: "v-xl", Quantity: 1})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p1", VariantID: "nope", Quantity: 1})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CartSuite) TestWritesDropCachedView() {
	_, err := s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p2", Quantity: 1})
	s.Require().NoError(err)
	view, err := s.fetcher.Get(s.ctx, "acme", "sess")
	s.Require().NoError(err)
	s.Equal(1, view.ItemCount)

	_, err = s.fetcher.UpdateItem(s.ctx, "acme", "sess", view.Items[0].ID, 4)
	s.Require().NoError(err)
	view, err = s.fetcher.Get(s.ctx, "acme", "sess")
	s.Require().NoError(err)
	s.Equal(4, view.ItemCount)
}

func (s *CartSuite) TestUpdateToZeroRemoves() {
	c, err := s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p2", Quantity: 2})
	s.Require().NoError(err)

	c, err = s.fetcher.UpdateItem(s.ctx, "acme", "sess", c.Items[0].ID, 0)
	s.Require().NoError(err)
	s.Empty(c.Items)

	_, err = s.fetcher.UpdateItem(s.ctx, "acme", "sess", "gone", 1)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CartSuite) TestRemoveAndClear() {
	_, err := s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p1", Quantity: 1})
	s.Require().NoError(err)
	c, err := s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p2", Quantity: 1})
	s.Require().NoError(err)

	c, err = s.fetcher.RemoveItem(s.ctx, "acme", "sess", c.Items[0].ID)
	s.Require().NoError(err)
	s.Require().Len(c.Items, 1)
	s.Equal("p2", c.Items[0].ProductID)

	c, err = s.fetcher.Clear(s.ctx, "acme", "sess")
	s.Require().NoError(err)
	s.Empty(c.Items)
	s.Equal("sess", c.SessionID)
}

func (s *CartSuite) TestMutatingMissingCartIsNotFound() {
	_, err := s.fetcher.Clear(s.ctx, "acme", "nobody")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.fetcher.Clear(s.ctx, "acme", "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// Sessions and lifetime
// =============================================================================

func (s *CartSuite) TestGetOrCreateAssignsSession() {
	c, err := s.fetcher.GetOrCreate(s.ctx, "acme", "")
	s.Require().NoError(err)
	s.NotEmpty(c.SessionID)
	s.Equal(s.now.Add(Lifetime), c.ExpiresAt)

	again, err := s.fetcher.GetOrCreate(s.ctx, "acme", c.SessionID)
	s.Require().NoError(err)
	s.Equal(c.ID, again.ID)
}

func (s *CartSuite) TestCreateReplacesCachedEmptyCart() {
	empty, err := s.fetcher.Get(s.ctx, "acme", "sess")
	s.Require().NoError(err)
	s.Empty(empty.ID)

	created, err := s.fetcher.GetOrCreate(s.ctx, "acme", "sess")
	s.Require().NoError(err)

	got, err := s.fetcher.Get(s.ctx, "acme", "sess")
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
}

func (s *CartSuite) TestNewCartTakesStoreCurrency() {
	stores := tenantstore.NewInMemory()
	s.Require().NoError(stores.Save(s.ctx, &tenantmodels.Store{ID: "acme", Name: "Acme", Currency: "USD", Status: tenantmodels.StoreStatusActive}))
	fetcher := New(s.store, s.fetcher.products, s.cache, WithStores(stores))

	c, err := fetcher.GetOrCreate(s.ctx, "acme", "usd-session")
	s.Require().NoError(err)
	s.Equal("USD", c.Currency)

	unknown, err := fetcher.GetOrCreate(s.ctx, "globex", "sess")
	s.Require().NoError(err)
	s.Equal(tenantmodels.DefaultCurrency, unknown.Currency)
}

func (s *CartSuite) TestConcurrentCreatesConverge() {
	ids := make([]string, 20)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := s.fetcher.GetOrCreate(s.ctx, "acme", "shared")
			if err == nil {
				ids[i] = c.ID
			}
		}()
	}
	wg.Wait()
	for _, id := range ids {
		s.Equal(ids[0], id)
	}
	s.NotEmpty(ids[0])
}

func (s *CartSuite) TestExpiredCartReadsAsAbsent() {
	_, err := s.fetcher.GetOrCreate(s.ctx, "acme", "sess")
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(Lifetime))
	_, err = s.store.Find(later, "acme", "sess")
	s.Error(err)

	c, err := s.fetcher.GetOrCreate(later, "acme", "sess")
	s.Require().NoError(err)
	s.Equal(s.now.Add(2*Lifetime), c.ExpiresAt, "an expired session gets a fresh cart")
}

func (s *CartSuite) TestCartsAreStoreScoped() {
	_, err := s.fetcher.AddItem(s.ctx, "acme", "sess", AddItemRequest{ProductID: "p2", Quantity: 1})
	s.Require().NoError(err)
	other, err := s.fetcher.Get(s.ctx, "globex", "sess")
	s.Require().NoError(err)
	s.Empty(other.Items)
}
