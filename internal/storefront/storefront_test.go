package storefront

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"storefront/internal/cache"
	"storefront/internal/catalog/models"
	"storefront/internal/catalog/store"
	"storefront/internal/engine"
	"storefront/internal/fetchers/cart"
	"storefront/internal/fetchers/checkout"
	"storefront/internal/fetchers/collection"
	"storefront/internal/fetchers/navigation"
	"storefront/internal/fetchers/page"
	"storefront/internal/fetchers/product"
	"storefront/internal/renderer"
	tenantmodels "storefront/internal/tenant/models"
	"storefront/internal/tenant/resolver"
	tenantstore "storefront/internal/tenant/store"
	"storefront/internal/theme"
	"storefront/internal/theme/storage"
	dErrors "storefront/pkg/domain-errors"
)

const (
	acmeDomain   = "acme.fasttify.com"
	closedDomain = "closed.fasttify.com"
)

// stack is a fully wired in-memory storefront.
type stack struct {
	logger    *slog.Logger
	storage   *storage.InMemory
	factory   *Factory
	carts     *cart.Fetcher
	checkouts *checkout.Service
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.NewMemory()

	stores := tenantstore.NewInMemory()
	for _, s := range []*tenantmodels.Store{
		{ID: "acme", Name: "Acme", Status: tenantmodels.StoreStatusActive, DefaultDomain: acmeDomain},
		{ID: "closed", Name: "Closed", Status: tenantmodels.StoreStatusInactive, DefaultDomain: closedDomain},
	} {
		if err := stores.Save(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	products := store.NewInMemory[*models.Product]()
	if err := products.Save(ctx,
		&models.Product{ID: "p1", StoreID: "acme", Name: "Blue Shirt", Price: 89900, Quantity: 5, Status: models.ProductStatusActive, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	); err != nil {
		t.Fatal(err)
	}

	files := storage.NewInMemory()
	files.PutAll("acme", map[string]string{
		"layout/theme.liquid":      `<html><title>{{ page_title }}</title>{{ content_for_layout }}</html>`,
		"templates/index.liquid":   `<h1>{{ shop.name }}</h1>`,
		"templates/product.liquid": `<h1>{{ product.title }}</h1>`,
		"templates/cart.liquid":    `<p>items:{{ cart.item_count }}</p>`,
		"assets/theme.css":         `body{color:red}`,
	})

	eng := engine.New(engine.WithLogger(logger))
	productFetcher := product.New(products, c)
	carts := cart.New(cart.NewInMemory(), productFetcher, c)
	checkouts := checkout.New(checkout.NewInMemory(), carts)
	pages := renderer.New(theme.New(files, eng, c), eng, renderer.Fetchers{
		Products:    productFetcher,
		Collections: collection.New(store.NewInMemory[*models.Collection](), productFetcher, c),
		Pages:       page.New(store.NewInMemory[*models.Page](), c),
		Navigation:  navigation.New(store.NewInMemory[*models.NavigationMenu](), c),
		Carts:       carts,
		Checkouts:   checkouts,
	}, renderer.WithLogger(logger))

	return &stack{
		logger:    logger,
		storage:   files,
		factory:   New(resolver.New(stores, c), pages, WithLogger(logger)),
		carts:     carts,
		checkouts: checkouts,
	}
}

type FactorySuite struct {
	suite.Suite
	ctx   context.Context
	stack *stack
}

func TestFactorySuite(t *testing.T) {
	suite.Run(t, new(FactorySuite))
}

func (s *FactorySuite) SetupTest() {
	s.ctx = context.Background()
	s.stack = newStack(s.T())
}

func (s *FactorySuite) TestRenderPage() {
	res, err := s.stack.factory.RenderPage(s.ctx, acmeDomain, "/products/blue-shirt", nil)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, res.StatusCode)
	s.Equal(renderer.TypeProduct, res.TemplateType)
	s.Equal("Blue Shirt | Acme", res.Metadata.Title)
	s.Contains(res.HTML, "<h1>Blue Shirt</h1>")
}

func (s *FactorySuite) TestHostIsNormalized() {
	res, err := s.stack.factory.RenderPage(s.ctx, "ACME.fasttify.com:443", "/", nil)
	s.Require().NoError(err)
	s.Contains(res.HTML, "<h1>Acme</h1>")
}

func (s *FactorySuite) TestUnknownDomainStillRendersErrorPage() {
	res, err := s.stack.factory.RenderPage(s.ctx, "nobody.example.com", "/", nil)

	var re *RenderError
	s.Require().True(errors.As(err, &re))
	s.Equal(KindStoreNotFound, re.Kind)
	s.Equal(http.StatusNotFound, re.StatusCode)
	s.True(dErrors.HasCode(err, dErrors.CodeStoreNotFound))
	s.Require().NotNil(res)
	s.Contains(res.HTML, "<!DOCTYPE html>")
}

func (s *FactorySuite) TestInactiveStore() {
	res, err := s.stack.factory.RenderPage(s.ctx, closedDomain, "/", nil)

	var re *RenderError
	s.Require().True(errors.As(err, &re))
	s.Equal(KindStoreNotActive, re.Kind)
	s.Equal(http.StatusPaymentRequired, re.StatusCode)
	s.Equal(http.StatusPaymentRequired, res.StatusCode)
}

func (s *FactorySuite) TestCartSessionOption() {
	_, err := s.stack.carts.AddItem(s.ctx, "acme", "sess-1", cart.AddItemRequest{ProductID: "p1", Quantity: 2})
	s.Require().NoError(err)

	res, err := s.stack.factory.RenderPage(s.ctx, acmeDomain, "/cart", nil, WithCartSession("sess-1"))
	s.Require().NoError(err)
	s.Contains(res.HTML, "<p>items:2</p>")

	res, err = s.stack.factory.RenderPage(s.ctx, acmeDomain, "/cart", nil)
	s.Require().NoError(err)
	s.Contains(res.HTML, "<p>items:0</p>")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		code dErrors.Code
		want ErrorKind
	}{
		{dErrors.CodeStoreNotFound, KindStoreNotFound},
		{dErrors.CodeStoreNotActive, KindStoreNotActive},
		{dErrors.CodeTemplateNotFound, KindTemplateNotFound},
		{dErrors.CodeTemplateRender, KindTemplateRenderError},
		{dErrors.CodeDataFetch, KindDataFetchError},
		{dErrors.CodeUnavailable, KindRenderError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(dErrors.New(tt.code, "x")))
		})
	}
	assert.Equal(t, KindRenderError, KindOf(errors.New("plain")))
}

func TestRenderErrorStatus(t *testing.T) {
	re := newRenderError(dErrors.New(dErrors.CodeUnavailable, "db down"))
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
	assert.Equal(t, "db down", re.Message)

	re = newRenderError(dErrors.Wrap(errors.New("missing"), dErrors.CodeTemplateNotFound, "layout not found"))
	assert.Equal(t, http.StatusNotFound, re.StatusCode)
	assert.Equal(t, "TEMPLATE_NOT_FOUND: layout not found", re.Error())
}
