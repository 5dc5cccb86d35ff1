package navigation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"storefront/internal/cache"
	"storefront/internal/catalog/models"
	"storefront/internal/catalog/store"
	dErrors "storefront/pkg/domain-errors"
)

func TestLinkURL(t *testing.T) {
	cases := []struct {
		name string
		item models.MenuItem
		want string
	}{
		{"page", models.MenuItem{Type: models.LinkTypePage, Handle: "about"}, "/pages/about"},
		{"collection", models.MenuItem{Type: models.LinkTypeCollection, Handle: "camisas"}, "/collections/camisas"},
		{"product", models.MenuItem{Type: models.LinkTypeProduct, Handle: "blue-shirt"}, "/products/blue-shirt"},
		{"external", models.MenuItem{Type: models.LinkTypeExternal, URL: "https://example.com"}, "https://example.com"},
		{"internal", models.MenuItem{Type: models.LinkTypeInternal, URL: "/search"}, "/search"},
		{"missing target", models.MenuItem{Type: models.LinkTypeCollection}, "#"},
		{"unknown type", models.MenuItem{Type: "weird"}, "#"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LinkURL(tc.item))
		})
	}
}

type FetcherSuite struct {
	suite.Suite
	ctx     context.Context
	repo    *store.InMemory[*models.NavigationMenu]
	cache   *cache.Memory
	fetcher *Fetcher
}

func TestFetcherSuite(t *testing.T) {
	suite.Run(t, new(FetcherSuite))
}

func (s *FetcherSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = store.NewInMemory[*models.NavigationMenu]()
	s.cache = cache.NewMemory()
	s.fetcher = New(s.repo, s.cache)

	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.repo.Save(s.ctx,
		&models.NavigationMenu{ID: "m1", StoreID: "acme", Name: "Principal", Handle: models.MainMenuHandle, IsMain: true, IsActive: true, CreatedAt: base.Add(-time.Hour),
			Items: []models.MenuItem{
				{Label: "Contacto", Type: models.LinkTypePage, Handle: "contact", IsVisible: true, SortOrder: 3},
				{Label: "Inicio", Type: models.LinkTypeInternal, URL: "/", IsVisible: true, SortOrder: 1},
				{Label: "Oculto", Type: models.LinkTypePage, Handle: "secret", IsVisible: false, SortOrder: 0},
				{Label: "Camisas", Type: models.LinkTypeCollection, Handle: "camisas", IsVisible: true, SortOrder: 2},
			}},
		&models.NavigationMenu{ID: "m2", StoreID: "acme", Name: "Pie", Handle: models.FooterMenuHandle, IsActive: true, CreatedAt: base,
			Items: []models.MenuItem{{Label: "Reembolsos", Type: models.LinkTypePage, Handle: "refund-policy", IsVisible: true}}},
		&models.NavigationMenu{ID: "m3", StoreID: "acme", Name: "Viejo", Handle: "old", IsActive: false, CreatedAt: base},
	))
}

func (s *FetcherSuite) TestMenus() {
	nav, err := s.fetcher.Menus(s.ctx, "acme")
	s.Require().NoError(err)
	s.Len(nav.Menus, 2)
	s.Require().NotNil(nav.MainMenu)
	s.Require().NotNil(nav.FooterMenu)
	s.Equal("m1", nav.MainMenu.ID)
	s.Equal("m2", nav.FooterMenu.ID)

	links := nav.MainMenu.Links
	s.Require().Len(links, 3)
	s.Equal([]string{"Inicio", "Camisas", "Contacto"}, []string{links[0].Title, links[1].Title, links[2].Title})
	s.Equal("/collections/camisas", links[1].URL)

	lists := nav.Linklists()
	s.Contains(lists, models.MainMenuHandle)
	s.Contains(lists, models.FooterMenuHandle)
	s.NotContains(lists, "old")
}

func (s *FetcherSuite) TestMainMenuFallsBackToHandle() {
	repo := store.NewInMemory[*models.NavigationMenu]()
	s.Require().NoError(repo.Save(s.ctx, &models.NavigationMenu{ID: "m", StoreID: "s", Handle: models.MainMenuHandle, IsActive: true}))
	nav, err := New(repo, cache.NewMemory()).Menus(s.ctx, "s")
	s.Require().NoError(err)
	s.Require().NotNil(nav.MainMenu)
	s.Equal("m", nav.MainMenu.ID)
}

func (s *FetcherSuite) TestMenuByHandle() {
	menu, err := s.fetcher.Menu(s.ctx, "acme", models.FooterMenuHandle)
	s.Require().NoError(err)
	s.Equal("/pages/refund-policy", menu.Links[0].URL)

	_, err = s.fetcher.Menu(s.ctx, "acme", "old")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *FetcherSuite) TestMenusUseNavigationTTL() {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	c := cache.NewMemory(cache.WithClock(func() time.Time { return now }))
	ttls := cache.DefaultTTLs()
	f := New(s.repo, c, WithTTLs(ttls))

	_, err := f.Menus(s.ctx, "acme")
	s.Require().NoError(err)

	now = now.Add(ttls.Navigation - time.Second)
	_, ok := c.Get(s.ctx, cache.NavigationKey("acme"))
	s.True(ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get(s.ctx, cache.NavigationKey("acme"))
	s.False(ok)
}
