// Package navigation reads store menus and resolves their links.
package navigation

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"storefront/internal/cache"
	"storefront/internal/catalog/models"
	"storefront/internal/catalog/ports"
	"storefront/internal/fetchers"
	"storefront/internal/fetchers/drops"
	dErrors "storefront/pkg/domain-errors"
)

// maxMenus bounds the menus loaded per store.
const maxMenus = 50

type Fetcher struct {
	repo   ports.Repository[*models.NavigationMenu]
	cache  cache.Store
	ttls   cache.TTLs
	logger *slog.Logger
}

type Option func(*Fetcher)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

func WithTTLs(ttls cache.TTLs) Option {
	return func(f *Fetcher) {
		f.ttls = ttls
	}
}

func New(repo ports.Repository[*models.NavigationMenu], c cache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{repo: repo, cache: c, ttls: cache.DefaultTTLs(), logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Menus returns every active menu of the store. The main menu is the one flagged main,
// or the one with the main-menu handle.
func (f *Fetcher) Menus(ctx context.Context, storeID string) (*drops.Navigation, error) {
	return fetchers.ReadThrough(ctx, f.cache, cache.NavigationKey(storeID), f.ttls.Navigation,
		func(ctx context.Context) (*drops.Navigation, error) {
			res, err := f.repo.List(ctx, storeID, ports.Query{
				Conditions: []ports.Condition{ports.Eq("isActive", strconv.FormatBool(true))},
				Limit:      maxMenus,
			})
			if err != nil {
				f.logger.ErrorContext(ctx, "navigation query failed", "store_id", storeID, "error", err)
				return nil, fetchers.TranslateError(err, "navigation")
			}
			nav := &drops.Navigation{Menus: make([]*drops.Menu, 0, len(res.Items))}
			for _, m := range res.Items {
				menu := ToDrop(m)
				nav.Menus = append(nav.Menus, menu)
				switch {
				case m.IsMain && nav.MainMenu == nil:
					nav.MainMenu = menu
				case m.Handle == models.FooterMenuHandle:
					nav.FooterMenu = menu
				}
			}
			if nav.MainMenu == nil {
				nav.MainMenu = find(nav.Menus, models.MainMenuHandle)
			}
			return nav, nil
		})
}

// Menu returns one active menu by handle.
func (f *Fetcher) Menu(ctx context.Context, storeID, handle string) (*drops.Menu, error) {
	return fetchers.ReadThrough(ctx, f.cache, cache.NavigationMenuKey(storeID, handle), f.ttls.Navigation,
		func(ctx context.Context) (*drops.Menu, error) {
			res, err := f.repo.List(ctx, storeID, ports.Query{
				Conditions: []ports.Condition{
					ports.Eq("handle", handle),
					ports.Eq("isActive", strconv.FormatBool(true)),
				},
				Limit: 1,
			})
			if err != nil {
				return nil, fetchers.TranslateError(err, "menu")
			}
			if len(res.Items) == 0 {
				return nil, dErrors.New(dErrors.CodeNotFound, "menu not found")
			}
			return ToDrop(res.Items[0]), nil
		})
}

func find(menus []*drops.Menu, handle string) *drops.Menu {
	for _, m := range menus {
		if m.Handle == handle {
			return m
		}
	}
	return nil
}

// ToDrop keeps the visible items in sort order and resolves their URLs.
func ToDrop(m *models.NavigationMenu) *drops.Menu {
	items := make([]models.MenuItem, 0, len(m.Items))
	for _, it := range m.Items {
		if it.IsVisible {
			items = append(items, it)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].SortOrder < items[j].SortOrder })

	links := make([]drops.Link, len(items))
	for i, it := range items {
		links[i] = drops.Link{Title: it.Label, URL: LinkURL(it), Type: it.Type, Handle: it.Handle}
	}
	return &drops.Menu{ID: m.ID, Title: m.Name, Handle: m.Handle, IsMain: m.IsMain, Links: links}
}

// LinkURL resolves a menu item to a storefront path. Items without a target link to "#".
func LinkURL(it models.MenuItem) string {
	switch it.Type {
	case models.LinkTypePage:
		if it.Handle != "" {
			return "/pages/" + it.Handle
		}
	case models.LinkTypeCollection:
		if it.Handle != "" {
			return "/collections/" + it.Handle
		}
	case models.LinkTypeProduct:
		if it.Handle != "" {
			return "/products/" + it.Handle
		}
	case models.LinkTypeExternal, models.LinkTypeInternal:
		if it.URL != "" {
			return it.URL
		}
	}
	if it.URL != "" {
		return it.URL
	}
	return "#"
}
