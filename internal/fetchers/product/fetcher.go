// Package product reads products through the cache and shapes them for templates.
package product

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"storefront/internal/cache"
	"storefront/internal/catalog/models"
	"storefront/internal/catalog/ports"
	"storefront/internal/fetchers"
	"storefront/internal/fetchers/drops"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
)

const (
	DefaultLimit         = 20
	DefaultFeaturedLimit = 8
	MaxLimit             = 100
)

// Page is one page of product drops.
type Page struct {
	Products  []*drops.Product `json:"products"`
	NextToken string           `json:"nextToken,omitempty"`
}

// Fetcher reads products of a store.
type Fetcher struct {
	repo   ports.Repository[*models.Product]
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

func New(repo ports.Repository[*models.Product], c cache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{repo: repo, cache: c, ttls: cache.DefaultTTLs(), logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get returns an active product by id, falling back to its handle.
func (f *Fetcher) Get(ctx context.Context, storeID, idOrHandle string) (*drops.Product, error) {
	if idOrHandle == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
	}
	id := idOrHandle
	if mapped, ok := cache.Get[string](ctx, f.cache, cache.ProductHandleKey(storeID, idOrHandle)); ok {
		id = mapped
	}
	p, err := f.byID(ctx, storeID, id)
	if err == nil {
		return p, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}
	return f.byHandle(ctx, storeID, idOrHandle)
}

func (f *Fetcher) byID(ctx context.Context, storeID, id string) (*drops.Product, error) {
	return fetchers.ReadThrough(ctx, f.cache, cache.ProductKey(storeID, id), f.ttls.Default,
		func(ctx context.Context) (*drops.Product, error) {
			p, err := f.repo.Get(ctx, storeID, id)
			if err != nil {
				return nil, fetchers.TranslateError(err, "product")
			}
			if !p.IsActive() {
				return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
			}
			return ToDrop(p), nil
		})
}

func (f *Fetcher) byHandle(ctx context.Context, storeID, handle string) (*drops.Product, error) {
	page, err := f.repo.List(ctx, storeID, ports.Query{
		Conditions: []ports.Condition{
			ports.Eq("slug", handle),
			ports.Eq("status", models.ProductStatusActive),
		},
		Limit: 1,
	})
	if err != nil {
		return nil, fetchers.TranslateError(err, "product")
	}
	if len(page.Items) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
	}
	p := page.Items[0]
	d := ToDrop(p)
	f.cache.Set(ctx, cache.ProductHandleKey(storeID, handle), p.ID, f.ttls.Default)
	f.cache.Set(ctx, cache.ProductKey(storeID, p.ID), d, f.ttls.Default)
	return d, nil
}

// List returns one page of active products, newest first.
func (f *Fetcher) List(ctx context.Context, storeID string, limit int, token string) (*Page, error) {
	limit = fetchers.ClampLimit(limit, DefaultLimit, MaxLimit)
	return fetchers.ReadThrough(ctx, f.cache, cache.ProductsKey(storeID, limit, token), f.ttls.Default,
		func(ctx context.Context) (*Page, error) {
			return f.query(ctx, storeID, ports.Query{
				Conditions: []ports.Condition{ports.Eq("status", models.ProductStatusActive)},
				Limit:      limit,
				Token:      token,
			})
		})
}

// Featured returns featured products, or the newest products when none are featured.
func (f *Fetcher) Featured(ctx context.Context, storeID string, limit int) ([]*drops.Product, error) {
	limit = fetchers.ClampLimit(limit, DefaultFeaturedLimit, MaxLimit)
	page, err := fetchers.ReadThrough(ctx, f.cache, cache.FeaturedProductsKey(storeID, limit), f.ttls.Default,
		func(ctx context.Context) (*Page, error) {
			featured, err := f.query(ctx, storeID, ports.Query{
				Conditions: []ports.Condition{
					ports.Eq("status", models.ProductStatusActive),
					ports.Eq("featured", strconv.FormatBool(true)),
				},
				Limit: limit,
			})
			if err != nil || len(featured.Products) > 0 {
				return featured, err
			}
			newest, err := f.query(ctx, storeID, ports.Query{
				Conditions: []ports.Condition{ports.Eq("status", models.ProductStatusActive)},
				Limit:      limit,
			})
			if err != nil {
				return nil, err
			}
			newest.NextToken = ""
			return newest, nil
		})
	if err != nil {
		return nil, err
	}
	return page.Products, nil
}

// ByCollection returns one page of a collection's active products.
func (f *Fetcher) ByCollection(ctx context.Context, storeID, collectionID string, limit int, token string) (*Page, error) {
	limit = fetchers.ClampLimit(limit, DefaultFeaturedLimit, MaxLimit)
	return fetchers.ReadThrough(ctx, f.cache, cache.CollectionProductsKey(storeID, collectionID, limit, token), f.ttls.Default,
		func(ctx context.Context) (*Page, error) {
			return f.query(ctx, storeID, ports.Query{
				Conditions: []ports.Condition{
					ports.Eq("collectionId", collectionID),
					ports.Eq("status", models.ProductStatusActive),
				},
				Limit: limit,
				Token: token,
			})
		})
}

// Related returns products of the same collection, excluding the product itself.
func (f *Fetcher) Related(ctx context.Context, storeID string, product *drops.Product, limit int) ([]*drops.Product, error) {
	if product == nil || product.CollectionID == "" {
		return nil, nil
	}
	limit = fetchers.ClampLimit(limit, 4, MaxLimit)
	page, err := f.ByCollection(ctx, storeID, product.CollectionID, limit+1, "")
	if err != nil {
		return nil, err
	}
	related := make([]*drops.Product, 0, limit)
	for _, p := range page.Products {
		if p.ID == product.ID {
			continue
		}
		related = append(related, p)
		if len(related) == limit {
			break
		}
	}
	return related, nil
}

// Search matches product names case-insensitively. An empty term matches nothing.
func (f *Fetcher) Search(ctx context.Context, storeID, term string, limit int) ([]*drops.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []*drops.Product{}, nil
	}
	limit = fetchers.ClampLimit(limit, DefaultLimit, MaxLimit)
	page, err := fetchers.ReadThrough(ctx, f.cache, cache.SearchProductsKey(storeID, term, limit), f.ttls.Search,
		func(ctx context.Context) (*Page, error) {
			return f.query(ctx, storeID, ports.Query{
				Conditions: []ports.Condition{
					ports.Contains("name", term),
					ports.Eq("status", models.ProductStatusActive),
				},
				Limit: limit,
			})
		})
	if err != nil {
		return nil, err
	}
	return page.Products, nil
}

func (f *Fetcher) query(ctx context.Context, storeID string, q ports.Query) (*Page, error) {
	res, err := f.repo.List(ctx, storeID, q)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			f.logger.ErrorContext(ctx, "product query failed", "store_id", storeID, "error", err)
		}
		return nil, fetchers.TranslateError(err, "products")
	}
	out := &Page{Products: make([]*drops.Product, 0, len(res.Items)), NextToken: res.NextToken}
	for _, p := range res.Items {
		out.Products = append(out.Products, ToDrop(p))
	}
	return out, nil
}
