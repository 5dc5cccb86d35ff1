// Package collection reads collections and their products through the cache.
package collection

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"storefront/internal/cache"
	"storefront/internal/catalog/models"
	"storefront/internal/catalog/ports"
	"storefront/internal/fetchers"
	"storefront/internal/fetchers/drops"
	"storefront/internal/fetchers/product"
	dErrors "storefront/pkg/domain-errors"
)

const (
	// AllHandle is the virtual collection of every active product.
	AllHandle = "all"

	DefaultLimit         = 10
	DefaultProductsLimit = 8
	MaxLimit             = 50
)

// Page is one page of collection drops.
type Page struct {
	Collections []*drops.Collection `json:"collections"`
	NextToken   string              `json:"nextToken,omitempty"`
}

// Fetcher reads collections of a store. Products come from the product fetcher so
// both share cache entries.
type Fetcher struct {
	repo     ports.Repository[*models.Collection]
	products *product.Fetcher
	cache    cache.Store
	ttls     cache.TTLs
	logger   *slog.Logger
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

func New(repo ports.Repository[*models.Collection], products *product.Fetcher, c cache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{repo: repo, products: products, cache: c, ttls: cache.DefaultTTLs(), logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get returns an active collection by id or handle with one page of its products.
// The "all" handle yields every active product of the store.
func (f *Fetcher) Get(ctx context.Context, storeID, idOrHandle string, productsLimit int, token string) (*drops.Collection, error) {
	if idOrHandle == AllHandle {
		page, err := f.products.List(ctx, storeID, productsLimit, token)
		if err != nil {
			return nil, err
		}
		return &drops.Collection{
			ID:            AllHandle,
			Title:         "Todos los productos",
			Handle:        AllHandle,
			URL:           "/collections/all",
			Products:      page.Products,
			NextPageToken: page.NextToken,
		}, nil
	}

	c, err := f.meta(ctx, storeID, idOrHandle)
	if err != nil {
		return nil, err
	}
	page, err := f.products.ByCollection(ctx, storeID, c.ID, productsLimit, token)
	if err != nil {
		return nil, err
	}
	out := *c
	out.Products = page.Products
	out.NextPageToken = page.NextToken
	return &out, nil
}

// meta returns the collection without products.
func (f *Fetcher) meta(ctx context.Context, storeID, idOrHandle string) (*drops.Collection, error) {
	if idOrHandle == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "collection not found")
	}
	if id, ok := cache.Get[string](ctx, f.cache, cache.CollectionHandleKey(storeID, idOrHandle)); ok {
		idOrHandle = id
	}
	c, err := fetchers.ReadThrough(ctx, f.cache, cache.CollectionKey(storeID, idOrHandle), f.ttls.Default,
		func(ctx context.Context) (*drops.Collection, error) {
			rec, err := f.repo.Get(ctx, storeID, idOrHandle)
			if err != nil {
				return nil, fetchers.TranslateError(err, "collection")
			}
			if !rec.IsActive {
				return nil, dErrors.New(dErrors.CodeNotFound, "collection not found")
			}
			return ToDrop(rec), nil
		})
	if err == nil || !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return c, err
	}

	res, err := f.repo.List(ctx, storeID, ports.Query{
		Conditions: []ports.Condition{
			ports.Eq("slug", idOrHandle),
			ports.Eq("isActive", strconv.FormatBool(true)),
		},
		Limit: 1,
	})
	if err != nil {
		return nil, fetchers.TranslateError(err, "collection")
	}
	if len(res.Items) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "collection not found")
	}
	rec := res.Items[0]
	d := ToDrop(rec)
	f.cache.Set(ctx, cache.CollectionHandleKey(storeID, idOrHandle), rec.ID, f.ttls.Default)
	f.cache.Set(ctx, cache.CollectionKey(storeID, rec.ID), d, f.ttls.Default)
	return d, nil
}

// List returns one page of active collections ordered by sort order.
func (f *Fetcher) List(ctx context.Context, storeID string, limit int, token string) (*Page, error) {
	limit = fetchers.ClampLimit(limit, DefaultLimit, MaxLimit)
	return fetchers.ReadThrough(ctx, f.cache, cache.CollectionsKey(storeID, limit, token), f.ttls.Default,
		func(ctx context.Context) (*Page, error) {
			res, err := f.repo.List(ctx, storeID, ports.Query{
				Conditions: []ports.Condition{ports.Eq("isActive", strconv.FormatBool(true))},
				Limit:      limit,
				Token:      token,
			})
			if err != nil {
				f.logger.ErrorContext(ctx, "collection query failed", "store_id", storeID, "error", err)
				return nil, fetchers.TranslateError(err, "collections")
			}
			sort.SliceStable(res.Items, func(i, j int) bool {
				return res.Items[i].SortOrder < res.Items[j].SortOrder
			})
			out := &Page{Collections: make([]*drops.Collection, 0, len(res.Items)), NextToken: res.NextToken}
			for _, c := range res.Items {
				out.Collections = append(out.Collections, ToDrop(c))
			}
			return out, nil
		})
}

// WithProducts returns copies of collections with their first productsLimit products.
// Collections whose products fail to load are returned without products.
func (f *Fetcher) WithProducts(ctx context.Context, storeID string, collections []*drops.Collection, productsLimit int) []*drops.Collection {
	out := make([]*drops.Collection, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range collections {
		g.Go(func() error {
			filled := *c
			page, err := f.products.ByCollection(gctx, storeID, c.ID, productsLimit, "")
			if err != nil {
				f.logger.WarnContext(gctx, "collection products unavailable",
					"store_id", storeID,
					"collection_id", c.ID,
					"error", err,
				)
			} else {
				filled.Products = page.Products
				filled.NextPageToken = page.NextToken
			}
			out[i] = &filled
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ToDrop converts a collection record into its template view without products.
func ToDrop(c *models.Collection) *drops.Collection {
	handle := c.Handle()
	return &drops.Collection{
		ID:          c.ID,
		Title:       c.Title,
		Handle:      handle,
		Description: c.Description,
		Image:       c.ImageURL,
		URL:         "/collections/" + handle,
	}
}
