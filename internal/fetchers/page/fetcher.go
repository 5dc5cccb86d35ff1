// Package page reads merchant content pages through the cache.
package page

import (
	"context"
	"log/slog"
	"strconv"

	"storefront/internal/cache"
	"storefront/internal/catalog/models"
	"storefront/internal/catalog/ports"
	"storefront/internal/fetchers"
	"storefront/internal/fetchers/drops"
	dErrors "storefront/pkg/domain-errors"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// allLimit bounds the unpaginated visible and policy listings.
	allLimit = 100
)

// Page is one page of content page drops.
type Page struct {
	Pages     []*drops.Page `json:"pages"`
	NextToken string        `json:"nextToken,omitempty"`
}

type Fetcher struct {
	repo   ports.Repository[*models.Page]
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

func New(repo ports.Repository[*models.Page], c cache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{repo: repo, cache: c, ttls: cache.DefaultTTLs(), logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get returns a published page by id.
func (f *Fetcher) Get(ctx context.Context, storeID, id string) (*drops.Page, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "page not found")
	}
	return fetchers.ReadThrough(ctx, f.cache, cache.PageKey(storeID, id), f.ttls.Default,
		func(ctx context.Context) (*drops.Page, error) {
			p, err := f.repo.Get(ctx, storeID, id)
			if err != nil {
				return nil, fetchers.TranslateError(err, "page")
			}
			if !p.Published() {
				return nil, dErrors.New(dErrors.CodeNotFound, "page not found")
			}
			return ToDrop(p), nil
		})
}

// BySlug returns a published page by slug. Policy pages are addressed the same way.
func (f *Fetcher) BySlug(ctx context.Context, storeID, slug string) (*drops.Page, error) {
	if slug == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "page not found")
	}
	return fetchers.ReadThrough(ctx, f.cache, cache.PageSlugKey(storeID, slug), f.ttls.Default,
		func(ctx context.Context) (*drops.Page, error) {
			res, err := f.repo.List(ctx, storeID, ports.Query{
				Conditions: published(ports.Eq("slug", slug)),
				Limit:      1,
			})
			if err != nil {
				return nil, fetchers.TranslateError(err, "page")
			}
			if len(res.Items) == 0 {
				return nil, dErrors.New(dErrors.CodeNotFound, "page not found")
			}
			return ToDrop(res.Items[0]), nil
		})
}

// List returns one page of published pages, newest first.
func (f *Fetcher) List(ctx context.Context, storeID string, limit int, token string) (*Page, error) {
	limit = fetchers.ClampLimit(limit, DefaultLimit, MaxLimit)
	return fetchers.ReadThrough(ctx, f.cache, cache.PagesKey(storeID, limit, token), f.ttls.Default,
		func(ctx context.Context) (*Page, error) {
			return f.query(ctx, storeID, ports.Query{Conditions: published(), Limit: limit, Token: token})
		})
}

// Visible returns the published standard pages, the ones themes list in menus and footers.
func (f *Fetcher) Visible(ctx context.Context, storeID string) ([]*drops.Page, error) {
	page, err := fetchers.ReadThrough(ctx, f.cache, cache.VisiblePagesKey(storeID), f.ttls.Default,
		func(ctx context.Context) (*Page, error) {
			return f.query(ctx, storeID, ports.Query{
				Conditions: published(ports.Eq("pageType", models.PageTypeStandard)),
				Limit:      allLimit,
			})
		})
	if err != nil {
		return nil, err
	}
	return page.Pages, nil
}

// Policies returns the published policy pages.
func (f *Fetcher) Policies(ctx context.Context, storeID string) ([]*drops.Page, error) {
	page, err := fetchers.ReadThrough(ctx, f.cache, cache.PoliciesPagesKey(storeID), f.ttls.Default,
		func(ctx context.Context) (*Page, error) {
			return f.query(ctx, storeID, ports.Query{
				Conditions: published(ports.Eq("pageType", models.PageTypePolicies)),
				Limit:      allLimit,
			})
		})
	if err != nil {
		return nil, err
	}
	return page.Pages, nil
}

func (f *Fetcher) query(ctx context.Context, storeID string, q ports.Query) (*Page, error) {
	res, err := f.repo.List(ctx, storeID, q)
	if err != nil {
		f.logger.ErrorContext(ctx, "page query failed", "store_id", storeID, "error", err)
		return nil, fetchers.TranslateError(err, "pages")
	}
	out := &Page{Pages: make([]*drops.Page, 0, len(res.Items)), NextToken: res.NextToken}
	for _, p := range res.Items {
		out.Pages = append(out.Pages, ToDrop(p))
	}
	return out, nil
}

func published(extra ...ports.Condition) []ports.Condition {
	return append([]ports.Condition{
		ports.Eq("isVisible", strconv.FormatBool(true)),
		ports.Eq("status", models.PageStatusPublished),
	}, extra...)
}

// ToDrop converts a page record into its template view. An empty page type reads as
// standard.
func ToDrop(p *models.Page) *drops.Page {
	pageType := p.PageType
	if pageType == "" {
		pageType = models.PageTypeStandard
	}
	return &drops.Page{
		ID:              p.ID,
		Title:           p.Title,
		Handle:          p.Slug,
		Content:         p.Content,
		PageType:        pageType,
		URL:             "/pages/" + p.Slug,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
	}
}
