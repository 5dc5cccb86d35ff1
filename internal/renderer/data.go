package renderer

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"storefront/internal/analyzer"
	"storefront/internal/engine"
	"storefront/internal/fetchers/collection"
	"storefront/internal/fetchers/drops"
	"storefront/internal/fetchers/product"
	"storefront/internal/metadata"
	tenantmodels "storefront/internal/tenant/models"
	thememodels "storefront/internal/theme/models"
	dErrors "storefront/pkg/domain-errors"
)

const relatedLimit = 4

// pageData is what LoadData fetched. Each field has a single writer.
type pageData struct {
	product     *drops.Product
	related     []*drops.Product
	featured    []*drops.Product
	collection  *drops.Collection
	page        *drops.Page
	checkout    *drops.Checkout
	products    *product.Page
	collections *collection.Page
	handles     []*drops.Collection
	pages       []*drops.Page
	policies    []*drops.Page
	navigation  *drops.Navigation
	cart        *drops.Cart
	search      *searchResults
}

type searchResults struct {
	Terms       string
	Products    []*drops.Product
	Collections []*drops.Collection
}

// loadData fans out to the fetchers the requirements and the route imply. Optional
// data fails soft to an empty value. missing reports that the route's main entity does
// not exist. Fetches are detached from request cancellation so they still fill the
// cache when the client goes away.
func (r *Renderer) loadData(ctx context.Context, rs *renderState) (missing bool, err error) {
	ctx = context.WithoutCancel(ctx)
	storeID := rs.store.ID
	route := rs.route
	reqs := rs.reqs
	f := r.fetchers
	d := &pageData{}
	rs.data = d

	var notFound atomic.Bool
	mainEntity := func(err error, what string) error {
		switch {
		case err == nil:
			return nil
		case dErrors.HasCode(err, dErrors.CodeNotFound), dErrors.HasCode(err, dErrors.CodeBadRequest):
			notFound.Store(true)
			return nil
		default:
			return dErrors.Wrap(err, dErrors.CodeDataFetch, "load "+what)
		}
	}

	var g errgroup.Group

	switch route.TemplateType {
	case TypeProduct:
		g.Go(func() error {
			p, err := f.Products.Get(ctx, storeID, route.Handle)
			if err != nil {
				return mainEntity(err, "product")
			}
			d.product = p
			if reqs.NeedsRelated {
				related, err := f.Products.Related(ctx, storeID, p, relatedLimit)
				if err != nil {
					r.soft(ctx, storeID, "related_products", err)
				}
				d.related = related
			}
			return nil
		})
	case TypeCollection:
		if !route.ListCollections {
			g.Go(func() error {
				c, err := f.Collections.Get(ctx, storeID, route.Handle, collectionPageSize(reqs), route.PageToken)
				if err != nil {
					return mainEntity(err, "collection")
				}
				d.collection = c
				return nil
			})
		}
	case TypePage:
		g.Go(func() error {
			p, err := f.Pages.BySlug(ctx, storeID, route.Handle)
			if err != nil {
				return mainEntity(err, "page")
			}
			d.page = p
			return nil
		})
	case TypeCheckout:
		if route.Handle != "" {
			g.Go(func() error {
				c, err := f.Checkouts.GetByToken(ctx, storeID, route.Handle)
				if err != nil {
					return mainEntity(err, "checkout")
				}
				d.checkout = c
				return nil
			})
		}
	case TypeSearch:
		g.Go(func() error {
			d.search = r.search(ctx, storeID, route.Query, rs.theme.Settings)
			return nil
		})
	}

	if reqs.NeedsProducts {
		g.Go(func() error {
			limit, token := reqs.ProductsLimit, ""
			if reqs.PaginationTarget == "products" {
				limit, token = reqs.PaginationSize, route.PageToken
			}
			page, err := f.Products.List(ctx, storeID, limit, token)
			if err != nil {
				r.soft(ctx, storeID, "products", err)
				return nil
			}
			d.products = page
			return nil
		})
	}
	if reqs.NeedsCollections || route.ListCollections {
		g.Go(func() error {
			limit, token := reqs.CollectionsLimit, ""
			if route.ListCollections {
				token = route.PageToken
				if reqs.PaginationTarget == "collections" {
					limit = reqs.PaginationSize
				}
			}
			page, err := f.Collections.List(ctx, storeID, limit, token)
			if err != nil {
				r.soft(ctx, storeID, "collections", err)
				return nil
			}
			if reqs.ListedCollectionProducts > 0 {
				page = &collection.Page{
					Collections: f.Collections.WithProducts(ctx, storeID, page.Collections, reqs.ListedCollectionProducts),
					NextToken:   page.NextToken,
				}
			}
			d.collections = page
			return nil
		})
	}
	if len(reqs.CollectionHandles) > 0 {
		d.handles = make([]*drops.Collection, len(reqs.CollectionHandles))
		i := 0
		for handle, limit := range reqs.CollectionHandles {
			slot := i
			i++
			g.Go(func() error {
				c, err := f.Collections.Get(ctx, storeID, handle, limit, "")
				if err != nil {
					if !dErrors.HasCode(err, dErrors.CodeNotFound) {
						r.soft(ctx, storeID, "collection_handle", err)
					}
					return nil
				}
				d.handles[slot] = c
				return nil
			})
		}
	}
	if reqs.NeedsFeatured {
		g.Go(func() error {
			featured, err := f.Products.Featured(ctx, storeID, 0)
			if err != nil {
				r.soft(ctx, storeID, "featured_products", err)
				return nil
			}
			d.featured = featured
			return nil
		})
	}
	if reqs.NeedsPages {
		g.Go(func() error {
			pages, err := f.Pages.Visible(ctx, storeID)
			if err != nil {
				r.soft(ctx, storeID, "pages", err)
				return nil
			}
			d.pages = pages
			return nil
		})
	}
	if reqs.NeedsPolicies {
		g.Go(func() error {
			policies, err := f.Pages.Policies(ctx, storeID)
			if err != nil {
				r.soft(ctx, storeID, "policies", err)
				return nil
			}
			d.policies = policies
			return nil
		})
	}

	g.Go(func() error {
		nav, err := f.Navigation.Menus(ctx, storeID)
		if err != nil {
			r.soft(ctx, storeID, "navigation", err)
			return nil
		}
		d.navigation = nav
		return nil
	})
	if reqs.NeedsCart || route.TemplateType == TypeCart {
		g.Go(func() error {
			c, err := f.Carts.Get(ctx, storeID, route.CartSession)
			if err != nil {
				r.soft(ctx, storeID, "cart", err)
				return nil
			}
			d.cart = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return false, err
	}
	return notFound.Load(), nil
}

// search returns products matching terms, or the newest products when there are no
// terms, with limits from the theme settings.
func (r *Renderer) search(ctx context.Context, storeID, terms string, settings thememodels.Settings) *searchResults {
	res := &searchResults{Terms: terms}
	productsLimit := settings.Int(thememodels.SettingSearchProductsLimit, product.DefaultLimit)
	collectionsLimit := settings.Int(thememodels.SettingSearchCollectionsLimit, collection.DefaultLimit)

	var g errgroup.Group
	g.Go(func() error {
		if terms != "" {
			found, err := r.fetchers.Products.Search(ctx, storeID, terms, productsLimit)
			if err != nil {
				r.soft(ctx, storeID, "search_products", err)
			}
			res.Products = found
			return nil
		}
		page, err := r.fetchers.Products.List(ctx, storeID, productsLimit, "")
		if err != nil {
			r.soft(ctx, storeID, "search_products", err)
			return nil
		}
		res.Products = page.Products
		return nil
	})
	if collectionsLimit > 0 {
		g.Go(func() error {
			page, err := r.fetchers.Collections.List(ctx, storeID, collectionsLimit, "")
			if err != nil {
				r.soft(ctx, storeID, "search_collections", err)
				return nil
			}
			res.Collections = page.Collections
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (r *Renderer) soft(ctx context.Context, storeID, what string, err error) {
	r.logger.WarnContext(ctx, "optional data load failed", "store_id", storeID, "data", what, "error", err)
	if r.metrics != nil {
		r.metrics.IncrementSoftFailure(what)
	}
}

func collectionPageSize(reqs analyzer.Requirements) int {
	if strings.HasPrefix(reqs.PaginationTarget, "collection.") && reqs.PaginationSize > 0 {
		return reqs.PaginationSize
	}
	return analyzer.DefaultCollectionProductsLimit
}

// pagination describes the listing the template paginates.
func (rs *renderState) pagination() engine.Pagination {
	d := rs.data
	pg := engine.Pagination{Path: rs.route.Path, Token: rs.route.PageToken, PageSize: rs.reqs.PaginationSize}
	target := rs.reqs.PaginationTarget
	switch {
	case strings.HasPrefix(target, "collection.") && d.collection != nil:
		pg.NextToken = d.collection.NextPageToken
		pg.Items = len(d.collection.Products)
	case target == "products" && d.products != nil:
		pg.NextToken = d.products.NextToken
		pg.Items = len(d.products.Products)
	case target == "collections" && d.collections != nil:
		pg.NextToken = d.collections.NextToken
		pg.Items = len(d.collections.Collections)
	case strings.HasPrefix(target, "search") && d.search != nil:
		pg.Items = len(d.search.Products)
	}
	return pg
}

// pageInfo describes the page for metadata.
func (rs *renderState) pageInfo() metadata.Page {
	d := rs.data
	info := metadata.Page{Type: rs.route.TemplateType, Path: rs.route.Path}
	switch rs.route.TemplateType {
	case TypeProduct:
		if d.product != nil {
			info.Title = d.product.Title
			info.Description = d.product.Description
			info.Image = d.product.FeaturedImage
			info.Product = d.product
		}
	case TypeCollection:
		switch {
		case d.collection != nil:
			info.Title = d.collection.Title
			info.Description = d.collection.Description
			info.Image = d.collection.Image
			info.Collection = d.collection
		case rs.route.ListCollections:
			info.Title = "Colecciones"
		}
	case TypePage:
		if d.page != nil {
			info.Title = firstNonEmpty(d.page.MetaTitle, d.page.Title)
			info.Description = d.page.MetaDescription
		}
	case TypeCart:
		info.Title = "Carrito de Compras"
	case TypeCheckout:
		info.Title = "Checkout"
	case TypeSearch:
		info.Title = "Búsqueda"
		if rs.route.Query != "" {
			info.Title = "Resultados para " + rs.route.Query
		}
	case TypeNotFound:
		info.Title = metadata.ErrorTitle(dErrors.CodeNotFound)
	}
	return info
}

var routes = map[string]any{
	"root_url":                    "/",
	"cart_url":                    "/cart",
	"search_url":                  "/search",
	"collections_url":             "/collections",
	"all_products_collection_url": "/collections/all",
}

// bindings builds the variables the page template and layout render against.
func (r *Renderer) bindings(rs *renderState) engine.Bindings {
	d := rs.data
	shop := shopDrop(rs.store, rs.domain)
	b := engine.Bindings{
		"shop":               shop,
		"store":              shop,
		"settings":           rs.theme.Settings.Liquid(),
		"template":           rs.route.TemplateType,
		"page_title":         rs.meta.Title,
		"page_description":   rs.meta.Description,
		"canonical_url":      rs.meta.Canonical,
		"content_for_header": metadata.Head(rs.meta),
		"request": map[string]any{
			"path":      rs.route.Path,
			"host":      rs.domain,
			"page_type": rs.route.TemplateType,
		},
		"routes":    routes,
		"linklists": map[string]any{},
		"cart":      (&drops.Cart{Currency: rs.store.CurrencyOrDefault()}).Drop(),
		"page": map[string]any{
			"title":    rs.meta.Title,
			"url":      rs.route.Path,
			"template": rs.route.TemplateType,
		},
	}

	if d.navigation != nil {
		b["linklists"] = d.navigation.Linklists()
		if d.navigation.MainMenu != nil {
			b["main_menu"] = d.navigation.MainMenu.Drop()
		}
		if d.navigation.FooterMenu != nil {
			b["footer_menu"] = d.navigation.FooterMenu.Drop()
		}
	}
	if d.cart != nil {
		b["cart"] = d.cart.Drop()
	}
	if d.products != nil {
		b["products"] = drops.ProductList(d.products.Products)
	}
	b["collections"] = collectionsBinding(d)
	if d.featured != nil {
		b["featured_products"] = drops.ProductList(d.featured)
	}
	if d.product != nil {
		b["product"] = d.product.Drop()
		b["related_products"] = drops.ProductList(d.related)
	}
	if d.collection != nil {
		b["collection"] = d.collection.Drop()
	}
	if d.page != nil {
		b["page"] = d.page.Drop()
	}
	if d.pages != nil {
		b["pages"] = drops.PageList(d.pages)
	}
	if d.policies != nil {
		b["policies"] = drops.PageList(d.policies)
	}
	if d.checkout != nil {
		b["checkout"] = d.checkout.Drop()
	}
	if d.search != nil {
		results := drops.ProductList(d.search.Products)
		b["search"] = map[string]any{
			"terms":         d.search.Terms,
			"performed":     d.search.Terms != "",
			"results":       results,
			"results_count": len(results),
			"products":      results,
			"collections":   drops.CollectionList(d.search.Collections),
		}
	}
	return b
}

// collectionsBinding iterates the listed collections and resolves collections.<handle>
// for listed and handle-addressed collections alike.
func collectionsBinding(d *pageData) *engine.IndexedList {
	var listed []*drops.Collection
	if d.collections != nil {
		listed = d.collections.Collections
	}
	byHandle := make(map[string]any, len(listed)+len(d.handles))
	for _, c := range listed {
		byHandle[c.Handle] = c.Drop()
	}
	for _, c := range d.handles {
		if c != nil {
			byHandle[c.Handle] = c.Drop()
		}
	}
	return engine.NewIndexedList(drops.CollectionList(listed), byHandle)
}

func shopDrop(s *tenantmodels.Store, domain string) map[string]any {
	return map[string]any{
		"id":           s.ID,
		"name":         s.Name,
		"description":  metadata.Description(s, ""),
		"domain":       domain,
		"url":          "https://" + domain,
		"currency":     s.CurrencyOrDefault(),
		"money_format": "${{amount}}",
		"email":        s.ContactEmail,
		"phone":        s.ContactPhone,
		"address":      s.Address,
		"logo":         s.Logo,
		"banner":       s.Banner,
		"favicon":      s.Favicon,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
