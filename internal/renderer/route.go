package renderer

import (
	"net/url"
	"strings"
)

// Template types a route can select.
const (
	TypeIndex      = "index"
	TypeProduct    = "product"
	TypeCollection = "collection"
	TypePage       = "page"
	TypeCart       = "cart"
	TypeCheckout   = "checkout"
	TypeSearch     = "search"
	TypeNotFound   = "404"
)

// allProductsHandle is the pseudo-collection listing every product.
const allProductsHandle = "all"

// Route is a resolved storefront path.
type Route struct {
	TemplateType string
	Path         string
	Handle       string
	// ListCollections is set for /collections, which lists collections instead of
	// showing one.
	ListCollections bool
	Policy          bool
	Query           string
	PageToken       string
	CartSession     string
}

// ResolveRoute maps a storefront path and its query parameters to a template type.
func ResolveRoute(path string, params url.Values) Route {
	clean := "/" + strings.Trim(path, "/")
	r := Route{
		Path:      clean,
		Query:     strings.TrimSpace(params.Get("q")),
		PageToken: params.Get("page"),
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if clean == "/" {
		segments = nil
	}

	switch {
	case len(segments) == 0:
		r.TemplateType = TypeIndex
	case segments[0] == "products" && len(segments) == 2:
		r.TemplateType = TypeProduct
		r.Handle = segments[1]
	case segments[0] == "products" && len(segments) == 1:
		r.TemplateType = TypeCollection
		r.Handle = allProductsHandle
	case segments[0] == "collections" && len(segments) == 2:
		r.TemplateType = TypeCollection
		r.Handle = segments[1]
	case segments[0] == "collections" && len(segments) == 1:
		r.TemplateType = TypeCollection
		r.ListCollections = true
	case segments[0] == "pages" && len(segments) == 2:
		r.TemplateType = TypePage
		r.Handle = segments[1]
	case segments[0] == "policies" && len(segments) == 2:
		r.TemplateType = TypePage
		r.Handle = segments[1]
		r.Policy = true
	case segments[0] == "cart" && len(segments) == 1:
		r.TemplateType = TypeCart
	case segments[0] == "checkout" && len(segments) <= 2:
		r.TemplateType = TypeCheckout
		if len(segments) == 2 {
			r.Handle = segments[1]
		}
	case segments[0] == "search" && len(segments) == 1:
		r.TemplateType = TypeSearch
	default:
		r.TemplateType = TypeNotFound
	}
	if r.Handle != "" {
		if h, err := url.PathUnescape(r.Handle); err == nil {
			r.Handle = h
		}
	}
	return r
}

// NotFound returns the route downgraded to the 404 template.
func (r Route) NotFound() Route {
	r.TemplateType = TypeNotFound
	return r
}
