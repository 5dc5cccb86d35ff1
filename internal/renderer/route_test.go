package renderer

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRoute(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		params url.Values
		want   Route
	}{
		{"root", "/", nil, Route{TemplateType: TypeIndex, Path: "/"}},
		{"empty path", "", nil, Route{TemplateType: TypeIndex, Path: "/"}},
		{"product", "/products/blue-shirt", nil, Route{TemplateType: TypeProduct, Path: "/products/blue-shirt", Handle: "blue-shirt"}},
		{"trailing slash", "/products/blue-shirt/", nil, Route{TemplateType: TypeProduct, Path: "/products/blue-shirt", Handle: "blue-shirt"}},
		{"escaped handle", "/products/caf%C3%A9", nil, Route{TemplateType: TypeProduct, Path: "/products/caf%C3%A9", Handle: "café"}},
		{"all products", "/products", nil, Route{TemplateType: TypeCollection, Path: "/products", Handle: allProductsHandle}},
		{
			"collection with page", "/collections/shirts", url.Values{"page": {"tok"}},
			Route{TemplateType: TypeCollection, Path: "/collections/shirts", Handle: "shirts", PageToken: "tok"},
		},
		{"collection list", "/collections", nil, Route{TemplateType: TypeCollection, Path: "/collections", ListCollections: true}},
		{"page", "/pages/about", nil, Route{TemplateType: TypePage, Path: "/pages/about", Handle: "about"}},
		{"policy", "/policies/refund-policy", nil, Route{TemplateType: TypePage, Path: "/policies/refund-policy", Handle: "refund-policy", Policy: true}},
		{"cart", "/cart", nil, Route{TemplateType: TypeCart, Path: "/cart"}},
		{"checkout", "/checkout", nil, Route{TemplateType: TypeCheckout, Path: "/checkout"}},
		{"checkout token", "/checkout/abc", nil, Route{TemplateType: TypeCheckout, Path: "/checkout/abc", Handle: "abc"}},
		{
			"search", "/search", url.Values{"q": {"  shirt "}},
			Route{TemplateType: TypeSearch, Path: "/search", Query: "shirt"},
		},
		{"unknown", "/blog/news", nil, Route{TemplateType: TypeNotFound, Path: "/blog/news"}},
		{"too deep", "/products/a/b", nil, Route{TemplateType: TypeNotFound, Path: "/products/a/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRoute(tt.path, tt.params))
		})
	}
}

func TestRouteNotFoundKeepsRequestFields(t *testing.T) {
	r := ResolveRoute("/products/nope", nil)
	r.CartSession = "sess"

	nf := r.NotFound()
	assert.Equal(t, TypeNotFound, nf.TemplateType)
	assert.Equal(t, "/products/nope", nf.Path)
	assert.Equal(t, "sess", nf.CartSession)
}
