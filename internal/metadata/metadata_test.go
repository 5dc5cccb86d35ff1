package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/fetchers/drops"
	tenantmodels "storefront/internal/tenant/models"
	dErrors "storefront/pkg/domain-errors"
)

func acme() *tenantmodels.Store {
	return &tenantmodels.Store{ID: "acme", Name: "Acme", DefaultDomain: "acme.platform.test", Status: tenantmodels.StoreStatusActive}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Acme", Generate(acme(), "acme.platform.test", Page{Type: "index", Path: "/"}).Title)
	assert.Equal(t, "Blue Shirt | Acme", Generate(acme(), "acme.platform.test", Page{Type: "product", Title: "Blue Shirt"}).Title)
}

func TestDescriptionFallbacks(t *testing.T) {
	store := acme()
	assert.Equal(t, "Tienda online de Acme", Generate(store, "", Page{}).Description)

	store.Description = "Ropa para todos"
	assert.Equal(t, "Ropa para todos", Generate(store, "", Page{}).Description)
	assert.Equal(t, "Camisa azul de algodón", Generate(store, "", Page{Description: "<p>Camisa azul <b>de algodón</b></p>"}).Description)

	long := Generate(store, "", Page{Description: strings.Repeat("a", 400)}).Description
	assert.Equal(t, maxDescriptionLength, len(long))
}

func TestCanonicalAndOpenGraph(t *testing.T) {
	store := acme()
	store.Banner = "https://cdn.test/banner.jpg"
	m := Generate(store, "acme.platform.test", Page{Type: "page", Path: "/pages/about", Title: "About"})

	assert.Equal(t, "https://acme.platform.test/pages/about", m.Canonical)
	assert.Equal(t, OpenGraph{
		Title:       "About | Acme",
		Description: "Tienda online de Acme",
		URL:         "https://acme.platform.test/pages/about",
		Type:        "website",
		Image:       "https://cdn.test/banner.jpg",
		SiteName:    "Acme",
	}, m.OpenGraph)
	assert.Equal(t, "/favicon.ico", m.Icons)
	assert.Equal(t, "WebPage", m.Schema["@type"])
	assert.Nil(t, m.Keywords)
}

func TestProductSchema(t *testing.T) {
	store := acme()
	store.Favicon = "https://cdn.test/icon.png"
	p := &drops.Product{Title: "Blue Shirt", PriceAmount: 50000, Available: true, FeaturedImage: "https://cdn.test/shirt.jpg", Category: "Camisas"}
	m := Generate(store, "acme.platform.test", Page{Type: "product", Path: "/products/blue-shirt", Title: p.Title, Image: p.FeaturedImage, Product: p})

	assert.Equal(t, "product", m.OpenGraph.Type)
	assert.Equal(t, "https://cdn.test/icon.png", m.Icons)
	assert.Equal(t, "Product", m.Schema["@type"])
	offer, ok := m.Schema["offers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 50000.0, offer["price"])
	assert.Equal(t, "COP", offer["priceCurrency"])
	assert.Equal(t, "https://schema.org/InStock", offer["availability"])
	assert.Equal(t, []string{"Blue Shirt", "Camisas"}, m.Keywords)
}

func TestCollectionAndIndexSchema(t *testing.T) {
	c := &drops.Collection{Title: "Summer"}
	assert.Equal(t, "CollectionPage", Generate(acme(), "acme.platform.test", Page{Type: "collection", Collection: c}).Schema["@type"])

	index := Generate(acme(), "acme.platform.test", Page{Type: "index", Path: "/"}).Schema
	assert.Equal(t, "WebSite", index["@type"])
	assert.Equal(t, "https://acme.platform.test/", index["url"])
}

func TestGenerateIsDeterministic(t *testing.T) {
	page := Page{Type: "product", Path: "/products/x", Title: "X", Product: &drops.Product{Title: "X"}}
	assert.Equal(t, Generate(acme(), "acme.platform.test", page), Generate(acme(), "acme.platform.test", page))
}

func TestErrorMetadata(t *testing.T) {
	m := ErrorMetadata(dErrors.CodeStoreNotActive, "Acme", "acme.platform.test", "/cart")
	assert.Equal(t, "Tienda no disponible | Acme", m.Title)
	assert.Equal(t, "https://acme.platform.test/cart", m.OpenGraph.URL)
	assert.Equal(t, "WebPage", m.Schema["@type"])

	assert.Equal(t, "Tienda no encontrada", ErrorMetadata(dErrors.CodeStoreNotFound, "", "x.test", "/").Title)
	assert.Equal(t, "Error", ErrorTitle(dErrors.CodeInternal))
}

func TestHead(t *testing.T) {
	m := Generate(acme(), "acme.platform.test", Page{Type: "page", Path: "/pages/about", Title: `About "us"`})
	head := Head(m)

	assert.Contains(t, head, `<link rel="canonical" href="https://acme.platform.test/pages/about">`)
	assert.Contains(t, head, `<meta property="og:title" content="About &#34;us&#34; | Acme">`)
	assert.Contains(t, head, `<link rel="icon" href="/favicon.ico">`)
	assert.Contains(t, head, `<script type="application/ld+json">{"@context":"https://schema.org"`)
	assert.NotContains(t, head, "og:image")
}
