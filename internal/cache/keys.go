package cache

import (
	"strconv"
	"strings"
)

// Key families. Every cached key is {family}_{storeId}_{discriminators...}, except
// domain keys which are keyed by hostname.
const (
	FamilyProduct          = "product"
	FamilyProductHandle    = "product_handle"
	FamilyProducts         = "products"
	FamilyFeaturedProducts = "featured_products"
	FamilySearchProducts   = "search_products"
	FamilyCollection       = "collection"
	FamilyCollections      = "collections"
	FamilyPage             = "page"
	FamilyPageSlug         = "page_slug"
	FamilyPages            = "pages"
	FamilyVisiblePages     = "visible_pages"
	FamilyPoliciesPages    = "policies_pages"
	FamilyNavigation       = "navigation"
	FamilyNavigationMenu   = "navigation_menu"
	FamilyCart             = "cart"
	FamilyTemplate         = "template"
	FamilyCompiledTemplate = "compiled_template"
	FamilyDomain           = "domain"
)

// familiesByLength is ordered longest first so Family matches "featured_products"
// before "products" and "page_slug" before "page".
var familiesByLength = []string{
	FamilyCompiledTemplate,
	FamilyFeaturedProducts,
	FamilyNavigationMenu,
	FamilySearchProducts,
	FamilyProductHandle,
	FamilyPoliciesPages,
	FamilyVisiblePages,
	FamilyCollections,
	FamilyCollection,
	FamilyNavigation,
	FamilyPageSlug,
	FamilyTemplate,
	FamilyProducts,
	FamilyProduct,
	FamilyDomain,
	FamilyPages,
	FamilyPage,
	FamilyCart,
}

const firstPageToken = "first"

// Family returns the key family of key, or "other".
func Family(key string) string {
	for _, f := range familiesByLength {
		if strings.HasPrefix(key, f+"_") {
			return f
		}
	}
	return "other"
}

// StorePrefix returns the prefix covering every key of family for storeID.
// The trailing separator keeps "product_s_" from matching "products_s_" and keeps
// store "ab" from matching store "abc".
func StorePrefix(family, storeID string) string {
	return family + "_" + storeID + "_"
}

// DomainPrefix covers every hostname mapping.
func DomainPrefix() string {
	return FamilyDomain + "_"
}

func join(parts ...string) string {
	return strings.Join(parts, "_")
}

func token(t string) string {
	if t == "" {
		return firstPageToken
	}
	return t
}

func ProductKey(storeID, productID string) string {
	return join(FamilyProduct, storeID, productID)
}

// ProductHandleKey maps a product handle to its id. Handles move with renames, so the
// mappings live in their own family and any product change drops all of them.
func ProductHandleKey(storeID, handle string) string {
	return join(FamilyProductHandle, storeID, handle)
}

func ProductsKey(storeID string, limit int, pageToken string) string {
	return join(FamilyProducts, storeID, strconv.Itoa(limit), token(pageToken))
}

func FeaturedProductsKey(storeID string, limit int) string {
	return join(FamilyFeaturedProducts, storeID, strconv.Itoa(limit))
}

func SearchProductsKey(storeID, term string, limit int) string {
	return join(FamilySearchProducts, storeID, strings.ToLower(strings.TrimSpace(term)), strconv.Itoa(limit))
}

func CollectionKey(storeID, collectionID string) string {
	return join(FamilyCollection, storeID, collectionID)
}

func CollectionHandleKey(storeID, handle string) string {
	return join(FamilyCollection, storeID, "handle", handle)
}

// CollectionProductsKey caches one page of a collection's products. It lives under
// the collection's own prefix so dropping the collection drops its pages.
func CollectionProductsKey(storeID, collectionID string, limit int, pageToken string) string {
	return join(FamilyCollection, storeID, collectionID, "products", strconv.Itoa(limit), token(pageToken))
}

func CollectionsKey(storeID string, limit int, pageToken string) string {
	return join(FamilyCollections, storeID, strconv.Itoa(limit), token(pageToken))
}

func PageKey(storeID, pageID string) string {
	return join(FamilyPage, storeID, pageID)
}

func PageSlugKey(storeID, slug string) string {
	return join(FamilyPageSlug, storeID, slug)
}

func PagesKey(storeID string, limit int, pageToken string) string {
	return join(FamilyPages, storeID, strconv.Itoa(limit), token(pageToken))
}

func VisiblePagesKey(storeID string) string {
	return join(FamilyVisiblePages, storeID, "all")
}

func PoliciesPagesKey(storeID string) string {
	return join(FamilyPoliciesPages, storeID, "all")
}

func NavigationKey(storeID string) string {
	return join(FamilyNavigation, storeID, "menus")
}

func NavigationMenuKey(storeID, handle string) string {
	return join(FamilyNavigationMenu, storeID, handle)
}

func CartKey(storeID, sessionID string) string {
	return join(FamilyCart, storeID, sessionID)
}

func TemplateKey(storeID, path string) string {
	return join(FamilyTemplate, storeID, path)
}

func CompiledTemplateKey(storeID, path string) string {
	return join(FamilyCompiledTemplate, storeID, path)
}

// ProcessedThemeKey shares the template family so template invalidation drops it.
func ProcessedThemeKey(storeID string) string {
	return join(FamilyTemplate, storeID, "processed")
}

func DomainKey(hostname string) string {
	return join(FamilyDomain, hostname)
}
