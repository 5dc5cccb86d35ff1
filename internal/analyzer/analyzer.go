// Package analyzer scans template source for the data a page needs, so the renderer
// fetches only what the theme actually reads.
//
// Analysis is pattern based. A tag the patterns miss leads to an empty value at render
// time, never an error.
package analyzer

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"storefront/internal/theme"
	pstrings "storefront/pkg/platform/strings"
)

// Default fetch sizes when a template does not set a limit.
const (
	DefaultProductsLimit           = 20
	DefaultCollectionProductsLimit = 8
	DefaultCollectionsLimit        = 10
	IndexCollectionsLimit          = 6

	// MaxDepth bounds how many levels of sections and partials AnalyzeTemplates follows.
	MaxDepth = 3
)

// Requirements is the data a set of templates reads.
type Requirements struct {
	NeedsProducts     bool
	ProductsLimit     int
	NeedsCollections  bool
	CollectionsLimit  int
	CollectionHandles map[string]int

	// ListedCollectionProducts is how many products each listed collection carries.
	// Zero when no template reads products while looping over collections.
	ListedCollectionProducts int

	NeedsProduct    bool
	NeedsCollection bool
	NeedsPage       bool
	NeedsCart       bool
	NeedsLinklists  bool
	NeedsShop       bool
	NeedsBlog       bool
	NeedsPages      bool
	NeedsPolicies   bool
	NeedsRelated    bool
	NeedsFeatured   bool

	PaginationSize   int
	PaginationTarget string

	IncludedSections []string
	IncludedPartials []string
}

// CollectionLimit returns the limit requested for handle and whether it is requested.
func (r Requirements) CollectionLimit(handle string) (int, bool) {
	n, ok := r.CollectionHandles[handle]
	return n, ok
}

var (
	productsOutput    = regexp.MustCompile(`\{\{-?\s*products\s*[\|\}]|\bin\s+products\b(?:\s|%|-)`)
	collectionsOutput = regexp.MustCompile(`\{\{-?\s*collections\s*[\|\}]|\bin\s+collections\b(?:\s|%|-)`)
	collectionDot     = regexp.MustCompile(`collections\.([a-zA-Z0-9_-]+)\.products`)
	collectionBracket = regexp.MustCompile(`collections\[\s*['"]([a-zA-Z0-9_-]+)['"]\s*\]\.products`)

	collectionLoop = regexp.MustCompile(`\{%-?\s*for\s+([a-zA-Z_][a-zA-Z0-9_]*)\s+in\s+collections\b\s*[^.\[]`)

	productsLimit    = regexp.MustCompile(`(?:\{\{-?\s*|\bin\s+)products\b[^}]*limit:\s*(\d+)`)
	collectionsLimit = regexp.MustCompile(`(?:\{\{-?\s*|\bin\s+)collections(?:\s|\|)[^}]*limit:\s*(\d+)`)

	paginateTag  = regexp.MustCompile(`\{%-?\s*paginate\s+([^%]+)-?%\}`)
	paginateArgs = regexp.MustCompile(`^\s*([^\s]+)\s+by\s+(\d+)`)

	sectionTag = regexp.MustCompile(`\{%-?\s*section\s+['"]([^'"]+)['"]\s*-?%\}`)
	partialTag = regexp.MustCompile(`\{%-?\s*(?:render|include)\s+['"]([^'"]+)['"]`)

	pagesUse    = regexp.MustCompile(`\{\{-?\s*pages\s*[\|\}\.]|\bin\s+pages\b`)
	policiesUse = regexp.MustCompile(`\bpolicies\b`)
	relatedUse  = regexp.MustCompile(`\brelated_products\b`)
	featuredUse = regexp.MustCompile(`\bfeatured_products\b`)
)

func objectUse(name string) *regexp.Regexp {
	return regexp.MustCompile(`\{\{-?\s*` + name + `\.|\{%-?[^%]*\b` + name + `\.`)
}

var (
	productUse    = objectUse("product")
	collectionUse = objectUse("collection")
	cartUse       = objectUse("cart")
	linklistsUse  = objectUse("linklists")
	shopUse       = objectUse("shop")
	pageUse       = objectUse("page")
	blogUse       = objectUse("blog")
)

// Analyze inspects one template. path selects the page-type inference for templates/.
func Analyze(path, source string) Requirements {
	r := Requirements{
		CollectionHandles: map[string]int{},
		NeedsCart:         true,
		NeedsLinklists:    true,
		NeedsShop:         true,
	}

	if productsOutput.MatchString(source) {
		r.NeedsProducts = true
		r.ProductsLimit = maxLimit(productsLimit, source, DefaultProductsLimit)
	}
	if collectionsOutput.MatchString(source) {
		r.NeedsCollections = true
		r.CollectionsLimit = maxLimit(collectionsLimit, source, DefaultCollectionsLimit)
	}
	for _, re := range []*regexp.Regexp{collectionDot, collectionBracket} {
		for _, m := range re.FindAllStringSubmatch(source, -1) {
			handle := m[1]
			if _, seen := r.CollectionHandles[handle]; seen {
				continue
			}
			r.CollectionHandles[handle] = collectionProductsLimit(source, handle)
		}
	}

	r.ListedCollectionProducts = loopedCollectionProducts(source)

	r.NeedsProduct = productUse.MatchString(source)
	r.NeedsCollection = collectionUse.MatchString(source)
	r.NeedsPage = pageUse.MatchString(source)
	r.NeedsBlog = blogUse.MatchString(source)
	r.NeedsPages = pagesUse.MatchString(source)
	r.NeedsPolicies = policiesUse.MatchString(source)
	r.NeedsRelated = relatedUse.MatchString(source)
	r.NeedsFeatured = featuredUse.MatchString(source)

	if m := paginateTag.FindStringSubmatch(source); m != nil {
		if args := paginateArgs.FindStringSubmatch(m[1]); args != nil {
			r.PaginationTarget = args[1]
			r.PaginationSize, _ = strconv.Atoi(args[2])
		}
	}

	for _, m := range sectionTag.FindAllStringSubmatch(source, -1) {
		r.IncludedSections = append(r.IncludedSections, m[1])
	}
	for _, m := range partialTag.FindAllStringSubmatch(source, -1) {
		r.IncludedPartials = append(r.IncludedPartials, m[1])
	}
	r.IncludedSections = pstrings.DedupeAndTrim(r.IncludedSections)
	r.IncludedPartials = pstrings.DedupeAndTrim(r.IncludedPartials)

	inferFromPath(&r, path)
	return r
}

// inferFromPath adds what a page template's type implies regardless of its markup.
func inferFromPath(r *Requirements, path string) {
	if !strings.HasPrefix(path, "templates/") {
		return
	}
	name := strings.TrimPrefix(path, "templates/")
	switch {
	case strings.Contains(name, "index"):
		r.NeedsCollections = true
		r.CollectionsLimit = max(r.CollectionsLimit, IndexCollectionsLimit)
	case strings.Contains(name, "product"):
		r.NeedsProduct = true
	case strings.Contains(name, "collection"):
		r.NeedsCollection = true
	case strings.Contains(name, "cart"):
		r.NeedsCart = true
	}
}

func collectionProductsLimit(source, handle string) int {
	h := regexp.QuoteMeta(handle)
	re := regexp.MustCompile(`collections(?:\.` + h + `|\[\s*['"]` + h + `['"]\s*\])\.products[^}]*limit:\s*(\d+)`)
	return maxLimit(re, source, DefaultCollectionProductsLimit)
}

// loopedCollectionProducts returns the products limit read through the variable of a
// `for x in collections` loop, or zero when no loop reads x.products.
func loopedCollectionProducts(source string) int {
	limit := 0
	for _, m := range collectionLoop.FindAllStringSubmatch(source, -1) {
		v := regexp.QuoteMeta(m[1])
		use := regexp.MustCompile(`\b` + v + `\.products\b`)
		if !use.MatchString(source) {
			continue
		}
		re := regexp.MustCompile(`\b` + v + `\.products\b[^}%]*limit:\s*(\d+)`)
		limit = max(limit, maxLimit(re, source, DefaultCollectionProductsLimit))
	}
	return limit
}

// maxLimit returns the largest limit the pattern captures, or def.
func maxLimit(re *regexp.Regexp, source string, def int) int {
	found := 0
	for _, m := range re.FindAllStringSubmatch(source, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > found {
			found = n
		}
	}
	if found == 0 {
		return def
	}
	return found
}

// Merge combines requirement sets: flags by union, limits by maximum.
func Merge(sets ...Requirements) Requirements {
	out := Requirements{CollectionHandles: map[string]int{}}
	for _, r := range sets {
		out.NeedsProducts = out.NeedsProducts || r.NeedsProducts
		out.ProductsLimit = max(out.ProductsLimit, r.ProductsLimit)
		out.NeedsCollections = out.NeedsCollections || r.NeedsCollections
		out.CollectionsLimit = max(out.CollectionsLimit, r.CollectionsLimit)
		for h, n := range r.CollectionHandles {
			out.CollectionHandles[h] = max(out.CollectionHandles[h], n)
		}
		out.ListedCollectionProducts = max(out.ListedCollectionProducts, r.ListedCollectionProducts)
		out.NeedsProduct = out.NeedsProduct || r.NeedsProduct
		out.NeedsCollection = out.NeedsCollection || r.NeedsCollection
		out.NeedsPage = out.NeedsPage || r.NeedsPage
		out.NeedsCart = out.NeedsCart || r.NeedsCart
		out.NeedsLinklists = out.NeedsLinklists || r.NeedsLinklists
		out.NeedsShop = out.NeedsShop || r.NeedsShop
		out.NeedsBlog = out.NeedsBlog || r.NeedsBlog
		out.NeedsPages = out.NeedsPages || r.NeedsPages
		out.NeedsPolicies = out.NeedsPolicies || r.NeedsPolicies
		out.NeedsRelated = out.NeedsRelated || r.NeedsRelated
		out.NeedsFeatured = out.NeedsFeatured || r.NeedsFeatured
		if r.PaginationSize > out.PaginationSize {
			out.PaginationSize = r.PaginationSize
			out.PaginationTarget = r.PaginationTarget
		}
		out.IncludedSections = append(out.IncludedSections, r.IncludedSections...)
		out.IncludedPartials = append(out.IncludedPartials, r.IncludedPartials...)
	}
	out.IncludedSections = pstrings.DedupeAndTrim(out.IncludedSections)
	out.IncludedPartials = pstrings.DedupeAndTrim(out.IncludedPartials)
	return out
}

// SourceLoader returns the source of a theme path.
type SourceLoader func(ctx context.Context, path string) (string, error)

// AnalyzeTemplates analyzes roots (path to source) and then, level by level up to
// MaxDepth, the sections and partials they include. Sources that fail to load are
// skipped; the render shows a placeholder for them.
func AnalyzeTemplates(ctx context.Context, roots map[string]string, load SourceLoader) Requirements {
	seen := make(map[string]bool, len(roots))
	sets := make([]Requirements, 0, len(roots))
	var next []string
	for p, src := range roots {
		seen[p] = true
		r := Analyze(p, src)
		sets = append(sets, r)
		next = append(next, includedPaths(r, seen)...)
	}

	for depth := 0; depth < MaxDepth && len(next) > 0; depth++ {
		var (
			mu    sync.Mutex
			level []Requirements
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		for _, p := range next {
			g.Go(func() error {
				src, err := load(gctx, p)
				if err != nil {
					return nil
				}
				r := Analyze(p, src)
				mu.Lock()
				level = append(level, r)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		next = next[:0]
		for _, r := range level {
			next = append(next, includedPaths(r, seen)...)
		}
		sets = append(sets, level...)
	}
	return Merge(sets...)
}

func includedPaths(r Requirements, seen map[string]bool) []string {
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, s := range r.IncludedSections {
		add(theme.ResolvePath(s))
	}
	for _, s := range r.IncludedPartials {
		add(theme.SnippetPath(s))
	}
	return out
}
