// Package metadata builds page titles, canonical URLs, OpenGraph tags and schema.org
// JSON-LD for rendered pages. Everything here is a pure function of its inputs.
package metadata

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"storefront/internal/fetchers/drops"
	tenantmodels "storefront/internal/tenant/models"
	dErrors "storefront/pkg/domain-errors"
)

const (
	defaultIcon          = "/favicon.ico"
	maxDescriptionLength = 160
)

// OpenGraph holds the og: properties of a page.
type OpenGraph struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Type        string `json:"type"`
	Image       string `json:"image,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

// Metadata is the head information of a rendered page.
type Metadata struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Canonical   string         `json:"canonical,omitempty"`
	OpenGraph   OpenGraph      `json:"openGraph"`
	Schema      map[string]any `json:"schema,omitempty"`
	Icons       string         `json:"icons,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
}

// Page describes what is being rendered. Product and Collection are set for their
// page types.
type Page struct {
	Type        string
	Path        string
	Title       string
	Description string
	Image       string
	Product     *drops.Product
	Collection  *drops.Collection
	Keywords    []string
}

// Generate builds the metadata for page of store served at domain.
func Generate(store *tenantmodels.Store, domain string, page Page) Metadata {
	name := store.Name
	title := name
	if t := strings.TrimSpace(page.Title); t != "" && t != name {
		title = t + " | " + name
	}
	description := Description(store, page.Description)
	canonical := canonicalURL(domain, page.Path)

	ogType := "website"
	if page.Product != nil {
		ogType = "product"
	}
	image := page.Image
	if image == "" {
		image = firstNonEmpty(store.Banner, store.Logo)
	}
	icon := store.Favicon
	if icon == "" {
		icon = defaultIcon
	}

	return Metadata{
		Title:       title,
		Description: description,
		Canonical:   canonical,
		OpenGraph: OpenGraph{
			Title:       title,
			Description: description,
			URL:         canonical,
			Type:        ogType,
			Image:       image,
			SiteName:    name,
		},
		Schema:   schema(store, domain, page, title, description, canonical),
		Icons:    icon,
		Keywords: keywords(page),
	}
}

// Description picks the page description, then the store description, then a
// generic line naming the store. HTML is stripped and long text shortened.
func Description(store *tenantmodels.Store, pageDescription string) string {
	for _, d := range []string{pageDescription, store.Description} {
		if clean := clip(stripTags(d)); clean != "" {
			return clean
		}
	}
	return "Tienda online de " + store.Name
}

func schema(store *tenantmodels.Store, domain string, page Page, title, description, canonical string) map[string]any {
	base := map[string]any{"@context": "https://schema.org"}
	switch {
	case page.Product != nil:
		p := page.Product
		base["@type"] = "Product"
		base["name"] = p.Title
		base["description"] = description
		if p.FeaturedImage != "" {
			base["image"] = p.FeaturedImage
		}
		if p.Category != "" {
			base["category"] = p.Category
		}
		availability := "https://schema.org/OutOfStock"
		if p.Available {
			availability = "https://schema.org/InStock"
		}
		base["offers"] = map[string]any{
			"@type":         "Offer",
			"price":         p.PriceAmount,
			"priceCurrency": store.CurrencyOrDefault(),
			"availability":  availability,
			"url":           canonical,
		}
	case page.Collection != nil:
		base["@type"] = "CollectionPage"
		base["name"] = page.Collection.Title
		base["description"] = description
		base["url"] = canonical
	case page.Type == "" || page.Type == "index":
		base["@type"] = "WebSite"
		base["name"] = store.Name
		base["url"] = canonicalURL(domain, "/")
		if description != "" {
			base["description"] = description
		}
	default:
		base["@type"] = "WebPage"
		base["name"] = title
		base["description"] = description
		base["url"] = canonical
	}
	return base
}

func keywords(page Page) []string {
	if len(page.Keywords) > 0 {
		return page.Keywords
	}
	if page.Product == nil {
		return nil
	}
	var out []string
	for _, k := range []string{page.Product.Title, page.Product.Category} {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func canonicalURL(domain, path string) string {
	if domain == "" {
		return ""
	}
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "https://" + domain + path
}

var tags = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return strings.Join(strings.Fields(tags.ReplaceAllString(s, " ")), " ")
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxDescriptionLength {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxDescriptionLength-3])) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var errorTitles = map[dErrors.Code]string{
	dErrors.CodeStoreNotFound:    "Tienda no encontrada",
	dErrors.CodeStoreNotActive:   "Tienda no disponible",
	dErrors.CodeTemplateNotFound: "Página no encontrada",
	dErrors.CodeNotFound:         "Página no encontrada",
	dErrors.CodeTemplateRender:   "Error al mostrar la página",
	dErrors.CodeDataFetch:        "Error al cargar los datos",
}

var errorDescriptions = map[dErrors.Code]string{
	dErrors.CodeStoreNotFound:    "La tienda que buscas no existe o ya no está disponible.",
	dErrors.CodeStoreNotActive:   "Esta tienda no está activa en este momento.",
	dErrors.CodeTemplateNotFound: "La página que buscas no existe.",
	dErrors.CodeNotFound:         "La página que buscas no existe.",
	dErrors.CodeTemplateRender:   "Se produjo un error al mostrar esta página.",
	dErrors.CodeDataFetch:        "No pudimos cargar la información de la tienda.",
}

// ErrorTitle returns the page title for an error code.
func ErrorTitle(code dErrors.Code) string {
	if t, ok := errorTitles[code]; ok {
		return t
	}
	return "Error"
}

// ErrorDescription returns the visitor-facing explanation for an error code.
func ErrorDescription(code dErrors.Code) string {
	if d, ok := errorDescriptions[code]; ok {
		return d
	}
	return "Se produjo un error inesperado."
}

// ErrorMetadata builds metadata for an error page. storeName may be empty when no
// store was resolved.
func ErrorMetadata(code dErrors.Code, storeName, domain, path string) Metadata {
	title := ErrorTitle(code)
	if storeName != "" {
		title += " | " + storeName
	}
	description := ErrorDescription(code)
	url := canonicalURL(domain, path)
	return Metadata{
		Title:       title,
		Description: description,
		OpenGraph: OpenGraph{
			Title:       title,
			Description: description,
			URL:         url,
			Type:        "website",
			SiteName:    storeName,
		},
		Schema: map[string]any{
			"@context":    "https://schema.org",
			"@type":       "WebPage",
			"name":        title,
			"description": description,
		},
		Icons: defaultIcon,
	}
}

// Head renders m as the tags themes print through content_for_header.
func Head(m Metadata) string {
	var b strings.Builder
	tag := func(format, name, value string) {
		if value == "" {
			return
		}
		b.WriteString(strings.Replace(strings.Replace(format, "{n}", name, 1), "{v}", html.EscapeString(value), 1))
		b.WriteByte('\n')
	}
	tag(`<meta name="{n}" content="{v}">`, "description", m.Description)
	if len(m.Keywords) > 0 {
		tag(`<meta name="{n}" content="{v}">`, "keywords", strings.Join(m.Keywords, ", "))
	}
	tag(`<link rel="{n}" href="{v}">`, "canonical", m.Canonical)
	tag(`<link rel="{n}" href="{v}">`, "icon", m.Icons)
	og := m.OpenGraph
	for _, p := range [][2]string{
		{"og:title", og.Title},
		{"og:description", og.Description},
		{"og:url", og.URL},
		{"og:type", og.Type},
		{"og:image", og.Image},
		{"og:site_name", og.SiteName},
	} {
		tag(`<meta property="{n}" content="{v}">`, p[0], p[1])
	}
	if len(m.Schema) > 0 {
		if raw, err := json.Marshal(m.Schema); err == nil {
			b.WriteString(`<script type="application/ld+json">`)
			b.Write(raw)
			b.WriteString("</script>\n")
		}
	}
	return b.String()
}
