package engine

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/osteele/liquid"

	catalogmodels "storefront/internal/catalog/models"
	"storefront/internal/fetchers/drops"
)

// imageFallbacks are placeholder names themes use in place of a real image.
var imageFallbacks = map[string]bool{
	"collection-img": true,
	"product-img":    true,
	"placeholder":    true,
}

func registerFilters(e *liquid.Engine) {
	e.RegisterFilter("money", func(v any) string {
		return moneyString(v, drops.FormatMoney)
	})
	e.RegisterFilter("money_with_decimals", func(v any) string {
		return moneyString(v, drops.FormatMoneyWithDecimals)
	})
	e.RegisterFilter("money_without_currency", func(v any) string {
		return strings.TrimPrefix(moneyString(v, drops.FormatMoney), "$")
	})
	e.RegisterFilter("asset_url", AssetURL)
	e.RegisterFilter("img_url", func(v any, size func(string) string) string {
		return ImageURL(v, size(""))
	})
	e.RegisterFilter("img_tag", func(src any, alt func(string) string) string {
		s := stringOf(src)
		if s == "" {
			return ""
		}
		tag := `<img src="` + html.EscapeString(s) + `"`
		if a := alt(""); a != "" {
			tag += ` alt="` + html.EscapeString(a) + `"`
		}
		return tag + `>`
	})
	e.RegisterFilter("product_url", func(v any) string {
		return handleURL("/products/", v)
	})
	e.RegisterFilter("collection_url", func(v any) string {
		return handleURL("/collections/", v)
	})
	e.RegisterFilter("link_to", func(text any, url func(string) string, attrs func(string) string) string {
		return LinkTo(stringOf(text), url("#"), attrs(""))
	})
	e.RegisterFilter("handleize", func(v any) string {
		return catalogmodels.Slugify(stringOf(v))
	})
	e.RegisterFilter("handle", func(v any) string {
		return catalogmodels.Slugify(stringOf(v))
	})
	e.RegisterFilter("stylesheet_tag", StylesheetTag)
	e.RegisterFilter("script_tag", ScriptTag)
	e.RegisterFilter("default_pagination", defaultPagination)
}

// moneyString formats numbers. Strings that already hold a formatted price pass
// through unchanged.
func moneyString(v any, format func(float64) string) string {
	switch n := v.(type) {
	case nil:
		return format(0)
	case int:
		return format(float64(n))
	case int64:
		return format(float64(n))
	case float64:
		return format(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) {
			return n
		}
		return format(f)
	default:
		return fmt.Sprint(v)
	}
}

// AssetURL points at the theme asset route of the current host.
func AssetURL(file string) string {
	file = strings.TrimPrefix(strings.TrimPrefix(file, "/"), "assets/")
	return "/assets/" + file
}

// ImageURL keeps absolute URLs, drops placeholder names and relative paths that do
// not point at stored images. size is accepted for theme compatibility.
func ImageURL(v any, size string) string {
	src := stringOf(v)
	if m, ok := v.(map[string]any); ok {
		src = stringOf(m["url"])
		if src == "" {
			src = stringOf(m["src"])
		}
	}
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "//") {
		return src
	}
	clean := strings.TrimLeft(src, "/")
	if imageFallbacks[clean] {
		return ""
	}
	if strings.HasPrefix(src, "/") {
		return src
	}
	return ""
}

func handleURL(prefix string, v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return "#"
	}
	h := stringOf(m["slug"])
	if h == "" {
		h = stringOf(m["handle"])
	}
	if h == "" {
		return "#"
	}
	return prefix + h
}

// LinkTo builds an anchor. attrs is inserted verbatim.
func LinkTo(text, url, attrs string) string {
	a := `<a href="` + html.EscapeString(url) + `"`
	if attrs = strings.TrimSpace(attrs); attrs != "" {
		a += " " + attrs
	}
	return a + ">" + text + "</a>"
}

func StylesheetTag(url string) string {
	u := html.EscapeString(url)
	return `<link rel="preload" href="` + u + `" as="style">` + "\n" +
		`<link rel="stylesheet" href="` + u + `" media="all">`
}

func ScriptTag(url string) string {
	u := html.EscapeString(url)
	return `<link rel="preload" href="` + u + `" as="script">` + "\n" +
		`<script src="` + u + `" defer></script>`
}

func defaultPagination(v any) string {
	p, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="pagination">`)
	if prev, ok := p["previous"].(map[string]any); ok {
		b.WriteString(`<a href="` + html.EscapeString(stringOf(prev["url"])) + `" class="prev">&laquo; Anterior</a>`)
	} else {
		b.WriteString(`<span class="prev disabled">&laquo; Anterior</span>`)
	}
	if next, ok := p["next"].(map[string]any); ok {
		b.WriteString(`<a href="` + html.EscapeString(stringOf(next["url"])) + `" class="next">Siguiente &raquo;</a>`)
	} else {
		b.WriteString(`<span class="next disabled">Siguiente &raquo;</span>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func stringOf(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
