package engine

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/osteele/liquid"
	"github.com/osteele/liquid/render"
)

// globalKeys survive into the isolated scope of {% render %}.
var globalKeys = []string{
	"shop", "store", "settings", "linklists", "cart", "request", "template",
	"page_title", "routes", partialsKey, paginationKey,
}

func (e *Engine) registerTags() {
	e.liquid.RegisterTag("section", e.sectionTag)
	e.liquid.RegisterTag("render", e.partialTag(true))
	e.liquid.RegisterTag("include", e.partialTag(false))
	e.liquid.RegisterTag("layout", func(render.Context) (string, error) { return "", nil })

	e.liquid.RegisterBlock("schema", func(render.Context) (string, error) { return "", nil })
	e.liquid.RegisterBlock("paginate", paginateBlock)
	e.liquid.RegisterBlock("form", formBlock)
	e.liquid.RegisterBlock("style", wrapBlock("<style>", "</style>"))
	e.liquid.RegisterBlock("stylesheet", wrapBlock("<style>", "</style>"))
	e.liquid.RegisterBlock("javascript", wrapBlock("<script>", "</script>"))
}

// SectionNotFound is the placeholder rendered for a section that was not loaded.
func SectionNotFound(name string) string {
	return fmt.Sprintf("<!-- Section '%s' not found -->", name)
}

func snippetNotFound(name string) string {
	return fmt.Sprintf("<!-- Snippet '%s' not found -->", name)
}

func (e *Engine) sectionTag(ctx render.Context) (string, error) {
	name := unquote(ctx.TagArgs())
	p, _ := ctx.Get(partialsKey).(*Partials)
	sec, ok := p.section(name)
	if !ok {
		return SectionNotFound(name), nil
	}
	depth := depthOf(ctx)
	if depth >= maxDepth {
		e.logger.Warn("section nesting too deep", "section", name)
		return "", nil
	}
	scope := clone(ctx.Bindings())
	scope[depthKey] = depth + 1
	scope["section"] = sectionDrop(name, sec.Defaults, nil, nil)
	return e.renderNested(sec.Template, scope, "section", name), nil
}

// partialTag renders a pre-loaded snippet. Isolated partials ({% render %}) only see
// globals and their arguments; {% include %} shares the caller's scope.
func (e *Engine) partialTag(isolated bool) liquid.Renderer {
	return func(ctx render.Context) (string, error) {
		call, err := parsePartialCall(ctx.TagArgs())
		if err != nil {
			return "", fmt.Errorf("partial: %w", err)
		}
		p, _ := ctx.Get(partialsKey).(*Partials)
		tpl, ok := p.snippet(call.name)
		if !ok {
			return snippetNotFound(call.name), nil
		}
		depth := depthOf(ctx)
		if depth >= maxDepth {
			e.logger.Warn("snippet nesting too deep", "snippet", call.name)
			return "", nil
		}

		var scope Bindings
		if isolated {
			scope = globals(ctx.Bindings())
		} else {
			scope = clone(ctx.Bindings())
		}
		scope[depthKey] = depth + 1
		for _, a := range call.args {
			v, err := ctx.EvaluateString(a.expr)
			if err != nil {
				return "", fmt.Errorf("partial %s: %w", call.name, err)
			}
			scope[a.name] = v
		}
		if call.with == "" {
			return e.renderNested(tpl, scope, "snippet", call.name), nil
		}

		v, err := ctx.EvaluateString(call.with)
		if err != nil {
			return "", fmt.Errorf("partial %s: %w", call.name, err)
		}
		if !call.loop {
			scope[call.alias] = v
			return e.renderNested(tpl, scope, "snippet", call.name), nil
		}
		items, _ := v.([]any)
		var b strings.Builder
		for _, item := range items {
			scope[call.alias] = item
			b.WriteString(e.renderNested(tpl, scope, "snippet", call.name))
		}
		return b.String(), nil
	}
}

func (e *Engine) renderNested(tpl *liquid.Template, scope Bindings, kind, name string) string {
	out, err := tpl.RenderString(scope)
	if err != nil {
		e.logger.Warn("partial render failed", "kind", kind, "name", name, "error", err)
		return fmt.Sprintf("<!-- Error rendering %s '%s' -->", kind, name)
	}
	return out
}

func depthOf(ctx render.Context) int {
	d, _ := ctx.Get(depthKey).(int)
	return d
}

func globals(b Bindings) Bindings {
	out := make(Bindings, len(globalKeys)+4)
	for _, k := range globalKeys {
		if v, ok := b[k]; ok {
			out[k] = v
		}
	}
	return out
}

var errPartialName = errors.New("partial name required")

type partialArg struct {
	name string
	expr string
}

type partialCall struct {
	name  string
	with  string
	alias string
	loop  bool
	args  []partialArg
}

var withClause = regexp.MustCompile(`^(with|for)\s+(.+?)(?:\s+as\s+([A-Za-z_][\w-]*))?$`)

// parsePartialCall reads `'name'`, `'name', key: expr, ...`, `'name' with expr as alias`
// and `'name' for items as item`.
func parsePartialCall(args string) (partialCall, error) {
	parts := splitArgs(args)
	if len(parts) == 0 || parts[0] == "" {
		return partialCall{}, errPartialName
	}
	head := parts[0]
	var call partialCall
	quoted := head
	if i := strings.IndexAny(head[1:], `'"`); isQuote(head[0]) && i >= 0 {
		quoted = head[:i+2]
		rest := strings.TrimSpace(head[i+2:])
		if rest != "" {
			m := withClause.FindStringSubmatch(rest)
			if m == nil {
				return partialCall{}, fmt.Errorf("unexpected %q after partial name", rest)
			}
			call.loop = m[1] == "for"
			call.with = m[2]
			call.alias = m[3]
		}
	}
	call.name = unquote(quoted)
	if call.name == "" {
		return partialCall{}, errPartialName
	}
	if call.with != "" && call.alias == "" {
		call.alias = call.name
	}
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, ":")
		if !ok {
			return partialCall{}, fmt.Errorf("expected key: value, got %q", p)
		}
		call.args = append(call.args, partialArg{name: strings.TrimSpace(k), expr: strings.TrimSpace(v)})
	}
	return call, nil
}

// splitArgs splits on commas outside quotes and trims each part.
func splitArgs(s string) []string {
	var (
		parts []string
		cur   strings.Builder
		quote byte
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case isQuote(c):
			quote = c
		case c == ',':
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" || len(parts) > 0 {
		parts = append(parts, rest)
	}
	return parts
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"'
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && isQuote(s[0]) && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

var paginateArgs = regexp.MustCompile(`^\s*(\S+)\s+by\s+(\d+)`)

const defaultPageSize = 12

// paginateBlock exposes a paginate drop built from the pre-loaded page state and
// renders its body.
func paginateBlock(ctx render.Context) (string, error) {
	size := defaultPageSize
	if m := paginateArgs.FindStringSubmatch(ctx.TagArgs()); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			size = n
		}
	}
	pg, _ := ctx.Get(paginationKey).(Pagination)
	ctx.Set("paginate", PaginateDrop(pg, size))
	return ctx.InnerString()
}

// PaginateDrop builds the paginate variable. Page tokens are opaque cursors, so the
// previous link returns to the first page.
func PaginateDrop(pg Pagination, size int) map[string]any {
	current := 1
	if pg.Token != "" {
		current = 2
	}
	d := map[string]any{
		"page_size":    size,
		"current_page": current,
		"items":        pg.Items,
	}
	if pg.NextToken != "" {
		d["next"] = map[string]any{"url": pg.Path + "?page=" + pg.NextToken, "is_link": true, "title": "Siguiente"}
	}
	if pg.Token != "" {
		d["previous"] = map[string]any{"url": pg.Path, "is_link": true, "title": "Anterior"}
	}
	return d
}

var formActions = map[string]string{
	"product":          "/cart/add",
	"cart":             "/cart",
	"contact":          "/contact",
	"newsletter":       "/contact#newsletter",
	"customer":         "/contact#newsletter",
	"customer_login":   "/account/login",
	"create_customer":  "/account",
	"recover_password": "/account/recover",
}

func formBlock(ctx render.Context) (string, error) {
	parts := splitArgs(ctx.TagArgs())
	formType := ""
	if len(parts) > 0 {
		formType = unquote(parts[0])
	}
	action, ok := formActions[formType]
	if !ok {
		action = "/"
	}
	attrs := ""
	for _, p := range parts[min(len(parts), 1):] {
		k, v, ok := strings.Cut(p, ":")
		if !ok {
			continue
		}
		val, err := ctx.EvaluateString(strings.TrimSpace(v))
		if err != nil {
			return "", err
		}
		if val == nil {
			continue
		}
		attrs += fmt.Sprintf(` %s="%s"`, html.EscapeString(strings.TrimSpace(k)), html.EscapeString(stringOf(val)))
	}
	inner, err := ctx.InnerString()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`<form method="post" action="%s" accept-charset="UTF-8"%s><input type="hidden" name="form_type" value="%s">%s</form>`,
		action, attrs, html.EscapeString(formType), inner), nil
}

func wrapBlock(openTag, closeTag string) liquid.Renderer {
	return func(ctx render.Context) (string, error) {
		inner, err := ctx.InnerString()
		if err != nil {
			return "", err
		}
		return openTag + inner + closeTag, nil
	}
}
