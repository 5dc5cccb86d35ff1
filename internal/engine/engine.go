// Package engine adapts github.com/osteele/liquid to the storefront: it registers the
// theme tags and filters and renders sections and snippets that were loaded ahead of
// time, since tag handlers cannot fetch from storage.
package engine

import (
	"log/slog"

	"github.com/osteele/liquid"

	dErrors "storefront/pkg/domain-errors"
)

// Bindings are the variables a template renders against.
type Bindings = map[string]any

// Reserved binding keys. They are not valid Liquid identifiers, so templates cannot
// read or shadow them.
const (
	partialsKey   = "@partials"
	depthKey      = "@depth"
	paginationKey = "@pagination"
)

// maxDepth bounds nested section and snippet rendering.
const maxDepth = 8

// Section is a compiled section and the setting defaults from its schema.
type Section struct {
	Template *liquid.Template
	Defaults map[string]any
}

// Partials are the sections and snippets available to one render.
type Partials struct {
	Sections map[string]Section
	Snippets map[string]*liquid.Template
}

func (p *Partials) section(name string) (Section, bool) {
	if p == nil {
		return Section{}, false
	}
	s, ok := p.Sections[name]
	return s, ok && s.Template != nil
}

func (p *Partials) snippet(name string) (*liquid.Template, bool) {
	if p == nil {
		return nil, false
	}
	t, ok := p.Snippets[name]
	return t, ok && t != nil
}

// Pagination describes the current page of a paginated listing.
type Pagination struct {
	Path      string
	Token     string
	NextToken string
	PageSize  int
	Items     int
}

// Engine compiles and renders theme templates.
type Engine struct {
	liquid *liquid.Engine
	logger *slog.Logger
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{liquid: liquid.NewEngine(), logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	registerFilters(e.liquid)
	e.registerTags()
	return e
}

// Compile parses source. Syntax errors carry CodeTemplateRender.
func (e *Engine) Compile(path string, source []byte) (*liquid.Template, error) {
	tpl, err := e.liquid.ParseTemplate(source)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTemplateRender, "compile "+path)
	}
	return tpl, nil
}

// Render executes a compiled template.
func (e *Engine) Render(tpl *liquid.Template, b Bindings) (string, error) {
	out, err := tpl.RenderString(b)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeTemplateRender, "render template")
	}
	return out, nil
}

// RenderSource compiles and renders source in one step. Used for built-in pages.
func (e *Engine) RenderSource(name, source string, b Bindings) (string, error) {
	tpl, err := e.Compile(name, []byte(source))
	if err != nil {
		return "", err
	}
	return e.Render(tpl, b)
}

// RenderSection renders a section with its schema defaults overlaid by settings.
func (e *Engine) RenderSection(sec Section, id string, settings map[string]any, blocks []map[string]any, b Bindings) (string, error) {
	scope := clone(b)
	scope["section"] = sectionDrop(id, sec.Defaults, settings, blocks)
	return e.Render(sec.Template, scope)
}

// WithPartials returns a copy of b carrying the partials for nested tags.
func WithPartials(b Bindings, p *Partials) Bindings {
	out := clone(b)
	out[partialsKey] = p
	return out
}

// WithPagination returns a copy of b carrying the pagination state for paginate blocks.
func WithPagination(b Bindings, p Pagination) Bindings {
	out := clone(b)
	out[paginationKey] = p
	return out
}

func sectionDrop(id string, defaults, settings map[string]any, blocks []map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(settings))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range settings {
		merged[k] = v
	}
	bl := make([]any, 0, len(blocks))
	for _, blk := range blocks {
		bl = append(bl, blk)
	}
	return map[string]any{"id": id, "settings": merged, "blocks": bl}
}

func clone(b Bindings) Bindings {
	out := make(Bindings, len(b)+2)
	for k, v := range b {
		out[k] = v
	}
	return out
}
