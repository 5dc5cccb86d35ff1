// Package renderer turns a resolved store and a storefront path into HTML. A render
// moves through ResolveRoute, AnalyzeRequirements, LoadData and Execute, ending in
// Success or Error; each state runs in its own trace span.
package renderer

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/osteele/liquid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"storefront/internal/analyzer"
	"storefront/internal/engine"
	"storefront/internal/fetchers/cart"
	"storefront/internal/fetchers/checkout"
	"storefront/internal/fetchers/collection"
	"storefront/internal/fetchers/navigation"
	"storefront/internal/fetchers/page"
	"storefront/internal/fetchers/product"
	"storefront/internal/metadata"
	"storefront/internal/renderer/metrics"
	tenantmodels "storefront/internal/tenant/models"
	"storefront/internal/theme"
	thememodels "storefront/internal/theme/models"
	dErrors "storefront/pkg/domain-errors"
	pstrings "storefront/pkg/platform/strings"
)

var tracer = otel.Tracer("storefront/renderer")

// preloadConcurrency bounds parallel section and snippet compilation per render.
const preloadConcurrency = 8

// Themes is the theme access a render needs. *theme.Loader implements it.
type Themes interface {
	LoadTheme(ctx context.Context, storeID string) (*thememodels.ProcessedTheme, error)
	LoadTemplate(ctx context.Context, storeID, path string) (string, error)
	LoadCompiled(ctx context.Context, storeID, path string) (*liquid.Template, error)
	LoadSection(ctx context.Context, storeID, name string) (*theme.Section, error)
	PageTemplate(ctx context.Context, storeID, templateType string) (*thememodels.PageTemplate, error)
}

// Fetchers are the data sources LoadData fans out to.
type Fetchers struct {
	Products    *product.Fetcher
	Collections *collection.Fetcher
	Pages       *page.Fetcher
	Navigation  *navigation.Fetcher
	Carts       *cart.Fetcher
	Checkouts   *checkout.Service
}

// Request is one page request for a resolved store.
type Request struct {
	Path        string
	Params      url.Values
	CartSession string
}

// Result is a rendered page.
type Result struct {
	HTML         string            `json:"html"`
	Metadata     metadata.Metadata `json:"metadata"`
	StatusCode   int               `json:"statusCode"`
	TemplateType string            `json:"templateType"`
}

// SectionLookup is the outcome of loading a section by name. A section that is not
// Found renders a placeholder.
type SectionLookup struct {
	Name    string
	Section engine.Section
	Found   bool
}

// Renderer renders storefront pages.
type Renderer struct {
	themes   Themes
	engine   *engine.Engine
	fetchers Fetchers
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Renderer)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

func New(themes Themes, eng *engine.Engine, f Fetchers, opts ...Option) *Renderer {
	r := &Renderer{themes: themes, engine: eng, fetchers: f, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// renderState is everything one render accumulates on its way through the states.
type renderState struct {
	store    *tenantmodels.Store
	domain   string
	route    Route
	theme    *thememodels.ProcessedTheme
	page     *thememodels.PageTemplate
	reqs     analyzer.Requirements
	partials *engine.Partials
	data     *pageData
	meta     metadata.Metadata
	status   int
	machine  *machine
}

// Render renders req for store. On failure it still returns the error page for the
// failure along with the coded error.
func (r *Renderer) Render(ctx context.Context, store *tenantmodels.Store, domain string, req Request) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "renderer.Render")
	defer span.End()
	span.SetAttributes(
		attribute.String("storefront.store_id", store.ID),
		attribute.String("storefront.path", req.Path),
	)

	rs := &renderState{store: store, domain: domain, status: http.StatusOK, machine: newMachine()}
	_ = r.step(ctx, StateResolveRoute, func(context.Context) error {
		rs.route = ResolveRoute(req.Path, req.Params)
		rs.route.CartSession = req.CartSession
		return nil
	})
	span.SetAttributes(attribute.String("storefront.template", rs.route.TemplateType))

	res, err := r.pipeline(ctx, rs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		_ = rs.machine.to(StateError)
		r.logger.ErrorContext(ctx, "page render failed",
			"store_id", store.ID,
			"path", rs.route.Path,
			"template", rs.route.TemplateType,
			"error", err,
		)
		res = r.ErrorPage(ctx, store, domain, rs.route.Path, err)
	}
	if r.metrics != nil {
		r.metrics.ObserveRender(res.TemplateType, res.StatusCode, start)
	}
	return res, err
}

// pipeline runs the states after ResolveRoute. A missing main entity sends the render
// back to AnalyzeRequirements with the 404 template.
func (r *Renderer) pipeline(ctx context.Context, rs *renderState) (*Result, error) {
	for {
		if err := rs.machine.to(StateAnalyzeRequirements); err != nil {
			return nil, err
		}
		if err := r.step(ctx, StateAnalyzeRequirements, func(ctx context.Context) error {
			return r.analyze(ctx, rs)
		}); err != nil {
			return nil, err
		}

		if err := rs.machine.to(StateLoadData); err != nil {
			return nil, err
		}
		var missing bool
		if err := r.step(ctx, StateLoadData, func(ctx context.Context) error {
			var err error
			missing, err = r.loadData(ctx, rs)
			return err
		}); err != nil {
			return nil, err
		}
		if !missing || rs.route.TemplateType == TypeNotFound {
			break
		}
		rs.route = rs.route.NotFound()
	}
	if rs.route.TemplateType == TypeNotFound {
		rs.status = http.StatusNotFound
	}

	if err := rs.machine.to(StateExecute); err != nil {
		return nil, err
	}
	rs.meta = metadata.Generate(rs.store, rs.domain, rs.pageInfo())
	var html string
	if err := r.step(ctx, StateExecute, func(ctx context.Context) error {
		var err error
		html, err = r.execute(ctx, rs)
		return err
	}); err != nil {
		return nil, err
	}
	if err := rs.machine.to(StateSuccess); err != nil {
		return nil, err
	}
	return &Result{HTML: html, Metadata: rs.meta, StatusCode: rs.status, TemplateType: rs.route.TemplateType}, nil
}

func (r *Renderer) step(ctx context.Context, state State, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "renderer."+string(state))
	defer span.End()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if r.metrics != nil {
		r.metrics.ObserveState(string(state), start)
	}
	return err
}

// analyze loads the theme and page template, works out the data the templates read
// and pre-compiles the sections and snippets they include.
func (r *Renderer) analyze(ctx context.Context, rs *renderState) error {
	storeID := rs.store.ID
	t, err := r.themes.LoadTheme(ctx, storeID)
	if err != nil {
		return err
	}
	rs.theme = t

	pt, err := r.themes.PageTemplate(ctx, storeID, rs.route.TemplateType)
	switch {
	case err == nil:
		rs.page = pt
	case rs.route.TemplateType == TypeNotFound && dErrors.HasCode(err, dErrors.CodeTemplateNotFound):
		// No themed 404; Execute falls back to the built-in page.
		rs.page = nil
		rs.reqs = analyzer.Merge()
		rs.partials = &engine.Partials{}
		return nil
	default:
		return err
	}

	roots := make(map[string]string, 2)
	if pt.Layout != "" {
		src, err := r.themes.LoadTemplate(ctx, storeID, pt.Layout)
		if err != nil {
			return err
		}
		roots[pt.Layout] = src
	}
	if pt.IsJSON() {
		// The JSON itself only contributes page-type inference.
		roots[pt.Path] = ""
		for _, s := range pt.OrderedSections() {
			p := theme.SectionPath(s.Config.Type)
			if src, err := r.themes.LoadTemplate(ctx, storeID, p); err == nil {
				roots[p] = src
			}
		}
	} else {
		roots[pt.Path] = pt.Source
	}

	rs.reqs = analyzer.AnalyzeTemplates(ctx, roots, func(ctx context.Context, p string) (string, error) {
		return r.themes.LoadTemplate(ctx, storeID, p)
	})
	rs.partials = r.preload(ctx, storeID, rs.reqs, pt)
	return nil
}

// preload compiles every section and snippet the render can reach so tag handlers
// never touch storage.
func (r *Renderer) preload(ctx context.Context, storeID string, reqs analyzer.Requirements, pt *thememodels.PageTemplate) *engine.Partials {
	names := append([]string(nil), reqs.IncludedSections...)
	if pt.IsJSON() {
		for _, s := range pt.OrderedSections() {
			names = append(names, s.Config.Type)
		}
	}

	p := &engine.Partials{
		Sections: make(map[string]engine.Section),
		Snippets: make(map[string]*liquid.Template),
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadConcurrency)
	for _, name := range pstrings.DedupeAndTrim(names) {
		g.Go(func() error {
			if l := r.LookupSection(gctx, storeID, name); l.Found {
				mu.Lock()
				p.Sections[l.Name] = l.Section
				mu.Unlock()
			}
			return nil
		})
	}
	for _, name := range reqs.IncludedPartials {
		g.Go(func() error {
			tpl, err := r.themes.LoadCompiled(gctx, storeID, theme.SnippetPath(name))
			if err != nil {
				r.logger.DebugContext(gctx, "snippet not loaded", "store_id", storeID, "snippet", name, "error", err)
				return nil
			}
			mu.Lock()
			p.Snippets[name] = tpl
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return p
}

// LookupSection loads and compiles a section. Missing or broken sections are reported
// as not found.
func (r *Renderer) LookupSection(ctx context.Context, storeID, name string) SectionLookup {
	sec, err := r.themes.LoadSection(ctx, storeID, name)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeTemplateNotFound) {
			r.logger.WarnContext(ctx, "section failed to load", "store_id", storeID, "section", name, "error", err)
		}
		return SectionLookup{Name: name}
	}
	return SectionLookup{
		Name:    name,
		Section: engine.Section{Template: sec.Template, Defaults: sec.Defaults},
		Found:   true,
	}
}

// execute renders the page content and wraps it in the layout.
func (r *Renderer) execute(ctx context.Context, rs *renderState) (string, error) {
	if rs.page == nil {
		return r.errorHTML(ctx, dErrors.CodeNotFound, rs.store, rs.domain, rs.route.Path, rs.meta), nil
	}
	b := engine.WithPagination(engine.WithPartials(r.bindings(rs), rs.partials), rs.pagination())

	content, err := r.pageContent(ctx, rs, b)
	if err != nil {
		return "", err
	}
	if rs.page.Layout == "" {
		return content, nil
	}
	layout, err := r.themes.LoadCompiled(ctx, rs.store.ID, rs.page.Layout)
	if err != nil {
		return "", err
	}
	b["content_for_layout"] = content
	return r.engine.Render(layout, b)
}

func (r *Renderer) pageContent(ctx context.Context, rs *renderState, b engine.Bindings) (string, error) {
	if !rs.page.IsJSON() {
		tpl, err := r.themes.LoadCompiled(ctx, rs.store.ID, rs.page.Path)
		if err != nil {
			return "", err
		}
		return r.engine.Render(tpl, b)
	}

	sections := rs.page.OrderedSections()
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		sec, ok := rs.partials.Sections[s.Config.Type]
		if !ok {
			parts = append(parts, engine.SectionNotFound(s.Config.Type))
			continue
		}
		out, err := r.engine.RenderSection(sec, s.ID, s.Config.Settings, s.Config.Blocks, b)
		if err != nil {
			r.logger.WarnContext(ctx, "section render failed",
				"store_id", rs.store.ID,
				"section", s.Config.Type,
				"error", err,
			)
			out = engine.SectionNotFound(s.Config.Type)
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, "\n"), nil
}
