// Package storefront is the entry point of a page render: it resolves the store behind
// a hostname, renders the path and reports failures as a RenderError that still
// carries a rendered error page.
package storefront

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"storefront/internal/renderer"
	tenantmodels "storefront/internal/tenant/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/requestcontext"
)

// ErrorKind classifies a failed render.
type ErrorKind string

const (
	KindStoreNotFound       ErrorKind = "STORE_NOT_FOUND"
	KindStoreNotActive      ErrorKind = "STORE_NOT_ACTIVE"
	KindTemplateNotFound    ErrorKind = "TEMPLATE_NOT_FOUND"
	KindTemplateRenderError ErrorKind = "TEMPLATE_RENDER_ERROR"
	KindDataFetchError      ErrorKind = "DATA_FETCH_ERROR"
	KindRenderError         ErrorKind = "RENDER_ERROR"
)

// RenderError is the typed failure of RenderPage.
type RenderError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

func (e *RenderError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// KindOf maps a coded error to its render error kind.
func KindOf(err error) ErrorKind {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeStoreNotFound:
		return KindStoreNotFound
	case dErrors.CodeStoreNotActive:
		return KindStoreNotActive
	case dErrors.CodeTemplateNotFound:
		return KindTemplateNotFound
	case dErrors.CodeTemplateRender:
		return KindTemplateRenderError
	case dErrors.CodeDataFetch:
		return KindDataFetchError
	default:
		return KindRenderError
	}
}

func newRenderError(err error) *RenderError {
	var re *RenderError
	if errors.As(err, &re) {
		return re
	}
	kind := KindOf(err)
	status := dErrors.HTTPStatus(dErrors.CodeOf(err))
	if kind == KindRenderError {
		status = http.StatusInternalServerError
	}
	msg := err.Error()
	var de *dErrors.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	return &RenderError{Kind: kind, Message: msg, StatusCode: status, Err: err}
}

// Resolver maps hostnames to stores. *resolver.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, host string) (*tenantmodels.Store, error)
}

// Pages renders pages for resolved stores. *renderer.Renderer implements it.
type Pages interface {
	Render(ctx context.Context, store *tenantmodels.Store, domain string, req renderer.Request) (*renderer.Result, error)
	ErrorPage(ctx context.Context, store *tenantmodels.Store, domain, path string, err error) *renderer.Result
}

// Factory renders pages for any store the platform hosts.
type Factory struct {
	resolver Resolver
	pages    Pages
	logger   *slog.Logger
}

type Option func(*Factory)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

func New(resolver Resolver, pages Pages, opts ...Option) *Factory {
	f := &Factory{resolver: resolver, pages: pages, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type renderOptions struct {
	cartSession string
}

// RenderOption adjusts a single RenderPage call.
type RenderOption func(*renderOptions)

// WithCartSession renders with the given cart session. Without it the session carried
// by the context, if any, is used.
func WithCartSession(sessionID string) RenderOption {
	return func(o *renderOptions) {
		o.cartSession = sessionID
	}
}

// RenderPage renders path for the store served at domain. On failure the result is
// still the rendered error page and err is a *RenderError.
func (f *Factory) RenderPage(ctx context.Context, domain, path string, params url.Values, opts ...RenderOption) (*renderer.Result, error) {
	o := renderOptions{cartSession: requestcontext.CartSession(ctx)}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := f.resolver.Resolve(ctx, domain)
	if err != nil {
		f.logger.InfoContext(ctx, "store not resolved",
			"domain", domain,
			"path", path,
			"error", err,
		)
		return f.pages.ErrorPage(ctx, nil, domain, path, err), newRenderError(err)
	}

	res, err := f.pages.Render(ctx, store, domain, renderer.Request{
		Path:        path,
		Params:      params,
		CartSession: o.cartSession,
	})
	if err != nil {
		return res, newRenderError(err)
	}
	return res, nil
}

// Store resolves the store served at domain.
func (f *Factory) Store(ctx context.Context, domain string) (*tenantmodels.Store, error) {
	return f.resolver.Resolve(ctx, domain)
}
