package renderer

import (
	"context"
	"html"
	"net/http"
	"strings"

	"storefront/internal/engine"
	"storefront/internal/metadata"
	tenantmodels "storefront/internal/tenant/models"
	dErrors "storefront/pkg/domain-errors"
)

// TypeError is the template type reported for built-in error pages.
const TypeError = "error"

// ErrorPage renders the page shown for err. store is nil when the store could not be
// resolved. A 404 for a known store uses the theme's templates/404 when it has one.
func (r *Renderer) ErrorPage(ctx context.Context, store *tenantmodels.Store, domain, path string, err error) *Result {
	code := dErrors.CodeOf(err)
	status := dErrors.HTTPStatus(code)
	if r.metrics != nil {
		r.metrics.IncrementErrorPage(string(code))
	}

	if status == http.StatusNotFound && store != nil {
		rs := &renderState{
			store:   store,
			domain:  domain,
			route:   Route{TemplateType: TypeNotFound, Path: path},
			status:  http.StatusNotFound,
			machine: newMachine(),
		}
		res, perr := r.pipeline(ctx, rs)
		if perr == nil {
			return res
		}
		r.logger.WarnContext(ctx, "themed not found page failed", "store_id", store.ID, "error", perr)
	}

	name := ""
	if store != nil {
		name = store.Name
	}
	meta := metadata.ErrorMetadata(code, name, domain, path)
	templateType := TypeError
	if status == http.StatusNotFound {
		templateType = TypeNotFound
	}
	return &Result{
		HTML:         r.errorHTML(ctx, code, store, domain, path, meta),
		Metadata:     meta,
		StatusCode:   status,
		TemplateType: templateType,
	}
}

// errorHTML renders the built-in page for code through the engine, falling back to a
// static document when that fails too.
func (r *Renderer) errorHTML(ctx context.Context, code dErrors.Code, store *tenantmodels.Store, domain, path string, meta metadata.Metadata) string {
	b := engine.Bindings{
		"page": map[string]any{"title": meta.Title},
		"error": map[string]any{
			"code":        string(code),
			"status":      dErrors.HTTPStatus(code),
			"title":       metadata.ErrorTitle(code),
			"description": metadata.ErrorDescription(code),
		},
		"request": map[string]any{"path": path, "host": domain},
	}
	if store != nil {
		b["shop"] = shopDrop(store, domain)
	}
	out, err := r.engine.RenderSource("error/"+string(code), builtinErrorTemplate(code), b)
	if err != nil {
		r.logger.ErrorContext(ctx, "built-in error page failed", "code", code, "error", err)
		return staticErrorHTML(meta.Title, metadata.ErrorDescription(code))
	}
	return out
}

const errorFrame = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<meta name="robots" content="noindex">
<title>{{ page.title }}</title>
<style>
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#f3f4f6;color:#1f2937;margin:0;min-height:100vh;display:flex;flex-direction:column}
main{flex:1;display:flex;align-items:center;justify-content:center;padding:40px 20px}
.error{text-align:center;max-width:600px}
.error h1{font-size:2.5rem;font-weight:400;margin-bottom:1rem}
.error p{color:#6b7280}
.btn{display:inline-block;margin-top:2rem;padding:12px 24px;border-radius:6px;background:#1f2937;color:#fff;text-decoration:none}
footer{text-align:center;padding:20px;color:#6b7280;font-size:12px}
</style>
</head>
<body>
<main>
<div class="error" data-error="{{ error.code }}">
<h1>{{ error.title }}</h1>
<p>{{ error.description }}</p>
<!--actions-->
</div>
</main>
<footer>{% if shop %}{{ shop.name }}{% else %}Fasttify{% endif %}</footer>
</body>
</html>`

var errorActions = map[dErrors.Code]string{
	dErrors.CodeStoreNotFound:    `<p>Verifica la dirección e inténtalo de nuevo.</p>`,
	dErrors.CodeStoreNotActive:   `<p>Si eres el propietario de la tienda, revisa el estado de tu suscripción.</p>`,
	dErrors.CodeTemplateNotFound: `<a class="btn" href="/">Volver a la tienda</a>`,
	dErrors.CodeNotFound:         `<a class="btn" href="/">Volver a la tienda</a>`,
	dErrors.CodeTemplateRender:   `<a class="btn" href="/">Ir al inicio</a>`,
	dErrors.CodeDataFetch:        `<a class="btn" href="{{ request.path }}">Reintentar</a>`,
}

func builtinErrorTemplate(code dErrors.Code) string {
	actions, ok := errorActions[code]
	if !ok {
		actions = errorActions[dErrors.CodeTemplateRender]
	}
	return strings.Replace(errorFrame, "<!--actions-->", actions, 1)
}

func staticErrorHTML(title, description string) string {
	return `<!DOCTYPE html><html lang="es"><head><meta charset="UTF-8"><title>` +
		html.EscapeString(title) +
		`</title></head><body><h1>` +
		html.EscapeString(title) +
		`</h1><p>` +
		html.EscapeString(description) +
		`</p></body></html>`
}
