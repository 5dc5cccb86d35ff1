package storefront

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storefront/internal/theme/ports"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/platform/sentinel"
)

const assetsDir = "assets/"

// PageHandler serves rendered storefront pages and theme assets for whatever store the
// request host resolves to.
type PageHandler struct {
	factory *Factory
	assets  ports.ObjectStorage
	logger  *slog.Logger
}

func NewPageHandler(factory *Factory, assets ports.ObjectStorage, logger *slog.Logger) *PageHandler {
	return &PageHandler{factory: factory, assets: assets, logger: logger}
}

// Register mounts the catch-all page route. Mount it after every API route.
func (h *PageHandler) Register(r chi.Router) {
	r.Get("/assets/*", h.HandleAsset)
	r.Get("/*", h.HandlePage)
}

// HandlePage renders r.URL.Path for the store behind r.Host.
func (h *PageHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.factory.RenderPage(ctx, r.Host, r.URL.Path, r.URL.Query())

	status := http.StatusOK
	if res != nil {
		status = res.StatusCode
	}
	var re *RenderError
	if errors.As(err, &re) {
		status = re.StatusCode
		h.logger.WarnContext(ctx, "storefront page failed",
			"request_id", chimw.GetReqID(ctx),
			"host", r.Host,
			"path", r.URL.Path,
			"kind", re.Kind,
		)
	}
	if res == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Template-Type", res.TemplateType)
	if status != http.StatusOK {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(res.HTML))
}

// HandleAsset streams a file from the store theme's assets/ directory.
func (h *PageHandler) HandleAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, err := h.factory.Store(ctx, r.Host)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	name := path.Clean("/" + chi.URLParam(r, "*"))
	if name == "/" || strings.Contains(name, "..") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "asset not found"))
		return
	}
	data, err := h.assets.ReadFile(ctx, store.ID, assetsDir+strings.TrimPrefix(name, "/"))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "asset not found"))
			return
		}
		h.logger.ErrorContext(ctx, "asset read failed", "store_id", store.ID, "asset", name, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "asset unavailable"))
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
