package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storefront/internal/cache"
	"storefront/internal/invalidation"
	"storefront/pkg/platform/httputil"
)

// Service defines the invalidation operations the handler exposes.
type Service interface {
	Invalidate(ctx context.Context, ev invalidation.Event) (invalidation.Result, error)
}

// Broadcaster forwards applied events to peer instances.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev invalidation.Event) error
}

// Handler serves the admin cache endpoints.
type Handler struct {
	service     Service
	broadcaster Broadcaster
	cache       cache.Store
	logger      *slog.Logger
}

// New creates the handler. broadcaster may be nil when no message bus is configured.
func New(service Service, broadcaster Broadcaster, c cache.Store, logger *slog.Logger) *Handler {
	return &Handler{service: service, broadcaster: broadcaster, cache: c, logger: logger}
}

// Register mounts the routes on r. r is expected to carry the admin token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/stores/{storeId}/cache/invalidate", h.HandleInvalidate)
	r.Get("/api/cache/stats", h.HandleStats)
}

type invalidateRequest struct {
	ChangeType invalidation.ChangeType `json:"changeType"`
	EntityID   string                  `json:"entityId,omitempty"`
	EntityIDs  []string                `json:"entityIds,omitempty"`
}

// HandleInvalidate applies an invalidation locally, then broadcasts it.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimw.GetReqID(ctx)

	var req invalidateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid invalidation request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	ev := invalidation.Event{
		StoreID:    chi.URLParam(r, "storeId"),
		ChangeType: req.ChangeType,
		EntityID:   req.EntityID,
		EntityIDs:  req.EntityIDs,
	}
	res, err := h.service.Invalidate(ctx, ev)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if h.broadcaster != nil {
		if err := h.broadcaster.Broadcast(ctx, ev); err != nil {
			h.logger.WarnContext(ctx, "invalidation applied locally but not broadcast",
				"request_id", requestID,
				"store_id", ev.StoreID,
				"error", err,
			)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleStats reports cache entry counts.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}
