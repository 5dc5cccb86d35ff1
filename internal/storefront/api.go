package storefront

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storefront/internal/fetchers/cart"
	"storefront/internal/fetchers/checkout"
	"storefront/internal/platform/middleware"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/requestcontext"
)

// APIHandler serves the cart and checkout JSON endpoints. The cart session travels in
// the cart_session cookie.
type APIHandler struct {
	factory   *Factory
	carts     *cart.Fetcher
	checkouts *checkout.Service
	logger    *slog.Logger
}

func NewAPIHandler(factory *Factory, carts *cart.Fetcher, checkouts *checkout.Service, logger *slog.Logger) *APIHandler {
	return &APIHandler{factory: factory, carts: carts, checkouts: checkouts, logger: logger}
}

func (h *APIHandler) Register(r chi.Router) {
	r.Route("/api/stores/{storeId}", func(r chi.Router) {
		r.Get("/cart", h.HandleGetCart)
		r.Delete("/cart", h.HandleClearCart)
		r.Post("/cart/items", h.HandleAddItem)
		r.Patch("/cart/items/{itemId}", h.HandleUpdateItem)
		r.Delete("/cart/items/{itemId}", h.HandleRemoveItem)
		r.Post("/checkout", h.HandleStartCheckout)
	})
	r.Route("/api/checkout/{token}", func(r chi.Router) {
		r.Get("/", h.HandleGetCheckout)
		r.Patch("/", h.HandleUpdateCheckout)
		r.Post("/complete", h.HandleCompleteCheckout)
		r.Post("/cancel", h.HandleCancelCheckout)
	})
}

type cartResponse struct {
	ID         string      `json:"id,omitempty"`
	SessionID  string      `json:"sessionId,omitempty"`
	Currency   string      `json:"currency"`
	Items      []cart.Item `json:"items"`
	ItemCount  int         `json:"itemCount"`
	TotalPrice float64     `json:"totalPrice"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	return cartResponse{
		ID:         c.ID,
		SessionID:  c.SessionID,
		Currency:   c.Currency,
		Items:      items,
		ItemCount:  c.ItemCount(),
		TotalPrice: c.Total(),
	}
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// HandleGetCart returns the session's cart, or an empty cart when there is none.
func (h *APIHandler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.carts.Get(ctx, chi.URLParam(r, "storeId"), requestcontext.CartSession(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleAddItem adds a product to the cart, creating the cart and its session cookie
// on first use.
func (h *APIHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeId")

	var req cart.AddItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.carts.AddItem(ctx, storeID, requestcontext.CartSession(ctx), req)
	if err != nil {
		h.logger.InfoContext(ctx, "add to cart rejected",
			"request_id", chimw.GetReqID(ctx),
			"store_id", storeID,
			"product_id", req.ProductID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	setCartCookie(w, c.SessionID)
	httputil.WriteJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *APIHandler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.carts.UpdateItem(ctx, chi.URLParam(r, "storeId"), requestcontext.CartSession(ctx), chi.URLParam(r, "itemId"), req.Quantity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *APIHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.carts.RemoveItem(ctx, chi.URLParam(r, "storeId"), requestcontext.CartSession(ctx), chi.URLParam(r, "itemId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *APIHandler) HandleClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.carts.Clear(ctx, chi.URLParam(r, "storeId"), requestcontext.CartSession(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCartResponse(c))
}

// HandleStartCheckout snapshots the session's cart into a checkout. The body is
// optional and may carry customer details.
func (h *APIHandler) HandleStartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeId")

	var details checkout.Details
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &details); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	session, err := h.checkouts.Start(ctx, storeID, requestcontext.CartSession(ctx), details)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, session)
}

// HandleGetCheckout returns a checkout of the store behind the request host.
func (h *APIHandler) HandleGetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, err := h.factory.Store(ctx, r.Host)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	session, err := h.checkouts.Get(ctx, store.ID, chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *APIHandler) HandleUpdateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, err := h.factory.Store(ctx, r.Host)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var details checkout.Details
	if err := httputil.DecodeJSON(r, &details); err != nil {
		httputil.WriteError(w, err)
		return
	}
	session, err := h.checkouts.UpdateDetails(ctx, store.ID, chi.URLParam(r, "token"), details)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *APIHandler) HandleCompleteCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, err := h.factory.Store(ctx, r.Host)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	session, err := h.checkouts.Complete(ctx, store.ID, chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "checkout completed",
		"request_id", chimw.GetReqID(ctx),
		"store_id", store.ID,
		"cart_id", session.CartID,
	)
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *APIHandler) HandleCancelCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store, err := h.factory.Store(ctx, r.Host)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	session, err := h.checkouts.Cancel(ctx, store.ID, chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func setCartCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CartSessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(cart.Lifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
