// Package cart serves session carts. Reads go through the cache with the short cart TTL;
// every write goes to the cart store and drops the session's cache entry.
package cart

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"storefront/internal/cache"
	"storefront/internal/fetchers"
	"storefront/internal/fetchers/drops"
	tenantmodels "storefront/internal/tenant/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// ProductSource resolves the product an item is added from.
type ProductSource interface {
	Get(ctx context.Context, storeID, idOrHandle string) (*drops.Product, error)
}

// StoreLookup finds the store a new cart takes its currency from.
type StoreLookup interface {
	FindByID(ctx context.Context, storeID string) (*tenantmodels.Store, error)
}

// AddItemRequest is the body of an add-to-cart call.
type AddItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Fetcher reads and mutates session carts.
type Fetcher struct {
	store    Store
	products ProductSource
	stores   StoreLookup
	cache    cache.Store
	ttls     cache.TTLs
	logger   *slog.Logger
}

type Option func(*Fetcher)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

func WithTTLs(ttls cache.TTLs) Option {
	return func(f *Fetcher) {
		f.ttls = ttls
	}
}

// WithStores makes new carts use the store's currency instead of the default.
func WithStores(stores StoreLookup) Option {
	return func(f *Fetcher) {
		f.stores = stores
	}
}

func New(store Store, products ProductSource, c cache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{store: store, products: products, cache: c, ttls: cache.DefaultTTLs(), logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get returns the session's cart, or an empty cart when there is none. It never
// creates a cart.
func (f *Fetcher) Get(ctx context.Context, storeID, sessionID string) (*drops.Cart, error) {
	if sessionID == "" {
		return emptyDrop(), nil
	}
	return fetchers.ReadThrough(ctx, f.cache, cache.CartKey(storeID, sessionID), f.ttls.Cart,
		func(ctx context.Context) (*drops.Cart, error) {
			c, err := f.store.Find(ctx, storeID, sessionID)
			if errors.Is(err, sentinel.ErrNotFound) {
				return emptyDrop(), nil
			}
			if err != nil {
				return nil, fetchers.TranslateError(err, "cart")
			}
			return ToDrop(c), nil
		})
}

// Current returns the stored cart without going through the cache. Checkout snapshots
// it, so it must not be stale.
func (f *Fetcher) Current(ctx context.Context, storeID, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "cart not found")
	}
	c, err := f.store.Find(ctx, storeID, sessionID)
	if err != nil {
		return nil, fetchers.TranslateError(err, "cart")
	}
	return c, nil
}

// GetOrCreate returns the session's cart, creating it when absent. An empty sessionID
// gets a fresh one; callers hand the returned cart's SessionID back to the client.
func (f *Fetcher) GetOrCreate(ctx context.Context, storeID, sessionID string) (*Cart, error) {
	if sessionID != "" {
		c, err := f.store.Find(ctx, storeID, sessionID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, fetchers.TranslateError(err, "cart")
		}
	} else {
		sessionID = uuid.NewString()
	}

	now := requestcontext.Now(ctx)
	c, err := f.store.Create(ctx, &Cart{
		ID:        uuid.NewString(),
		StoreID:   storeID,
		SessionID: sessionID,
		Currency:  f.currency(ctx, storeID),
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(Lifetime),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create cart")
	}
	f.cache.DeleteKey(ctx, cache.CartKey(storeID, c.SessionID))
	f.logger.DebugContext(ctx, "cart ready", "store_id", storeID, "cart_id", c.ID)
	return c, nil
}

func (f *Fetcher) currency(ctx context.Context, storeID string) string {
	if f.stores == nil {
		return tenantmodels.DefaultCurrency
	}
	st, err := f.stores.FindByID(ctx, storeID)
	if err != nil {
		f.logger.WarnContext(ctx, "store lookup failed, using default currency", "store_id", storeID, "error", err)
		return tenantmodels.DefaultCurrency
	}
	return st.CurrencyOrDefault()
}

// AddItem adds quantity of a product, merging with an existing line for the same
// product and variant.
func (f *Fetcher) AddItem(ctx context.Context, storeID, sessionID string, req AddItemRequest) (*Cart, error) {
	if req.ProductID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "productId is required")
	}
	if req.Quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "quantity must be positive")
	}
	p, err := f.products.Get(ctx, storeID, req.ProductID)
	if err != nil {
		return nil, err
	}
	item, err := snapshot(p, req)
	if err != nil {
		return nil, err
	}
	c, err := f.GetOrCreate(ctx, storeID, sessionID)
	if err != nil {
		return nil, err
	}
	return f.update(ctx, storeID, c.SessionID, func(c *Cart) error {
		if i := c.findProduct(item.ProductID, item.VariantID); i >= 0 {
			c.Items[i].Quantity += item.Quantity
			return nil
		}
		item.ID = uuid.NewString()
		c.Items = append(c.Items, item)
		return nil
	})
}

// UpdateItem sets a line's quantity. A quantity of zero or less removes the line.
func (f *Fetcher) UpdateItem(ctx context.Context, storeID, sessionID, itemID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return f.RemoveItem(ctx, storeID, sessionID, itemID)
	}
	return f.update(ctx, storeID, sessionID, func(c *Cart) error {
		i := c.find(itemID)
		if i < 0 {
			return dErrors.New(dErrors.CodeNotFound, "cart item not found")
		}
		c.Items[i].Quantity = quantity
		return nil
	})
}

func (f *Fetcher) RemoveItem(ctx context.Context, storeID, sessionID, itemID string) (*Cart, error) {
	return f.update(ctx, storeID, sessionID, func(c *Cart) error {
		i := c.find(itemID)
		if i < 0 {
			return dErrors.New(dErrors.CodeNotFound, "cart item not found")
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	})
}

// Clear empties the cart but keeps the session.
func (f *Fetcher) Clear(ctx context.Context, storeID, sessionID string) (*Cart, error) {
	return f.update(ctx, storeID, sessionID, func(c *Cart) error {
		c.Items = []Item{}
		return nil
	})
}

func (f *Fetcher) update(ctx context.Context, storeID, sessionID string, fn func(*Cart) error) (*Cart, error) {
	if sessionID == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "cart not found")
	}
	now := requestcontext.Now(ctx)
	c, err := f.store.Update(ctx, storeID, sessionID, func(c *Cart) error {
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = now
		c.ExpiresAt = now.Add(Lifetime)
		return nil
	})
	f.cache.DeleteKey(ctx, cache.CartKey(storeID, sessionID))
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "cart changed concurrently")
		}
		return nil, fetchers.TranslateError(err, "cart")
	}
	return c, nil
}

func snapshot(p *drops.Product, req AddItemRequest) (Item, error) {
	if !p.Available {
		return Item{}, dErrors.New(dErrors.CodeConflict, "product is not available")
	}
	item := Item{
		ProductID: p.ID,
		Title:     p.Title,
		Handle:    p.Handle,
		Image:     p.FeaturedImage,
		Price:     p.PriceAmount,
		Quantity:  req.Quantity,
	}
	if req.VariantID == "" {
		return item, nil
	}
	for _, v := range p.Variants {
		if v.ID != req.VariantID {
			continue
		}
		if !v.Available {
			return Item{}, dErrors.New(dErrors.CodeConflict, "variant is not available")
		}
		item.VariantID = v.ID
		item.Price = v.PriceAmount
		if v.Title != "" {
			item.Title = p.Title + " - " + v.Title
		}
		return item, nil
	}
	return Item{}, dErrors.New(dErrors.CodeNotFound, "variant not found")
}

func emptyDrop() *drops.Cart {
	return &drops.Cart{Currency: tenantmodels.DefaultCurrency, Items: []drops.CartItem{}}
}

// ToDrop converts a cart into its template view.
func ToDrop(c *Cart) *drops.Cart {
	return &drops.Cart{
		ID:         c.ID,
		ItemCount:  c.ItemCount(),
		TotalPrice: c.Total(),
		Currency:   c.Currency,
		Items:      ItemViews(c.Items),
	}
}

// ItemViews converts cart lines into their template view.
func ItemViews(items []Item) []drops.CartItem {
	out := make([]drops.CartItem, len(items))
	for i, it := range items {
		out[i] = drops.CartItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Handle:    it.Handle,
			Image:     it.Image,
			Price:     it.Price,
			Quantity:  it.Quantity,
			LinePrice: it.LinePrice(),
			URL:       "/products/" + it.Handle,
		}
	}
	return out
}
