package cart

import "time"

// Lifetime is how long an untouched cart is kept.
const Lifetime = 30 * 24 * time.Hour

// Item is one cart line. Title, price and image are snapshots taken when the item
// was added.
type Item struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId,omitempty"`
	Title     string  `json:"title"`
	Handle    string  `json:"handle"`
	Image     string  `json:"image,omitempty"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// LinePrice is price times quantity.
func (i Item) LinePrice() float64 {
	return i.Price * float64(i.Quantity)
}

// Cart is a session-scoped cart of one store.
type Cart struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	SessionID string    `json:"sessionId"`
	Currency  string    `json:"currency"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ItemCount is the sum of quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Total is the sum of line prices.
func (c *Cart) Total() float64 {
	total := 0.0
	for _, it := range c.Items {
		total += it.LinePrice()
	}
	return total
}

// Expired reports whether the cart outlived its lifetime at now.
func (c *Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

func (c *Cart) find(itemID string) int {
	for i, it := range c.Items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) findProduct(productID, variantID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID && it.VariantID == variantID {
			return i
		}
	}
	return -1
}

func (c *Cart) clone() *Cart {
	out := *c
	out.Items = append([]Item(nil), c.Items...)
	return &out
}
