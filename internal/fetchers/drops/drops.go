// Package drops holds the template-ready views of business data. Fetchers cache these
// types; the renderer turns them into Liquid bindings with Drop.
package drops

import "time"

// Image is a product or collection image.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

func (i Image) Drop() map[string]any {
	return map[string]any{"url": i.URL, "src": i.URL, "alt": i.Alt}
}

// Variant is one purchasable option of a product.
type Variant struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Price       string            `json:"price"`
	PriceAmount float64           `json:"priceAmount"`
	SKU         string            `json:"sku,omitempty"`
	Available   bool              `json:"available"`
	Options     map[string]string `json:"options,omitempty"`
}

func (v Variant) Drop() map[string]any {
	opts := make(map[string]any, len(v.Options))
	for k, val := range v.Options {
		opts[k] = val
	}
	return map[string]any{
		"id":           v.ID,
		"title":        v.Title,
		"price":        v.Price,
		"price_amount": v.PriceAmount,
		"sku":          v.SKU,
		"available":    v.Available,
		"options":      opts,
	}
}

// Attribute is a merchant-defined option such as size or color.
type Attribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

func (a Attribute) Drop() map[string]any {
	values := make([]any, len(a.Values))
	for i, v := range a.Values {
		values[i] = v
	}
	return map[string]any{"name": a.Name, "values": values}
}

// Product is the template view of a product.
type Product struct {
	ID              string      `json:"id"`
	StoreID         string      `json:"storeId"`
	Title           string      `json:"title"`
	Handle          string      `json:"handle"`
	Description     string      `json:"description,omitempty"`
	Price           string      `json:"price"`
	PriceAmount     float64     `json:"priceAmount"`
	CompareAtPrice  string      `json:"compareAtPrice,omitempty"`
	CompareAtAmount float64     `json:"compareAtAmount,omitempty"`
	FeaturedImage   string      `json:"featuredImage,omitempty"`
	Images          []Image     `json:"images,omitempty"`
	Variants        []Variant   `json:"variants,omitempty"`
	Attributes      []Attribute `json:"attributes,omitempty"`
	Available       bool        `json:"available"`
	Quantity        int         `json:"quantity"`
	Status          string      `json:"status"`
	Category        string      `json:"category,omitempty"`
	CollectionID    string      `json:"collectionId,omitempty"`
	URL             string      `json:"url"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (p *Product) Drop() map[string]any {
	images := make([]any, len(p.Images))
	for i, img := range p.Images {
		images[i] = img.Drop()
	}
	variants := make([]any, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = v.Drop()
	}
	attributes := make([]any, len(p.Attributes))
	for i, a := range p.Attributes {
		attributes[i] = a.Drop()
	}
	d := map[string]any{
		"id":             p.ID,
		"title":          p.Title,
		"name":           p.Title,
		"handle":         p.Handle,
		"slug":           p.Handle,
		"description":    p.Description,
		"price":          p.Price,
		"price_amount":   p.PriceAmount,
		"featured_image": p.FeaturedImage,
		"images":         images,
		"variants":       variants,
		"attributes":     attributes,
		"available":      p.Available,
		"quantity":       p.Quantity,
		"status":         p.Status,
		"category":       p.Category,
		"collection_id":  p.CollectionID,
		"url":            p.URL,
	}
	if p.CompareAtPrice != "" {
		d["compare_at_price"] = p.CompareAtPrice
		d["compare_at_price_amount"] = p.CompareAtAmount
	}
	return d
}

// Collection is the template view of a collection and one page of its products.
type Collection struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Handle        string     `json:"handle"`
	Description   string     `json:"description,omitempty"`
	Image         string     `json:"image,omitempty"`
	URL           string     `json:"url"`
	Products      []*Product `json:"products,omitempty"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

func (c *Collection) Drop() map[string]any {
	return map[string]any{
		"id":             c.ID,
		"title":          c.Title,
		"handle":         c.Handle,
		"description":    c.Description,
		"image":          c.Image,
		"url":            c.URL,
		"products":       ProductList(c.Products),
		"products_count": len(c.Products),
	}
}

// ProductList converts products to a Liquid array.
func ProductList(products []*Product) []any {
	out := make([]any, len(products))
	for i, p := range products {
		out[i] = p.Drop()
	}
	return out
}

// CollectionList converts collections to a Liquid array.
func CollectionList(collections []*Collection) []any {
	out := make([]any, len(collections))
	for i, c := range collections {
		out[i] = c.Drop()
	}
	return out
}

// Page is the template view of a content page.
type Page struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Handle          string `json:"handle"`
	Content         string `json:"content"`
	PageType        string `json:"pageType"`
	URL             string `json:"url"`
	MetaTitle       string `json:"metaTitle,omitempty"`
	MetaDescription string `json:"metaDescription,omitempty"`
}

func (p *Page) Drop() map[string]any {
	return map[string]any{
		"id":               p.ID,
		"title":            p.Title,
		"handle":           p.Handle,
		"content":          p.Content,
		"page_type":        p.PageType,
		"url":              p.URL,
		"meta_title":       p.MetaTitle,
		"meta_description": p.MetaDescription,
	}
}

// PageList converts pages to a Liquid array.
func PageList(pages []*Page) []any {
	out := make([]any, len(pages))
	for i, p := range pages {
		out[i] = p.Drop()
	}
	return out
}

// Link is one resolved menu link.
type Link struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Type   string `json:"type"`
	Handle string `json:"handle,omitempty"`
}

func (l Link) Drop() map[string]any {
	return map[string]any{"title": l.Title, "url": l.URL, "type": l.Type, "handle": l.Handle}
}

// Menu is a navigation menu with visible links in display order.
type Menu struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
	IsMain bool   `json:"isMain"`
	Links  []Link `json:"links"`
}

func (m *Menu) Drop() map[string]any {
	links := make([]any, len(m.Links))
	for i, l := range m.Links {
		links[i] = l.Drop()
	}
	return map[string]any{"id": m.ID, "title": m.Title, "handle": m.Handle, "links": links}
}

// Navigation is every active menu of a store.
type Navigation struct {
	Menus      []*Menu `json:"menus"`
	MainMenu   *Menu   `json:"mainMenu,omitempty"`
	FooterMenu *Menu   `json:"footerMenu,omitempty"`
}

// Linklists indexes menus by handle, the way themes address them.
func (n *Navigation) Linklists() map[string]any {
	out := make(map[string]any, len(n.Menus))
	for _, m := range n.Menus {
		out[m.Handle] = m.Drop()
	}
	return out
}

// CartItem is one line of a cart.
type CartItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId,omitempty"`
	Title     string  `json:"title"`
	Handle    string  `json:"handle"`
	Image     string  `json:"image,omitempty"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	LinePrice float64 `json:"linePrice"`
	URL       string  `json:"url"`
}

func (i CartItem) Drop() map[string]any {
	return map[string]any{
		"id":         i.ID,
		"key":        i.ID,
		"product_id": i.ProductID,
		"variant_id": i.VariantID,
		"title":      i.Title,
		"handle":     i.Handle,
		"image":      i.Image,
		"price":      i.Price,
		"quantity":   i.Quantity,
		"line_price": i.LinePrice,
		"url":        i.URL,
	}
}

// Cart is the template view of a session cart.
type Cart struct {
	ID         string     `json:"id"`
	ItemCount  int        `json:"itemCount"`
	TotalPrice float64    `json:"totalPrice"`
	Currency   string     `json:"currency"`
	Items      []CartItem `json:"items"`
}

func (c *Cart) Drop() map[string]any {
	items := make([]any, len(c.Items))
	for i, it := range c.Items {
		items[i] = it.Drop()
	}
	return map[string]any{
		"id":          c.ID,
		"item_count":  c.ItemCount,
		"total_price": c.TotalPrice,
		"currency":    c.Currency,
		"items":       items,
	}
}

// Address is a checkout shipping or billing address.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

func (a Address) Drop() map[string]any {
	return map[string]any{
		"first_name": a.FirstName,
		"last_name":  a.LastName,
		"address1":   a.Address1,
		"address2":   a.Address2,
		"city":       a.City,
		"province":   a.Province,
		"zip":        a.Zip,
		"country":    a.Country,
		"phone":      a.Phone,
	}
}

// Customer is the checkout contact.
type Customer struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

func (c Customer) Drop() map[string]any {
	return map[string]any{"email": c.Email, "first_name": c.FirstName, "last_name": c.LastName, "phone": c.Phone}
}

// Checkout is the template view of a checkout session.
type Checkout struct {
	Token            string     `json:"token"`
	Status           string     `json:"status"`
	LineItems        []CartItem `json:"lineItems"`
	Subtotal         float64    `json:"subtotal"`
	Shipping         float64    `json:"shipping"`
	Tax              float64    `json:"tax"`
	Total            float64    `json:"total"`
	Currency         string     `json:"currency"`
	Customer         Customer   `json:"customer"`
	ShippingAddress  Address    `json:"shippingAddress"`
	BillingAddress   Address    `json:"billingAddress"`
	RequiresShipping bool       `json:"requiresShipping"`
	Note             string     `json:"note,omitempty"`
	ExpiresAt        time.Time  `json:"expiresAt"`
}

func (c *Checkout) Drop() map[string]any {
	items := make([]any, len(c.LineItems))
	for i, it := range c.LineItems {
		items[i] = it.Drop()
	}
	return map[string]any{
		"token":             c.Token,
		"status":            c.Status,
		"line_items":        items,
		"item_count":        len(c.LineItems),
		"subtotal_price":    c.Subtotal,
		"shipping_price":    c.Shipping,
		"tax_price":         c.Tax,
		"total_price":       c.Total,
		"currency":          c.Currency,
		"customer":          c.Customer.Drop(),
		"email":             c.Customer.Email,
		"shipping_address":  c.ShippingAddress.Drop(),
		"billing_address":   c.BillingAddress.Drop(),
		"requires_shipping": c.RequiresShipping,
		"note":              c.Note,
		"expires_at":        c.ExpiresAt.Format(time.RFC3339),
	}
}
