package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Product status values.
const (
	ProductStatusActive   = "active"
	ProductStatusDraft    = "draft"
	ProductStatusInactive = "inactive"
)

// Image is a product or collection image reference.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Variant is one purchasable option of a product.
type Variant struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Price     *float64          `json:"price,omitempty"`
	SKU       string            `json:"sku,omitempty"`
	Available bool              `json:"available"`
	Options   map[string]string `json:"options,omitempty"`
}

// Attribute is a merchant-defined product attribute such as size or color.
type Attribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Product is the business record a storefront renders. Owned by the merchant admin;
// read-only here.
type Product struct {
	ID             string      `json:"id"`
	StoreID        string      `json:"storeId"`
	Name           string      `json:"name"`
	Slug           string      `json:"slug,omitempty"`
	Description    string      `json:"description,omitempty"`
	Price          float64     `json:"price"`
	CompareAtPrice *float64    `json:"compareAtPrice,omitempty"`
	Images         []Image     `json:"images,omitempty"`
	Variants       []Variant   `json:"variants,omitempty"`
	Attributes     []Attribute `json:"attributes,omitempty"`
	Status         string      `json:"status"`
	Featured       bool        `json:"featured"`
	CollectionID   string      `json:"collectionId,omitempty"`
	Category       string      `json:"category,omitempty"`
	Quantity       int         `json:"quantity"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Handle is the explicit slug, or one derived from the name.
func (p *Product) Handle() string {
	if p.Slug != "" {
		return p.Slug
	}
	return Slugify(p.Name)
}

// IsActive reports whether the product can be shown on the storefront.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// Available reports whether any stock or variant is purchasable.
func (p *Product) Available() bool {
	if p.Quantity > 0 {
		return true
	}
	for _, v := range p.Variants {
		if v.Available {
			return true
		}
	}
	return false
}

// MarshalJSON stores the derived handle so document queries can filter on slug.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	out := plain(p)
	out.Slug = p.Handle()
	return json.Marshal(out)
}

func (p *Product) EntityID() string           { return p.ID }
func (p *Product) EntityStoreID() string      { return p.StoreID }
func (p *Product) EntityCreatedAt() time.Time { return p.CreatedAt }

// Field exposes the queryable fields by their document name.
func (p *Product) Field(name string) (string, bool) {
	switch name {
	case "id":
		return p.ID, true
	case "name":
		return p.Name, true
	case "nameLowercase":
		return strings.ToLower(p.Name), true
	case "slug":
		return p.Handle(), true
	case "status":
		return p.Status, true
	case "featured":
		return strconv.FormatBool(p.Featured), true
	case "collectionId":
		return p.CollectionID, true
	case "category":
		return p.Category, true
	}
	return "", false
}
