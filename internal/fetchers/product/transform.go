package product

import (
	"storefront/internal/catalog/models"
	"storefront/internal/fetchers/drops"
)

// ToDrop converts a product record into its template view.
func ToDrop(p *models.Product) *drops.Product {
	handle := p.Handle()
	d := &drops.Product{
		ID:           p.ID,
		StoreID:      p.StoreID,
		Title:        p.Name,
		Handle:       handle,
		Description:  p.Description,
		Price:        drops.FormatMoney(p.Price),
		PriceAmount:  p.Price,
		Available:    p.Available(),
		Quantity:     p.Quantity,
		Status:       p.Status,
		Category:     p.Category,
		CollectionID: p.CollectionID,
		URL:          "/products/" + handle,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.CompareAtPrice != nil {
		d.CompareAtPrice = drops.FormatMoney(*p.CompareAtPrice)
		d.CompareAtAmount = *p.CompareAtPrice
	}
	for _, img := range p.Images {
		if img.URL == "" {
			continue
		}
		alt := img.Alt
		if alt == "" {
			alt = p.Name
		}
		d.Images = append(d.Images, drops.Image{URL: img.URL, Alt: alt})
	}
	if len(d.Images) > 0 {
		d.FeaturedImage = d.Images[0].URL
	}
	for _, v := range p.Variants {
		price := p.Price
		if v.Price != nil {
			price = *v.Price
		}
		d.Variants = append(d.Variants, drops.Variant{
			ID:          v.ID,
			Title:       v.Title,
			Price:       drops.FormatMoney(price),
			PriceAmount: price,
			SKU:         v.SKU,
			Available:   v.Available,
			Options:     v.Options,
		})
	}
	for _, a := range p.Attributes {
		d.Attributes = append(d.Attributes, drops.Attribute{Name: a.Name, Values: a.Values})
	}
	return d
}
