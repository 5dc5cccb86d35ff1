package models

import (
	"strconv"
	"time"
)

const (
	PageStatusPublished = "published"
	PageStatusDraft     = "draft"

	PageTypeStandard = "standard"
	PageTypePolicies = "policies"
)

// Page is a merchant content page (about, contact, policies).
type Page struct {
	ID              string    `json:"id"`
	StoreID         string    `json:"storeId"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Content         string    `json:"content"`
	Status          string    `json:"status"`
	IsVisible       bool      `json:"isVisible"`
	PageType        string    `json:"pageType"`
	MetaTitle       string    `json:"metaTitle,omitempty"`
	MetaDescription string    `json:"metaDescription,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Published reports whether the page is visible and published.
func (p *Page) Published() bool {
	return p.IsVisible && p.Status == PageStatusPublished
}

func (p *Page) EntityID() string           { return p.ID }
func (p *Page) EntityStoreID() string      { return p.StoreID }
func (p *Page) EntityCreatedAt() time.Time { return p.CreatedAt }

func (p *Page) Field(name string) (string, bool) {
	switch name {
	case "id":
		return p.ID, true
	case "slug":
		return p.Slug, true
	case "status":
		return p.Status, true
	case "isVisible":
		return strconv.FormatBool(p.IsVisible), true
	case "pageType":
		return p.PageType, true
	}
	return "", false
}
