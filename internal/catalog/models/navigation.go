package models

import (
	"strconv"
	"time"
)

// Menu item link types.
const (
	LinkTypePage       = "page"
	LinkTypeCollection = "collection"
	LinkTypeProduct    = "product"
	LinkTypeExternal   = "external"
	LinkTypeInternal   = "internal"
)

// Well-known menu handles.
const (
	MainMenuHandle   = "main-menu"
	FooterMenuHandle = "footer-menu"
)

// MenuItem is one link of a navigation menu.
type MenuItem struct {
	Label     string `json:"label"`
	Type      string `json:"type"`
	Handle    string `json:"handle,omitempty"`
	URL       string `json:"url,omitempty"`
	IsVisible bool   `json:"isVisible"`
	SortOrder int    `json:"sortOrder"`
}

// NavigationMenu is a merchant-owned menu.
type NavigationMenu struct {
	ID        string     `json:"id"`
	StoreID   string     `json:"storeId"`
	Name      string     `json:"name"`
	Handle    string     `json:"handle"`
	IsMain    bool       `json:"isMain"`
	IsActive  bool       `json:"isActive"`
	Items     []MenuItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (m *NavigationMenu) EntityID() string           { return m.ID }
func (m *NavigationMenu) EntityStoreID() string      { return m.StoreID }
func (m *NavigationMenu) EntityCreatedAt() time.Time { return m.CreatedAt }

func (m *NavigationMenu) Field(name string) (string, bool) {
	switch name {
	case "id":
		return m.ID, true
	case "handle":
		return m.Handle, true
	case "isActive":
		return strconv.FormatBool(m.IsActive), true
	case "isMain":
		return strconv.FormatBool(m.IsMain), true
	}
	return "", false
}
