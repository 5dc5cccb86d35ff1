package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Collection groups products for merchandising.
type Collection struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"storeId"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	IsActive    bool      `json:"isActive"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Handle is the explicit slug, or one derived from the title.
func (c *Collection) Handle() string {
	if c.Slug != "" {
		return c.Slug
	}
	return Slugify(c.Title)
}

func (c Collection) MarshalJSON() ([]byte, error) {
	type plain Collection
	out := plain(c)
	out.Slug = c.Handle()
	return json.Marshal(out)
}

func (c *Collection) EntityID() string           { return c.ID }
func (c *Collection) EntityStoreID() string      { return c.StoreID }
func (c *Collection) EntityCreatedAt() time.Time { return c.CreatedAt }

func (c *Collection) Field(name string) (string, bool) {
	switch name {
	case "id":
		return c.ID, true
	case "title":
		return c.Title, true
	case "slug":
		return c.Handle(), true
	case "isActive":
		return strconv.FormatBool(c.IsActive), true
	}
	return "", false
}
