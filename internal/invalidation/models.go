package invalidation

// ChangeType names a business-data change that stale cache entries must follow.
type ChangeType string

const (
	ProductCreated       ChangeType = "product_created"
	ProductUpdated       ChangeType = "product_updated"
	ProductDeleted       ChangeType = "product_deleted"
	CollectionCreated    ChangeType = "collection_created"
	CollectionUpdated    ChangeType = "collection_updated"
	CollectionDeleted    ChangeType = "collection_deleted"
	PageCreated          ChangeType = "page_created"
	PageUpdated          ChangeType = "page_updated"
	PageDeleted          ChangeType = "page_deleted"
	NavigationUpdated    ChangeType = "navigation_updated"
	TemplateUpdated      ChangeType = "template_updated"
	StoreSettingsUpdated ChangeType = "store_settings_updated"
	DomainUpdated        ChangeType = "domain_updated"
)

// ChangeTypes lists every accepted change type.
var ChangeTypes = []ChangeType{
	ProductCreated, ProductUpdated, ProductDeleted,
	CollectionCreated, CollectionUpdated, CollectionDeleted,
	PageCreated, PageUpdated, PageDeleted,
	NavigationUpdated, TemplateUpdated, StoreSettingsUpdated, DomainUpdated,
}

// Event is one invalidation request. It is also the JSON payload of invalidation
// events on the message bus.
type Event struct {
	StoreID    string     `json:"storeId"`
	ChangeType ChangeType `json:"changeType"`
	EntityID   string     `json:"entityId,omitempty"`
	EntityIDs  []string   `json:"entityIds,omitempty"`
}

// Result reports what an invalidation touched.
type Result struct {
	ChangeType ChangeType `json:"changeType"`
	// Removed counts entries dropped by prefix deletions plus exact keys deleted.
	Removed int `json:"removed"`
}

// plan is the set of exact keys and prefixes one change drops.
type plan struct {
	keys     []string
	prefixes []string
}
