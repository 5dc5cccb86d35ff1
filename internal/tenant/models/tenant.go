package models

import "time"

// StoreStatus is the lifecycle state of a merchant store.
type StoreStatus string

const (
	StoreStatusActive   StoreStatus = "active"
	StoreStatusInactive StoreStatus = "inactive"
)

// DefaultCurrency is used when a store has no currency configured.
const DefaultCurrency = "COP"

// Store is a merchant tenant bound to one or more hostnames.
//
// Invariants:
//   - DefaultDomain is the platform subdomain and is always set
//   - CustomDomain is optional and only routes traffic once verified by the platform
//   - Only active stores are rendered; inactive stores resolve but fail with StoreNotActive
type Store struct {
	ID             string      `json:"storeId"`
	UserID         string      `json:"userId"`
	Name           string      `json:"storeName"`
	Description    string      `json:"storeDescription,omitempty"`
	Logo           string      `json:"storeLogo,omitempty"`
	Favicon        string      `json:"storeFavicon,omitempty"`
	Banner         string      `json:"storeBanner,omitempty"`
	Currency       string      `json:"storeCurrency,omitempty"`
	ActiveThemeID  string      `json:"activeThemeId,omitempty"`
	Status         StoreStatus `json:"storeStatus"`
	CustomDomain   string      `json:"customDomain,omitempty"`
	DefaultDomain  string      `json:"defaultDomain"`
	DomainVerified bool        `json:"domainVerified"`
	ContactEmail   string      `json:"contactEmail,omitempty"`
	ContactPhone   string      `json:"contactPhone,omitempty"`
	Address        string      `json:"storeAdress,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

func (s *Store) IsActive() bool {
	return s.Status == StoreStatusActive
}

// CurrencyOrDefault returns the store currency, falling back to COP.
func (s *Store) CurrencyOrDefault() string {
	if s.Currency == "" {
		return DefaultCurrency
	}
	return s.Currency
}

// PrimaryDomain is the hostname canonical URLs point at.
func (s *Store) PrimaryDomain() string {
	if s.CustomDomain != "" && s.DomainVerified {
		return s.CustomDomain
	}
	return s.DefaultDomain
}
