package checkout

import (
	"time"

	"storefront/internal/fetchers/cart"
)

// Status is the lifecycle state of a checkout session.
type Status string

const (
	StatusOpen      Status = "open"
	StatusExpired   Status = "expired"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

const (
	// Lifetime is how long an open session accepts changes.
	Lifetime = 2 * time.Hour
	// Retention keeps finished and expired sessions readable after their lifetime.
	Retention = 24 * time.Hour

	tokenPrefix = "fs_"
)

type Customer struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type Address struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Address1  string `json:"address1,omitempty"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city,omitempty"`
	Province  string `json:"province,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Session is a checkout built from a cart snapshot. Items and totals never change after
// Start; customer details can be updated while the session is open.
type Session struct {
	Token           string      `json:"token"`
	StoreID         string      `json:"storeId"`
	CartID          string      `json:"cartId"`
	SessionID       string      `json:"sessionId"`
	Status          Status      `json:"status"`
	Currency        string      `json:"currency"`
	Items           []cart.Item `json:"items"`
	Subtotal        float64     `json:"subtotal"`
	ShippingCost    float64     `json:"shippingCost"`
	TaxAmount       float64     `json:"taxAmount"`
	Total           float64     `json:"total"`
	Customer        *Customer   `json:"customer,omitempty"`
	ShippingAddress *Address    `json:"shippingAddress,omitempty"`
	BillingAddress  *Address    `json:"billingAddress,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	ExpiresAt       time.Time   `json:"expiresAt"`
	CompletedAt     *time.Time  `json:"completedAt,omitempty"`
}

// Expired reports whether an open session outlived its lifetime at now.
func (s *Session) Expired(now time.Time) bool {
	return s.Status == StatusOpen && !now.Before(s.ExpiresAt)
}

// EffectiveStatus is the status as seen at now: open sessions past their expiry read
// as expired.
func (s *Session) EffectiveStatus(now time.Time) Status {
	if s.Expired(now) {
		return StatusExpired
	}
	return s.Status
}

// Details are the customer-provided fields of a session.
type Details struct {
	Customer        *Customer `json:"customer,omitempty"`
	ShippingAddress *Address  `json:"shippingAddress,omitempty"`
	BillingAddress  *Address  `json:"billingAddress,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
}

func (s *Session) apply(d Details) {
	if d.Customer != nil {
		c := *d.Customer
		s.Customer = &c
	}
	if d.ShippingAddress != nil {
		a := *d.ShippingAddress
		s.ShippingAddress = &a
	}
	if d.BillingAddress != nil {
		a := *d.BillingAddress
		s.BillingAddress = &a
	}
	if d.Notes != nil {
		s.Notes = *d.Notes
	}
}
