// Package checkout builds checkout sessions from cart snapshots. Sessions are never
// cached: every read goes to the session store.
package checkout

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"storefront/internal/fetchers"
	"storefront/internal/fetchers/cart"
	"storefront/internal/fetchers/drops"
	tenantmodels "storefront/internal/tenant/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// CartSource reads the cart a checkout starts from and empties it on completion.
type CartSource interface {
	Current(ctx context.Context, storeID, sessionID string) (*cart.Cart, error)
	Clear(ctx context.Context, storeID, sessionID string) (*cart.Cart, error)
}

type Service struct {
	store  Store
	carts  CartSource
	logger *slog.Logger

	// mu serializes read-modify-write of sessions within the process.
	mu sync.Mutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, carts CartSource, opts ...Option) *Service {
	s := &Service{store: store, carts: carts, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start snapshots the session's cart into a new open checkout.
func (s *Service) Start(ctx context.Context, storeID, sessionID string, details Details) (*Session, error) {
	c, err := s.carts.Current(ctx, storeID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "cart is empty")
	}
	token, err := NewToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create checkout")
	}

	now := requestcontext.Now(ctx)
	currency := c.Currency
	if currency == "" {
		currency = tenantmodels.DefaultCurrency
	}
	subtotal := c.Total()
	session := &Session{
		Token:     token,
		StoreID:   storeID,
		CartID:    c.ID,
		SessionID: sessionID,
		Status:    StatusOpen,
		Currency:  currency,
		Items:     append([]cart.Item(nil), c.Items...),
		Subtotal:  subtotal,
		Total:     subtotal,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(Lifetime),
	}
	session.apply(details)
	if err := s.store.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save checkout")
	}
	s.logger.InfoContext(ctx, "checkout started",
		"store_id", storeID,
		"cart_id", c.ID,
		"items", len(session.Items),
	)
	return session, nil
}

// Get returns the session with its effective status. Sessions of other stores are
// not found.
func (s *Service) Get(ctx context.Context, storeID, token string) (*Session, error) {
	session, err := s.find(ctx, storeID, token)
	if err != nil {
		return nil, err
	}
	session.Status = session.EffectiveStatus(requestcontext.Now(ctx))
	return session, nil
}

// GetByToken returns the template view of a session.
func (s *Service) GetByToken(ctx context.Context, storeID, token string) (*drops.Checkout, error) {
	session, err := s.Get(ctx, storeID, token)
	if err != nil {
		return nil, err
	}
	return ToDrop(session), nil
}

// UpdateDetails sets customer, addresses and notes on an open session.
func (s *Service) UpdateDetails(ctx context.Context, storeID, token string, d Details) (*Session, error) {
	return s.transition(ctx, storeID, token, func(session *Session) error {
		session.apply(d)
		return nil
	})
}

// Complete closes an open session and empties the cart it came from. The customer
// email must be known by then.
func (s *Service) Complete(ctx context.Context, storeID, token string) (*Session, error) {
	session, err := s.transition(ctx, storeID, token, func(session *Session) error {
		if session.Customer == nil || strings.TrimSpace(session.Customer.Email) == "" {
			return dErrors.New(dErrors.CodeBadRequest, "customer email is required")
		}
		now := requestcontext.Now(ctx)
		session.Status = StatusCompleted
		session.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.carts.Clear(ctx, storeID, session.SessionID); err != nil {
		s.logger.WarnContext(ctx, "cart not cleared after checkout",
			"store_id", storeID,
			"cart_id", session.CartID,
			"error", err,
		)
	}
	return session, nil
}

func (s *Service) Cancel(ctx context.Context, storeID, token string) (*Session, error) {
	return s.transition(ctx, storeID, token, func(session *Session) error {
		session.Status = StatusCancelled
		return nil
	})
}

// transition applies fn to an open session. An open session past its expiry is marked
// expired and rejected.
func (s *Service) transition(ctx context.Context, storeID, token string, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.find(ctx, storeID, token)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if session.Expired(now) {
		session.Status = StatusExpired
		session.UpdatedAt = now
		if err := s.store.Save(ctx, session); err != nil {
			s.logger.WarnContext(ctx, "failed to mark checkout expired", "store_id", storeID, "error", err)
		}
		return nil, dErrors.Wrap(sentinel.ErrExpired, dErrors.CodeExpired, "checkout session expired")
	}
	if session.Status != StatusOpen {
		return nil, dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInvalidState,
			fmt.Sprintf("checkout session is %s", session.Status))
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = now
	if err := s.store.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save checkout")
	}
	return session, nil
}

func (s *Service) find(ctx context.Context, storeID, token string) (*Session, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, dErrors.New(dErrors.CodeNotFound, "checkout session not found")
	}
	session, err := s.store.Find(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "checkout session not found")
		}
		return nil, fetchers.TranslateError(err, "checkout session")
	}
	if session.StoreID != storeID {
		return nil, dErrors.New(dErrors.CodeNotFound, "checkout session not found")
	}
	return session, nil
}

// NewToken returns "fs_" followed by 16 random bytes in unpadded base64url.
func NewToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// ToDrop converts a session into its template view.
func ToDrop(s *Session) *drops.Checkout {
	out := &drops.Checkout{
		Token:            s.Token,
		Status:           string(s.Status),
		LineItems:        cart.ItemViews(s.Items),
		Subtotal:         s.Subtotal,
		Shipping:         s.ShippingCost,
		Tax:              s.TaxAmount,
		Total:            s.Total,
		Currency:         s.Currency,
		RequiresShipping: len(s.Items) > 0,
		Note:             s.Notes,
		ExpiresAt:        s.ExpiresAt,
	}
	if s.Customer != nil {
		out.Customer = drops.Customer{Email: s.Customer.Email, FirstName: s.Customer.FirstName, LastName: s.Customer.LastName, Phone: s.Customer.Phone}
	}
	if s.ShippingAddress != nil {
		out.ShippingAddress = addressDrop(*s.ShippingAddress)
	}
	if s.BillingAddress != nil {
		out.BillingAddress = addressDrop(*s.BillingAddress)
	}
	return out
}

func addressDrop(a Address) drops.Address {
	return drops.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		Province:  a.Province,
		Zip:       a.Zip,
		Country:   a.Country,
		Phone:     a.Phone,
	}
}
