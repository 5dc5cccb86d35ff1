package cart

import (
	"context"
	"sync"
	"time"

	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// Store persists carts by (store id, session id).
//
// Create is insert-if-absent: when a cart already exists for the session the existing
// cart is returned, so concurrent creates converge to one cart. Update applies fn to the
// current cart atomically and returns sentinel.ErrNotFound when there is none.
type Store interface {
	Create(ctx context.Context, c *Cart) (*Cart, error)
	Find(ctx context.Context, storeID, sessionID string) (*Cart, error)
	Update(ctx context.Context, storeID, sessionID string, fn func(*Cart) error) (*Cart, error)
	Delete(ctx context.Context, storeID, sessionID string) error
}

type sessionKey struct {
	storeID   string
	sessionID string
}

// InMemory is a mutex-guarded cart store. Carts past their expiry at the request time
// read as absent.
type InMemory struct {
	mu    sync.Mutex
	carts map[sessionKey]*Cart
}

func NewInMemory() *InMemory {
	return &InMemory{carts: make(map[sessionKey]*Cart)}
}

// live returns the stored cart unless it expired at now. Callers hold mu.
func (s *InMemory) live(k sessionKey, now time.Time) (*Cart, bool) {
	c, ok := s.carts[k]
	if !ok {
		return nil, false
	}
	if c.Expired(now) {
		delete(s.carts, k)
		return nil, false
	}
	return c, true
}

func (s *InMemory) Create(ctx context.Context, c *Cart) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sessionKey{c.StoreID, c.SessionID}
	if existing, ok := s.live(k, requestcontext.Now(ctx)); ok {
		return existing.clone(), nil
	}
	s.carts[k] = c.clone()
	return c.clone(), nil
}

func (s *InMemory) Find(ctx context.Context, storeID, sessionID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.live(sessionKey{storeID, sessionID}, requestcontext.Now(ctx))
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.clone(), nil
}

func (s *InMemory) Update(ctx context.Context, storeID, sessionID string, fn func(*Cart) error) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sessionKey{storeID, sessionID}
	c, ok := s.live(k, requestcontext.Now(ctx))
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next := c.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.carts[k] = next
	return next.clone(), nil
}

func (s *InMemory) Delete(_ context.Context, storeID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionKey{storeID, sessionID})
	return nil
}
