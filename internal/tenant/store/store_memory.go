package store

import (
	"context"
	"strings"
	"sync"

	"storefront/internal/tenant/models"
	"storefront/pkg/platform/sentinel"
)

// InMemory keeps store records in process with hostname indexes.
type InMemory struct {
	mu            sync.RWMutex
	byID          map[string]*models.Store
	byCustom      map[string]string
	byDefaultHost map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:          make(map[string]*models.Store),
		byCustom:      make(map[string]string),
		byDefaultHost: make(map[string]string),
	}
}

// Save inserts or replaces a store record and reindexes its hostnames.
func (s *InMemory) Save(_ context.Context, store *models.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byID[store.ID]; ok {
		delete(s.byCustom, strings.ToLower(prev.CustomDomain))
		delete(s.byDefaultHost, strings.ToLower(prev.DefaultDomain))
	}
	stored := *store
	s.byID[store.ID] = &stored
	if store.CustomDomain != "" {
		s.byCustom[strings.ToLower(store.CustomDomain)] = store.ID
	}
	if store.DefaultDomain != "" {
		s.byDefaultHost[strings.ToLower(store.DefaultDomain)] = store.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, storeID string) (*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(storeID)
}

func (s *InMemory) FindByCustomDomain(_ context.Context, host string) (*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(s.byCustom[host])
}

func (s *InMemory) FindByDefaultDomain(_ context.Context, host string) (*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(s.byDefaultHost[host])
}

// copyOf must be called with the read lock held.
func (s *InMemory) copyOf(storeID string) (*models.Store, error) {
	stored, ok := s.byID[storeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *stored
	return &out, nil
}
