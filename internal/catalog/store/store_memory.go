package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"storefront/internal/catalog/ports"
	"storefront/pkg/platform/sentinel"
)

// InMemory is a Repository backed by a map, used for tests, the render CLI and
// deployments without a database.
type InMemory[T ports.Entity] struct {
	mu      sync.RWMutex
	byStore map[string]map[string]T
}

// NewInMemory creates an empty repository.
func NewInMemory[T ports.Entity]() *InMemory[T] {
	return &InMemory[T]{byStore: make(map[string]map[string]T)}
}

// Save inserts or replaces entities.
func (s *InMemory[T]) Save(_ context.Context, items ...T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		bucket, ok := s.byStore[item.EntityStoreID()]
		if !ok {
			bucket = make(map[string]T)
			s.byStore[item.EntityStoreID()] = bucket
		}
		bucket[item.EntityID()] = item
	}
	return nil
}

// Delete removes an entity; deleting an absent entity is not an error.
func (s *InMemory[T]) Delete(_ context.Context, storeID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byStore[storeID], id)
	return nil
}

func (s *InMemory[T]) Get(_ context.Context, storeID, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.byStore[storeID][id]
	if !ok {
		var zero T
		return zero, sentinel.ErrNotFound
	}
	return item, nil
}

func (s *InMemory[T]) List(_ context.Context, storeID string, q ports.Query) (ports.Page[T], error) {
	cursorAt, cursorID, err := ports.DecodeToken(q.Token)
	if err != nil {
		return ports.Page[T]{}, fmt.Errorf("list: %w", err)
	}

	s.mu.RLock()
	matched := make([]T, 0, len(s.byStore[storeID]))
	for _, item := range s.byStore[storeID] {
		if matches(item, q.Conditions) {
			matched = append(matched, item)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.EntityCreatedAt().Equal(b.EntityCreatedAt()) {
			return a.EntityID() > b.EntityID()
		}
		return a.EntityCreatedAt().After(b.EntityCreatedAt())
	})

	if q.Token != "" {
		start := len(matched)
		for i, item := range matched {
			if ports.Before(item.EntityCreatedAt(), item.EntityID(), cursorAt, cursorID) {
				start = i
				break
			}
		}
		matched = matched[start:]
	}

	page := ports.Page[T]{Items: matched}
	if q.Limit > 0 && len(matched) > q.Limit {
		last := matched[q.Limit-1]
		page.Items = matched[:q.Limit]
		page.NextToken = ports.EncodeToken(last.EntityCreatedAt(), last.EntityID())
	}
	return page, nil
}

func matches(item ports.Entity, conds []ports.Condition) bool {
	for _, c := range conds {
		v, ok := item.Field(c.Field)
		if !ok {
			return false
		}
		switch c.Op {
		case ports.OpEq:
			if v != c.Value {
				return false
			}
		case ports.OpContains:
			if !strings.Contains(strings.ToLower(v), strings.ToLower(c.Value)) {
				return false
			}
		case ports.OpIn:
			found := false
			for _, want := range c.Values {
				if v == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
