package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/pkg/platform/sentinel"
)

// Store persists checkout sessions by token.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Find(ctx context.Context, token string) (*Session, error)
}

type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[string]Session)}
}

func (m *InMemory) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = *s
	return nil
}

func (m *InMemory) Find(_ context.Context, token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &s, nil
}

// RedisStore keeps sessions until their expiry plus Retention.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
}

func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

func (r *RedisStore) key(token string) string {
	return r.namespace + "checkouts:" + token
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode checkout: %w", err)
	}
	ttl := time.Until(s.ExpiresAt.Add(Retention))
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := r.client.Set(ctx, r.key(s.Token), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save checkout: %w", err)
	}
	return nil
}

func (r *RedisStore) Find(ctx context.Context, token string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find checkout: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout: %w", err)
	}
	return &s, nil
}
