package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/pkg/platform/sentinel"
)

// maxTxRetries bounds optimistic retries when a watched cart changes mid-update.
const maxTxRetries = 5

// RedisStore keeps carts as JSON with a Redis expiry equal to the cart lifetime.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
}

func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) key(storeID, sessionID string) string {
	return s.namespace + "carts:" + storeID + ":" + sessionID
}

// Create stores c with SETNX. If another request won the race the stored cart is returned.
func (s *RedisStore) Create(ctx context.Context, c *Cart) (*Cart, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(c.StoreID, c.SessionID), raw, Lifetime).Result()
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	if ok {
		return c.clone(), nil
	}
	return s.Find(ctx, c.StoreID, c.SessionID)
}

func (s *RedisStore) Find(ctx context.Context, storeID, sessionID string) (*Cart, error) {
	raw, err := s.client.Get(ctx, s.key(storeID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}
	return decodeCart(raw)
}

// Update runs fn inside WATCH/MULTI and retries when the cart changed concurrently.
// Each write restarts the cart lifetime.
func (s *RedisStore) Update(ctx context.Context, storeID, sessionID string, fn func(*Cart) error) (*Cart, error) {
	key := s.key(storeID, sessionID)
	var updated *Cart
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return sentinel.ErrNotFound
			}
			return err
		}
		c, err := decodeCart(raw)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		out, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode cart: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, ttlUntil(c.ExpiresAt))
			return nil
		})
		if err == nil {
			updated = c
		}
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update cart: %w", sentinel.ErrConflict)
}

func (s *RedisStore) Delete(ctx context.Context, storeID, sessionID string) error {
	if err := s.client.Del(ctx, s.key(storeID, sessionID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func decodeCart(raw []byte) (*Cart, error) {
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &c, nil
}

func ttlUntil(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return Lifetime
	}
	if d := time.Until(expiresAt); d > 0 {
		return d
	}
	return time.Second
}
