// Package redis implements the status store port on top of Redis, using
// per-key TTLs for record expiry exactly the way the protocol expects:
// an expired record is a plain miss.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tolaton/genqueue/internal/config"
	"github.com/tolaton/genqueue/internal/store"
)

// StatusStore is a Redis-backed store.StatusStore.
type StatusStore struct {
	client redis.UniversalClient
}

var _ store.StatusStore = (*StatusStore)(nil)

// New creates a status store over an existing Redis client. The client is
// injected so connection and retry policy stay outside the store.
func New(client redis.UniversalClient) *StatusStore {
	return &StatusStore{client: client}
}

// Connect dials Redis with the given configuration and verifies the
// connection with a ping before returning a store over it.
func Connect(ctx context.Context, cfg config.RedisConfig) (*StatusStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: ping failed: %v", store.ErrUnavailable, err)
	}

	return New(client), nil
}

// Set writes the value under key with the given TTL, replacing any
// previous value and resetting its expiry.
func (s *StatusStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", store.ErrUnavailable, key, err)
	}
	return nil
}

// Get reads the value under key. A Redis miss (absent or expired key)
// maps to store.ErrNotFound; any other failure wraps store.ErrUnavailable.
func (s *StatusStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get %s: %v", store.ErrUnavailable, key, err)
	}
	return data, nil
}

// Close releases the underlying client connections.
func (s *StatusStore) Close() error {
	return s.client.Close()
}
