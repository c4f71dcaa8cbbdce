// Package redis implements the checkout attempt store on Redis, giving
// retried checkouts replay protection across process restarts.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eminaliyev/gift-api/internal/domain/checkout"
)

var _ checkout.AttemptStore = (*AttemptStore)(nil)

// AttemptStore stores checkout attempt records keyed by idempotency key.
// Records expire after the configured TTL; an expired record simply means a
// very late retry is treated as a fresh checkout.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// NewAttemptStore returns an AttemptStore using the given client and TTL.
func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func attemptKey(key string) string {
	return "checkout:attempt:" + key
}

// Get returns the stored attempt for the key, or nil when none exists.
func (s *AttemptStore) Get(ctx context.Context, key string) (*checkout.Attempt, error) {
	raw, err := s.client.Get(ctx, attemptKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting checkout attempt: %w", err)
	}

	var attempt checkout.Attempt
	if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
		return nil, fmt.Errorf("unmarshaling checkout attempt: %w", err)
	}
	return &attempt, nil
}

// Put stores the attempt, refreshing the TTL on every state transition.
func (s *AttemptStore) Put(ctx context.Context, key string, attempt checkout.Attempt) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshaling checkout attempt: %w", err)
	}
	if err := s.client.Set(ctx, attemptKey(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("setting checkout attempt: %w", err)
	}
	return nil
}
