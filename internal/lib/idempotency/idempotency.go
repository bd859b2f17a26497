// Package idempotency claims one-shot keys in Redis so that events delivered
// more than once are processed once.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store claims keys with SETNX.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Claim returns true when id was not seen within the TTL and is now owned by
// the caller.
func (s *Store) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(id), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key %s: %w", s.key(id), err)
	}
	return ok, nil
}

// Release forgets id so a redelivery is processed again.
func (s *Store) Release(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key %s: %w", s.key(id), err)
	}
	return nil
}
