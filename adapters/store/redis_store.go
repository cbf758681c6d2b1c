package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/widgetml/gatekeeper/ports"
)

// RedisStore is a Redis implementation of the RevocationStore interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.RevocationStore {
	return &RedisStore{
		client: client,
		prefix: "gatekeeper:tokens:",
	}
}

// Set writes a key with a value and expiration time
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write revocation entry: %w", err)
	}

	return nil
}

// Get retrieves a value by key
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read revocation entry: %w", err)
	}

	return value, true, nil
}

// SetNX atomically claims a key. The conditional write happens inside
// Redis, so two concurrent presentations of a single-use token race safely.
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	won, err := s.client.SetNX(ctx, s.prefix+key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim revocation entry: %w", err)
	}

	return won, nil
}
