package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements DurableKeyValueStore on a Redis backend. Draft
// records have no TTL: a draft must outlive reloads and crashes and is
// removed only by an explicit Clear after a successful submission.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s%s", s.prefix, key)
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if s.client == nil {
		return "", ErrNotAvailable
	}

	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store get error: %w", err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value string) error {
	if s.client == nil {
		return ErrNotAvailable
	}

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("store set error: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if s.client == nil {
		return ErrNotAvailable
	}

	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("store remove error: %w", err)
	}
	return nil
}

// Ping verifies connectivity, used by health checks and as a cheap
// connectivity probe.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return ErrNotAvailable
	}

	if _, err := s.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	return nil
}
