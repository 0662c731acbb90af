package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"haven/pkg/platform/sentinel"
)

// RedisStore persists settings in Redis. Recommended when the companion
// backend hosts multiple app instances that must agree on mode.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("settings key %q: %w", key, sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("settings get %q: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("settings set %q: %w", key, err)
	}
	return nil
}
