package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "purposepay:pause:"

// RedisStore shares pause flags between server replicas. A flag is present
// while the module is paused.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SetPaused(ctx context.Context, module string, paused bool) error {
	key := keyPrefix + module
	var err error
	if paused {
		err = s.client.Set(ctx, key, "1", 0).Err()
	} else {
		err = s.client.Del(ctx, key).Err()
	}
	if err != nil {
		return fmt.Errorf("set pause flag %s: %w", module, err)
	}
	return nil
}

func (s *RedisStore) IsPaused(ctx context.Context, module string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+module).Result()
	if err != nil {
		return false, fmt.Errorf("read pause flag %s: %w", module, err)
	}
	return n > 0, nil
}
