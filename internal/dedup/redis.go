package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore is the shared remote backend. Keys carry a dummy value; the
// TTL on the key itself is the whole point.
type redisStore struct {
	client *redis.Client
}

func newRedisStore(client *redis.Client) *redisStore {
	return &redisStore{client: client}
}

func (s *redisStore) Insert(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, "", ttl).Err(); err != nil {
		return fmt.Errorf("dedup: redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Remove(ctx context.Context, key string) (bool, error) {
	deleted, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: redis del: %w", err)
	}
	return deleted > 0, nil
}
