package commission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusKeyPrefix = "commission:status:"

// RedisCache keeps derived status rows in Redis. A miss or a decode failure
// simply falls through to recomputation.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, username string) (Status, bool, error) {
	raw, err := c.client.Get(ctx, statusKeyPrefix+username).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, false, nil
	}
	if err != nil {
		return Status{}, false, fmt.Errorf("cache get: %w", err)
	}

	var s Status
	if err := json.Unmarshal(raw, &s); err != nil {
		return Status{}, false, nil
	}
	return s, true, nil
}

func (c *RedisCache) Set(ctx context.Context, status Status) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, statusKeyPrefix+status.User, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, username string) error {
	if err := c.client.Del(ctx, statusKeyPrefix+username).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
