package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payments-webhook-layer/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisLookupCache implements LookupCache over Redis. Only non-secret lookup
// results go through it; secrets never touch the cache.
type RedisLookupCache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisLookupCache connects to Redis and returns a lookup cache.
func NewRedisLookupCache(ctx context.Context, addr string, logger zerolog.Logger) (ports.LookupCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisLookupCache{client: client, logger: logger}, nil
}

// Get unmarshals the cached value into v and reports whether it was found.
func (c *RedisLookupCache) Get(ctx context.Context, key string, v any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("cache entry for %s is unreadable: %w", key, err)
	}
	return true, nil
}

// Set stores a value under the key with an explicit TTL.
func (c *RedisLookupCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Delete removes a key.
func (c *RedisLookupCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}
