// Package cache holds the read-through caches of the portal: wrapped OA
// documents in Redis for verifier traffic and FTAs in process memory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const wrappedKeyPrefix = "tp:oa:wrapped:"

// WrappedDocCache stores wrapped OA documents by locator id.
type WrappedDocCache interface {
	Get(ctx context.Context, oaID string) ([]byte, bool, error)
	Set(ctx context.Context, oaID string, data []byte) error
	Invalidate(ctx context.Context, oaID string) error
}

// NewRedisClient connects to url. It returns nil when url is empty.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisWrappedCache keeps entries for ttl. A wrapped document never changes
// once stored, so the TTL only bounds memory.
type RedisWrappedCache struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisWrappedCache(client *redis.Client, ttl time.Duration) *RedisWrappedCache {
	return &RedisWrappedCache{client: client, ttl: ttl}
}

func (c *RedisWrappedCache) Get(ctx context.Context, oaID string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, wrappedKeyPrefix+oaID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisWrappedCache) Set(ctx context.Context, oaID string, data []byte) error {
	return c.client.Set(ctx, wrappedKeyPrefix+oaID, data, c.ttl).Err()
}

func (c *RedisWrappedCache) Invalidate(ctx context.Context, oaID string) error {
	return c.client.Del(ctx, wrappedKeyPrefix+oaID).Err()
}

// NopWrappedCache is used when Redis is not configured.
type NopWrappedCache struct{}

func (NopWrappedCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NopWrappedCache) Set(context.Context, string, []byte) error { return nil }

func (NopWrappedCache) Invalidate(context.Context, string) error { return nil }
