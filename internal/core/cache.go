package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a generated reply is reused.
const DefaultCacheTTL = time.Hour

// ResponseCache maps fingerprints to previously generated replies. Entries
// expire after a fixed TTL owned by the implementation. Implementations must be
// safe for concurrent use.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, reply string) error
}

// MemoryCache is an in-process ResponseCache. maxEntries <= 0 leaves it bounded
// by TTL only; a positive value adds LRU eviction on top.
type MemoryCache struct {
	lru *expirable.LRU[string, string]
}

func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &MemoryCache{lru: expirable.NewLRU[string, string](maxEntries, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	reply, ok := c.lru.Get(key)
	return reply, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key, reply string) error {
	c.lru.Add(key, reply)
	return nil
}

func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// RedisCache shares replies across server instances through Redis key expiry.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	reply, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return reply, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, reply string) error {
	if err := c.client.Set(ctx, key, reply, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
