// Package cache provides the redis-backed short code to URL cache. It is a
// derived, re-populatable view over the durable store: callers treat every
// error as degradation and fall back to the store path.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type LinkCache struct {
	client *redis.Client
}

// New builds a cache over the given redis server. The connection is
// established lazily; Ping is available for a startup health check.
func New(addr, password string, db int) *LinkCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &LinkCache{client: client}
}

// Get retrieves the cached URL for a short code. A miss is reported through
// the second return value, not as an error.
func (c *LinkCache) Get(ctx context.Context, shortCode string) (string, bool, error) {
	const op = "cache.LinkCache.Get"

	url, err := c.client.Get(ctx, shortCode).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("%s: failed to get cache entry: %w", op, err)
	}

	return url, true, nil
}

// Set stores a short code to URL mapping. The TTL must match the link's
// remaining lifetime at insertion time; zero means the entry never expires.
func (c *LinkCache) Set(ctx context.Context, shortCode, url string, ttl time.Duration) error {
	const op = "cache.LinkCache.Set"

	if err := c.client.Set(ctx, shortCode, url, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set cache entry: %w", op, err)
	}

	return nil
}

// Invalidate drops the entries for the given short codes.
func (c *LinkCache) Invalidate(ctx context.Context, shortCodes ...string) error {
	const op = "cache.LinkCache.Invalidate"

	if len(shortCodes) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, shortCodes...).Err(); err != nil {
		return fmt.Errorf("%s: failed to invalidate cache entries: %w", op, err)
	}

	return nil
}

// Ping checks that the redis server is reachable.
func (c *LinkCache) Ping(ctx context.Context) error {
	const op = "cache.LinkCache.Ping"

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: redis unreachable: %w", op, err)
	}

	return nil
}

func (c *LinkCache) Close() error {
	return c.client.Close()
}
