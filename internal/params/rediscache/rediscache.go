// Package rediscache stores calculation parameters in Redis so several
// service instances share one warm cache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/redis/go-redis/v9"
)

// Cache implements params.Cache on top of a Redis client.
type Cache struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// New wraps an existing client. An empty prefix uses constants.DefaultRedisKeyPrefix.
func New(client *redis.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = constants.DefaultRedisKeyPrefix
	}
	return &Cache{client: client, prefix: prefix, now: time.Now}
}

// Connect dials addr and verifies the connection with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// Key returns the Redis key for path.
func (c *Cache) Key(path params.BusinessPath) string {
	return c.prefix + string(path)
}

// Get loads the entry for path. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, path params.BusinessPath) (params.Entry, bool, error) {
	raw, err := c.client.Get(ctx, c.Key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return params.Entry{}, false, nil
	}
	if err != nil {
		return params.Entry{}, false, fmt.Errorf("failed to read %s: %w", c.Key(path), err)
	}

	var entry params.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return params.Entry{}, false, fmt.Errorf("failed to decode %s: %w", c.Key(path), err)
	}
	if entry.Expired(c.now()) {
		return params.Entry{}, false, nil
	}
	return entry, true, nil
}

// Set stores entry with a Redis TTL matching its ExpiresAt.
func (c *Cache) Set(ctx context.Context, path params.BusinessPath, entry params.Entry) error {
	ttl := entry.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode parameters for %s: %w", path, err)
	}
	if err := c.client.Set(ctx, c.Key(path), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Key(path), err)
	}
	return nil
}

// Clear deletes the entries of every known business path.
func (c *Cache) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(params.BusinessPaths()))
	for _, path := range params.BusinessPaths() {
		keys = append(keys, c.Key(path))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear parameters cache: %w", err)
	}
	return nil
}
