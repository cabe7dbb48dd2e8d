package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BoardPrefix   = "board:"
	revokedPrefix = "revoked:"
)

// Cache is a thin JSON layer over Redis. A nil or disabled Cache is valid:
// reads miss and writes are dropped, so callers never branch on it.
type Cache struct {
	rdb *redis.Client
}

// Connect returns a disabled cache when addr is empty or Redis does not answer.
func Connect(ctx context.Context, addr string) *Cache {
	if addr == "" {
		slog.Warn("REDIS_ADDR is not set, caching is disabled")
		return &Cache{}
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis unreachable, caching is disabled", "addr", addr, "error", err)
		_ = rdb.Close()
		return &Cache{}
	}
	slog.Info("connected to redis", "addr", addr)
	return &Cache{rdb: rdb}
}

func New(rdb *redis.Client) *Cache { return &Cache{rdb: rdb} }

func (c *Cache) Enabled() bool { return c != nil && c.rdb != nil }

// GetJSON decodes the cached value into dst and reports whether it was found.
func (c *Cache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

// DeletePrefix drops every key starting with prefix.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	if !c.Enabled() {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateBoard forgets every cached board snapshot.
func (c *Cache) InvalidateBoard(ctx context.Context) {
	if err := c.DeletePrefix(ctx, BoardPrefix); err != nil {
		slog.Warn("board cache invalidation failed", "error", err)
	}
}

// RevokeToken blacklists an access token id until it would have expired anyway.
func (c *Cache) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if !c.Enabled() || ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

func (c *Cache) IsRevoked(ctx context.Context, jti string) bool {
	if !c.Enabled() {
		return false
	}
	n, err := c.rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		slog.Error("redis EXISTS failed", "error", err)
		return false
	}
	return n > 0
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
