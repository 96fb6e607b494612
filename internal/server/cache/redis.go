package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/perfcanvas/scriptstore/internal/server/models"
)

const keyPrefix = "file_entries:"

// RedisCache implements EntryCache on a shared Redis instance so that
// several service replicas observe the same listings and evictions.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache returns a cache backed by the given Redis address.
func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    DefaultTTL,
	}
}

func key(userID string) string {
	return keyPrefix + userID
}

func (c *RedisCache) Get(ctx context.Context, userID string) ([]models.FileEntry, bool, error) {
	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", userID, err)
	}

	var entries []models.FileEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// A corrupt value behaves like a miss; the next Set overwrites it.
		return nil, false, nil
	}
	return entries, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, entries []models.FileEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", userID, err)
	}
	if err := c.client.Set(ctx, key(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", userID, err)
	}
	return nil
}

func (c *RedisCache) Evict(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("cache evict %s: %w", userID, err)
	}
	return nil
}
