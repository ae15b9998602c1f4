package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"multisearch/internal/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "catalog:"

// RedisStore is the subset of *redis.Client used by Cache.
type RedisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cache keeps field catalogs in Redis in front of another Supplier.
// A broken cache entry is an error; an unreachable Redis is not.
type Cache struct {
	Store RedisStore
	Next  Supplier
	TTL   time.Duration
}

func CacheKey(database, table string) string {
	return cacheKeyPrefix + database + "." + table
}

func (c Cache) GetFields(ctx context.Context, database, table string) ([]FieldDescriptor, error) {
	key := CacheKey(database, table)

	cached, err := c.Store.Get(ctx, key).Result()
	switch {
	case err == nil:
		var fields []FieldDescriptor
		if err := json.Unmarshal([]byte(cached), &fields); err != nil {
			return nil, fmt.Errorf("invalid field catalog in Redis for %s: %w", key, err)
		}
		return fields, nil
	case errors.Is(err, redis.Nil):
	default:
		logger.Warn("catalog_cache_get_failed", map[string]any{"key": key, "error": err.Error()})
	}

	fields, err := c.Next.GetFields(ctx, database, table)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal field catalog: %w", err)
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if err := c.Store.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Warn("catalog_cache_set_failed", map[string]any{"key": key, "error": err.Error()})
	}
	return fields, nil
}

// FlushCatalogs removes every cached field catalog.
func FlushCatalogs(ctx context.Context, rdb *redis.Client) error {
	iter := rdb.Scan(ctx, 0, cacheKeyPrefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	return nil
}
