package db

import (
	"context"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

// InitRedis connects the field catalog cache; an empty addr leaves RDB nil
// and the service runs without a cache.
func InitRedis(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	RDB = redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return RDB.Ping(ctx).Err()
}
