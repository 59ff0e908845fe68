package musicbrainz

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the connection used by the Redis recording cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// OpenRedis connects to Redis and verifies the connection with a ping.
func OpenRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
