package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCache stores entries in Redis with per-key expiry; no sweeper is
// needed since Redis evicts on TTL itself.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedis creates a Redis-backed cache. Keys are namespaced by prefix.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration, log zerolog.Logger) *RedisCache {
	if prefix == "" {
		prefix = "cache"
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    log.With().Str("component", "redis-cache").Logger(),
	}
}

func (c *RedisCache) key(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("cache read failed")
		return "", false
	}
	return value, true
}

func (c *RedisCache) Put(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache write failed")
	}
}
