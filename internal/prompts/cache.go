package prompts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"jobtracker-backend/internal/shared/telemetry"
)

// Cache holds system default templates keyed by task and role.
type Cache interface {
	Get(ctx context.Context, key string) (Template, bool)
	Set(ctx context.Context, key string, t Template)
	Invalidate(ctx context.Context)
}

const (
	redisKeyPrefix  = "prompts:system:"
	defaultCacheTTL = time.Hour
)

// RedisCache stores templates as JSON in Redis. Errors degrade to misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps a connected client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Template, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			telemetry.Warn("prompt.cache_get_failed", map[string]any{"key": key, "error": err})
		}
		return Template{}, false
	}
	var t Template
	if err := json.Unmarshal([]byte(val), &t); err != nil {
		return Template{}, false
	}
	return t, true
}

func (c *RedisCache) Set(ctx context.Context, key string, t Template) {
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		telemetry.Warn("prompt.cache_set_failed", map[string]any{"key": key, "error": err})
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		telemetry.Warn("prompt.cache_invalidate_failed", map[string]any{"error": err})
		return
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

// NoopCache never caches.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (Template, bool) { return Template{}, false }
func (NoopCache) Set(context.Context, string, Template)        {}
func (NoopCache) Invalidate(context.Context)                   {}
