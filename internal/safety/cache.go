package safety

import (
	"context"
	"time"

	redisinfra "github.com/capsulebuddy/backend/internal/infrastructure/redis"
	"github.com/capsulebuddy/backend/pkg/cache"
)

// RedisVerdictCache backs a VerdictCache with Redis. Errors are swallowed;
// the cache is advisory only.
type RedisVerdictCache struct {
	client *redisinfra.Client
}

func NewRedisVerdictCache(client *redisinfra.Client) *RedisVerdictCache {
	return &RedisVerdictCache{client: client}
}

func (c *RedisVerdictCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, key)
	if err != nil {
		return "", false
	}
	return value, true
}

func (c *RedisVerdictCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	_ = c.client.Set(ctx, key, value, ttl)
}

// MemoryVerdictCache backs a VerdictCache with the in-process TTL cache,
// used when no Redis URL is configured.
type MemoryVerdictCache struct {
	cache *cache.Cache
}

func NewMemoryVerdictCache(c *cache.Cache) *MemoryVerdictCache {
	return &MemoryVerdictCache{cache: c}
}

func (c *MemoryVerdictCache) Get(_ context.Context, key string) (string, bool) {
	value, ok := c.cache.Get(key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

func (c *MemoryVerdictCache) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.cache.Set(key, value, ttl)
}
