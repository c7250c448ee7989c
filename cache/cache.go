// Package cache backs the public views with a read-through cache so the
// landing page doesn't hit the managed backend on every request.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	go_store "github.com/eko/gocache/store/go_cache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/alief-faisal/portofoliowidia/config"
)

// Backing is the shared byte cache all typed views write through.
type Backing struct {
	cache *cache.Cache[[]byte]
	ttl   time.Duration
}

// NewBacking creates the cache selected by the configuration: an
// in-process go-cache store, or redis when configured.
func NewBacking(cfg *config.CacheConfig) *Backing {
	ttl := time.Duration(cfg.TTL) * time.Second
	if cfg.Type == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		return &Backing{
			cache: cache.New[[]byte](redis_store.NewRedis(redisClient)),
			ttl:   ttl,
		}
	}

	gocacheClient := gocache.New(ttl, 2*ttl)
	return &Backing{
		cache: cache.New[[]byte](go_store.NewGoCache(gocacheClient)),
		ttl:   ttl,
	}
}

// Typed stores JSON-encoded values of T in the shared byte cache under a
// key prefix.
type Typed[T any] struct {
	backing *Backing
	prefix  string
}

// NewTyped creates a typed view over the backing cache.
func NewTyped[T any](backing *Backing, prefix string) *Typed[T] {
	return &Typed[T]{backing: backing, prefix: prefix}
}

// Get retrieves the cached value for key.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var result T
	data, err := t.backing.cache.Get(ctx, t.prefix+key)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

// Set stores the value for key with the configured TTL.
func (t *Typed[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return t.backing.cache.Set(ctx, t.prefix+key, data, store.WithExpiration(t.backing.ttl))
}

// Delete drops the cached value for key.
func (t *Typed[T]) Delete(ctx context.Context, key string) error {
	return t.backing.cache.Delete(ctx, t.prefix+key)
}
