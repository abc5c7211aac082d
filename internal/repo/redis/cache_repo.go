package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const cachePrefix = "cache:"

// CacheRepo is a string key/value store with per-key TTL. Entries are
// advisory: every consumer must treat a missing or malformed value as
// a miss and fall back to the authoritative source.
type CacheRepo struct {
	client *goredis.Client
}

func NewCacheRepo(client *goredis.Client) *CacheRepo {
	return &CacheRepo{client: client}
}

// Set stores value under key, overwriting any existing entry. A zero
// ttl means the entry never expires until removed explicitly.
func (r *CacheRepo) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("cache key is required")
	}
	if ttl < 0 {
		ttl = 0
	}

	if err := r.client.Set(ctx, cacheKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

// Get returns the stored value and whether it exists. Expired entries
// are reported as absent.
func (r *CacheRepo) Get(ctx context.Context, key string) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return "", false, fmt.Errorf("cache key is required")
	}

	value, err := r.client.Get(ctx, cacheKey(key)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cache entry: %w", err)
	}
	return value, true, nil
}

// Remove deletes the key unconditionally. Removing an absent key is
// not an error.
func (r *CacheRepo) Remove(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil
	}

	if err := r.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

// Clear drops every entry under the cache namespace.
func (r *CacheRepo) Clear(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, cachePrefix+"*", 200).Result()
		if err != nil {
			return fmt.Errorf("scan cache namespace: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("clear cache entries: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func cacheKey(key string) string {
	return cachePrefix + key
}
