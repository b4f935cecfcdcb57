package utils

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Hour
	folderKeyPrefix = "intake:folder:"
)

// RedisFolderCache remembers resolved folder IDs in Redis.
type RedisFolderCache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedisFolderCache returns nil when rc is nil so callers can skip caching.
func NewRedisFolderCache(rc *redis.Client, ttl time.Duration) *RedisFolderCache {
	if rc == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisFolderCache{rc: rc, ttl: ttl}
}

// Get returns the cached folder ID for key. A miss is not an error.
func (c *RedisFolderCache) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	id, err := c.rc.Get(ctx, folderKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		Sugar.Debugf("folder cache miss key=%s", key)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, id != "", nil
}

// Set stores a folder ID with the configured TTL.
func (c *RedisFolderCache) Set(ctx context.Context, key, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rc.Set(ctx, folderKeyPrefix+key, id, c.ttl).Err()
}

// Invalidate drops a cached folder ID.
func (c *RedisFolderCache) Invalidate(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rc.Del(ctx, folderKeyPrefix+key).Err()
}
