package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is the JSON cache used for derived read models. Misses and backend failures look the same
// to callers; writes are best effort.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	// Version returns the current generation of namespace, 0 when never bumped.
	Version(ctx context.Context, namespace string) int64
	// Bump starts a new generation of namespace so keys built from the old one are never read again.
	Bump(ctx context.Context, namespace string) error
}

// CacheManager handles all Redis caching operations.
type CacheManager struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewCacheManager wraps rdb. A nil client yields a cache that always misses.
func NewCacheManager(rdb *redis.Client, logger *zap.Logger) *CacheManager {
	return &CacheManager{redis: rdb, logger: logger}
}

func (cm *CacheManager) Get(ctx context.Context, key string, dest interface{}) bool {
	if cm.redis == nil {
		return false
	}
	data, err := cm.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cm.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		cm.logger.Warn("failed to unmarshal cached value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (cm *CacheManager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if cm.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		cm.logger.Warn("failed to marshal value for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := cm.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		cm.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (cm *CacheManager) Delete(ctx context.Context, keys ...string) {
	if cm.redis == nil || len(keys) == 0 {
		return
	}
	if err := cm.redis.Del(ctx, keys...).Err(); err != nil {
		cm.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (cm *CacheManager) Version(ctx context.Context, namespace string) int64 {
	if cm.redis == nil {
		return 0
	}
	v, err := cm.redis.Get(ctx, versionKey(namespace)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cm.logger.Warn("cache version read failed", zap.String("namespace", namespace), zap.Error(err))
		}
		return 0
	}
	return v
}

func (cm *CacheManager) Bump(ctx context.Context, namespace string) error {
	if cm.redis == nil {
		return nil
	}
	v, err := cm.redis.Incr(ctx, versionKey(namespace)).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache %s: %w", namespace, err)
	}
	cm.logger.Debug("cache invalidated", zap.String("namespace", namespace), zap.Int64("version", v))
	return nil
}

func versionKey(namespace string) string {
	return namespace + ":version"
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, interface{}) bool           { return false }
func (noopCache) Set(context.Context, string, interface{}, time.Duration) {}
func (noopCache) Delete(context.Context, ...string)                       {}
func (noopCache) Version(context.Context, string) int64                   { return 0 }
func (noopCache) Bump(context.Context, string) error                      { return nil }

func cacheOrNoop(c Cache) Cache {
	if c == nil {
		return noopCache{}
	}
	return c
}
