package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// CacheService is a JSON read-through cache over redis. The authoritative
// documents live elsewhere; every write path must invalidate what it touched.
type CacheService struct {
	client *redis.Client
	prefix string
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{
		client: client,
		prefix: "cache:",
	}
}

func (c *CacheService) key(k string) string { return c.prefix + k }

// Get получает значение из кэша
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Set сохраняет значение в кэш
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// Delete удаляет значения из кэша
func (c *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// GetOrSet получает значение из кэша или загружает его через loader.
// Cache failures never fail the read: the loader result wins.
func (c *CacheService) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func() (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	value, err := loader()
	if err != nil {
		return err
	}

	_ = c.Set(ctx, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// UserViewKey is the cache key of a user's assembled profile view.
func UserViewKey(userID int64) string {
	return fmt.Sprintf("user_view:%d", userID)
}

// InvalidateUserCache инвалидирует кэш пользователя
func (c *CacheService) InvalidateUserCache(ctx context.Context, userID int64) error {
	if err := c.Delete(ctx, UserViewKey(userID)); err != nil {
		return fmt.Errorf("failed to invalidate user %d: %w", userID, err)
	}
	return nil
}
