package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parishkeep/parishkeep/pkg/logger"
)

const (
	// Key prefixes per cached entity
	subscriptionKeyPrefix     = "subscription:stripe:"
	userSubscriptionKeyPrefix = "subscription:user:"

	// Cache TTL
	defaultCacheTTL = 15 * time.Minute
)

// ErrCacheMiss is returned when a key is not cached
var ErrCacheMiss = errors.New("cache miss")

// RedisCache wraps a Redis client for repository-level caching
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(addr, password string, db int, log *logger.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client, log: log}, nil
}

// Get unmarshals the cached value for key into dest
func (c *RedisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("redis get failed: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Set stores value under key with the default TTL
func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.client.Set(ctx, key, data, defaultCacheTTL).Err()
}

// Delete drops keys from the cache
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close closes the underlying Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
