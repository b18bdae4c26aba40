// Package cache keeps recently resolved crop metadata in Redis so the
// /predict path does not hit PostgreSQL for every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/agrodetect/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "crop:"

// MetadataCache is a best-effort store for CropMetadata keyed by class name.
// A miss is reported as (nil, false, nil).
type MetadataCache interface {
	Get(ctx context.Context, className string) (*models.CropMetadata, bool, error)
	Set(ctx context.Context, m *models.CropMetadata) error
	Delete(ctx context.Context, classNames ...string) error
}

func Key(className string) string {
	return keyPrefix + className
}

type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient returns a client for addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, className string) (*models.CropMetadata, bool, error) {
	data, err := c.client.Get(ctx, Key(className)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var m models.CropMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, fmt.Errorf("decode cached %s: %w", className, err)
	}

	return &m, true, nil
}

func (c *RedisCache) Set(ctx context.Context, m *models.CropMetadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(m.ClassName), data, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, classNames ...string) error {
	if len(classNames) == 0 {
		return nil
	}
	keys := make([]string, len(classNames))
	for i, n := range classNames {
		keys[i] = Key(n)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Nop is used when no Redis address is configured. Every Get is a miss.
type Nop struct{}

func (Nop) Get(context.Context, string) (*models.CropMetadata, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, *models.CropMetadata) error                  { return nil }
func (Nop) Delete(context.Context, ...string) error                          { return nil }
