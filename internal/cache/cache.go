// Package cache keeps recent postcode lookups in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/silktown-software/postcode-geocode-demo/internal/postcode"
	"github.com/silktown-software/postcode-geocode-demo/internal/storage"
)

const keyPrefix = "postcode:"

var ErrMiss = errors.New("cache miss")

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Open connects to the Redis server at redisURL (redis://host:port/db).
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, ttl), nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func key(value string) string {
	return keyPrefix + postcode.Compact(value)
}

func (c *Cache) Get(ctx context.Context, value string) (storage.PostcodeRecord, error) {
	raw, err := c.client.Get(ctx, key(value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.PostcodeRecord{}, ErrMiss
		}
		return storage.PostcodeRecord{}, err
	}
	var record storage.PostcodeRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return storage.PostcodeRecord{}, fmt.Errorf("decode cached postcode: %w", err)
	}
	return record, nil
}

func (c *Cache) Set(ctx context.Context, record storage.PostcodeRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(record.Postcode), raw, c.ttl).Err()
}

// Delete drops cached entries so the next lookup reads the store again.
func (c *Cache) Delete(ctx context.Context, postcodes ...string) error {
	if len(postcodes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(postcodes))
	for _, p := range postcodes {
		keys = append(keys, key(p))
	}
	return c.client.Del(ctx, keys...).Err()
}
