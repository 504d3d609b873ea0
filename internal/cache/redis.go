// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache keeps the summary cache in Redis. Entries expire through
// the key TTL, so retention needs no separate sweep.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

const keyPrefix = "goodnews:summary:"

// DefaultRetention is the TTL applied when none is configured.
const DefaultRetention = 30 * 24 * time.Hour

// Redis is a summary cache backed by string keys with a TTL.
type Redis struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedis connects to cfg.RedisAddr and checks the connection.
func NewRedis(ctx context.Context, cfg types.CacheConfig) (*Redis, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis cache requires an address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return newRedis(client, cfg.Retention), nil
}

func newRedis(client *redis.Client, retention time.Duration) *Redis {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Redis{client: client, retention: retention}
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Ping checks the server connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// redisKey puts the hash first; URLs contain colons.
func redisKey(k types.CacheKey) string {
	return keyPrefix + k.Hash + ":" + k.URL
}

// Lookup fetches every key with one MGET.
func (r *Redis) Lookup(ctx context.Context, keys []types.CacheKey) (map[types.CacheKey]string, error) {
	out := make(map[types.CacheKey]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = redisKey(k)
	}
	vals, err := r.client.MGet(ctx, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading summary cache: %w", err)
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// Upsert writes entries in one pipeline, each with the retention TTL.
func (r *Redis) Upsert(ctx context.Context, entries []types.SummaryCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, redisKey(e.Key), e.Summary, r.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing summary cache: %w", err)
	}
	return nil
}

// DeleteCacheOlderThan is a no-op; Redis expires entries itself.
func (r *Redis) DeleteCacheOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}
