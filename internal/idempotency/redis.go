/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-deposits-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "idempotency:"

// RedisCache shares recently applied keys between server instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the cache server. A failed ping is returned so the
// caller can fall back to the in-memory cache.
func NewRedisCache(ctx context.Context, cfg models.CacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to reach idempotency cache at %s: %w", cfg.Addr, err)
	}

	zap.L().Info("Connected to idempotency cache", zap.String("addr", cfg.Addr))
	return NewRedisCacheFromClient(client, cfg.TTL), nil
}

func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Seen(ctx context.Context, key string) (bool, error) {
	_, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Remember(ctx context.Context, key string) error {
	return c.client.Set(ctx, redisKeyPrefix+key, "1", c.ttl).Err()
}

func (c *RedisCache) Close() {
	if err := c.client.Close(); err != nil {
		zap.L().Warn("Failed to close redis client", zap.Error(err))
	}
}
