// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL         string
	DialTimeout time.Duration
	// TTL expires written keys. Zero keeps them forever.
	TTL time.Duration
}

// Redis is a Backend over a Redis server.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis creates a client for cfg.URL. It does not connect; failures
// surface on first use so the CLI can still start with Redis down.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	return &Redis{rdb: redis.NewClient(opts), ttl: cfg.TTL}, nil
}

// Get implements Backend.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set implements Backend. Redis reports OOM as "OOM command not allowed",
// which is mapped to ErrQuotaExceeded.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	err := r.rdb.Set(ctx, key, value, r.ttl).Err()
	if err != nil && isRedisOOM(err) {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}

// Remove implements Backend.
func (r *Redis) Remove(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// Close implements Backend.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func isRedisOOM(err error) bool {
	var rerr redis.Error
	if stderrors.As(err, &rerr) {
		msg := rerr.Error()
		return len(msg) >= 3 && msg[:3] == "OOM"
	}
	return false
}
