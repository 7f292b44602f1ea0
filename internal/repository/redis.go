package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travelbooking/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "travelbooking:idem:"
	rateLimitPrefix   = "travelbooking:rl:"
)

// RedisStore shares idempotency records and rate-limit windows across instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient builds a client from config. It does not connect.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	return val, true, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, idempotencyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

func (r *RedisStore) Claim(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, idempotencyPrefix+key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return ok, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, idempotencyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete idempotency record: %w", err)
	}
	return nil
}

func (r *RedisStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rk := rateLimitPrefix + key
	count, err := r.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, rk, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
