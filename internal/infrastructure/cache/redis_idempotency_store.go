package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces request keys in Redis
const DefaultKeyPrefix = "tradecore:idempotency:"

// RedisIdempotencyStore implements IdempotencyStore using Redis.
// Suitable for deployments where several instances share request keys.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisIdempotencyStore creates a store on an existing Redis client
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Claim stores value with SETNX and reads back the holder when the key already exists
func (s *RedisIdempotencyStore) Claim(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	fullKey := s.keyPrefix + key

	ok, err := s.client.SetNX(ctx, fullKey, value, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim request key: %w", err)
	}
	if ok {
		return value, true, nil
	}

	held, err := s.client.Get(ctx, fullKey).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the next call will claim it
		return "", false, fmt.Errorf("request key %q expired while claiming", key)
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read request key: %w", err)
	}
	return held, false, nil
}

// Lookup returns the value held under key
func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read request key: %w", err)
	}
	return value, true, nil
}

// Ping checks the Redis connection
func (s *RedisIdempotencyStore) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
