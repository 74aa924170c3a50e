package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "barcodeapi-cli:"

// RedisStore keeps entries in redis and lets redis expire them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. A ttl <= 0 means DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// OpenRedisStore connects to a redis URL such as redis://localhost:6379/0.
func OpenRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), ttl), nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if Disabled() {
		return nil, false
	}
	body, err := s.client.Get(ctx, redisKeyPrefix+Key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Debug("redis cache read failed", "error", err)
		}
		return nil, false
	}
	return body, true
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, body []byte) {
	if Disabled() {
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+Key(key), body, s.ttl).Err(); err != nil {
		slog.Debug("redis cache write failed", "error", err)
	}
}

// Clear deletes every key under this store's prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	var keys []string
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan redis cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear redis cache: %w", err)
	}
	return nil
}

// Close releases the redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
