package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

// RedisStore persists consent flags in Redis so the effective permission
// survives process restarts. Flags are stored as "1"/"0" strings with no
// TTL; consent does not expire on its own.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed flag store from a connection URL.
func NewRedis(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "invalid redis url")
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisWithClient wraps an existing client, mainly for tests.
func NewRedisWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, ErrNotFound
		}
		return false, dErrors.Wrap(err, dErrors.CodePersistence, "flag read failed")
	}
	return value == "1", nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value bool) error {
	stored := "0"
	if value {
		stored = "1"
	}
	if err := s.client.Set(ctx, key, stored, 0).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "flag write failed")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "flag delete failed")
	}
	return nil
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "redis unreachable")
	}
	return nil
}
