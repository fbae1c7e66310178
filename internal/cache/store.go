package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store is the shared, time-expiring cache used by request paths and jobs.
// Values are JSON encoded so in-process and redis backends behave alike.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryStore struct {
	items Cache[string, []byte]
}

// NewMemoryStore returns a Store local to the process.
func NewMemoryStore() Store {
	return &memoryStore{items: NewTTLCache[string, []byte]()}
}

func (s *memoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := s.items.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.items.Set(key, raw, ttl)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a Store shared by every process using the same redis.
func NewRedisStore(client *redis.Client, prefix string) Store {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, raw, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
