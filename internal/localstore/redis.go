package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

const defaultRedisPrefix = "bookmarks:"

// RedisStore keeps sync bookkeeping in Redis so multiple processes on
// one device (or a shared host) observe the same cached document id,
// lastSynced markers, and creation lock.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configure the Redis-backed store. TTL of zero keeps
// entries until deleted.
type RedisOptions struct {
	Prefix string
	TTL    time.Duration
}

// NewRedisStore connects to the given URL and verifies the connection.
func NewRedisStore(redisURL string, opts RedisOptions) (*RedisStore, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("localstore: parse redis url: %w", err)
	}
	client := redis.NewClient(parsed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("localstore: connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, opts), nil
}

// NewRedisStoreWithClient wraps an existing client, used by tests and
// hosts that manage their own connection pool.
func NewRedisStoreWithClient(client *redis.Client, opts RedisOptions) *RedisStore {
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", interfaces.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("localstore: redis get: %w", err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("localstore: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("localstore: redis delete: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ interfaces.LocalStore = (*RedisStore)(nil)
