package localstore

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return NewRedisStoreWithClient(client, RedisOptions{})
}

func TestRedisStoreGetSetDelete(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "last_synced:doc-1"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := store.Set(ctx, "last_synced:doc-1", "2024-06-01T12:00:00Z"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := store.Get(ctx, "last_synced:doc-1")
	if err != nil || value != "2024-06-01T12:00:00Z" {
		t.Fatalf("get: value=%q err=%v", value, err)
	}

	if err := store.Delete(ctx, "last_synced:doc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "last_synced:doc-1"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestRedisStorePrefixIsolation(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	first := NewRedisStoreWithClient(client, RedisOptions{Prefix: "device-a:"})
	second := NewRedisStoreWithClient(client, RedisOptions{Prefix: "device-b:"})
	ctx := context.Background()

	if err := first.Set(ctx, "document_id", "doc-a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := second.Get(ctx, "document_id"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected prefix isolation, got %v", err)
	}
}
