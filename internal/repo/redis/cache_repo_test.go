package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestCacheEntryExpiresAfterTTL(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "discover:key", "1,2,3", 30*time.Minute); err != nil {
		t.Fatalf("set cache entry: %v", err)
	}

	value, ok, err := repo.Get(ctx, "discover:key")
	if err != nil {
		t.Fatalf("get cache entry: %v", err)
	}
	if !ok || value != "1,2,3" {
		t.Fatalf("expected fresh entry, got ok=%v value=%q", ok, value)
	}

	mr.FastForward(31 * time.Minute)

	_, ok, err = repo.Get(ctx, "discover:key")
	if err != nil {
		t.Fatalf("get expired cache entry: %v", err)
	}
	if ok {
		t.Fatalf("expected expired entry to be absent")
	}
}

func TestCacheEntryWithoutTTLPersistsUntilRemoved(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "pinned", "value", 0); err != nil {
		t.Fatalf("set cache entry: %v", err)
	}

	mr.FastForward(365 * 24 * time.Hour)

	value, ok, err := repo.Get(ctx, "pinned")
	if err != nil {
		t.Fatalf("get cache entry: %v", err)
	}
	if !ok || value != "value" {
		t.Fatalf("entry without ttl should persist, got ok=%v value=%q", ok, value)
	}

	if err := repo.Remove(ctx, "pinned"); err != nil {
		t.Fatalf("remove cache entry: %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "pinned"); ok {
		t.Fatalf("entry should be gone after remove")
	}

	// Removing again is a no-op.
	if err := repo.Remove(ctx, "pinned"); err != nil {
		t.Fatalf("remove absent entry: %v", err)
	}
}

func TestSetOverwritesExistingEntry(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "k", "old", time.Minute); err != nil {
		t.Fatalf("set cache entry: %v", err)
	}
	if err := repo.Set(ctx, "k", "new", 0); err != nil {
		t.Fatalf("overwrite cache entry: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	value, ok, err := repo.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get cache entry: %v", err)
	}
	if !ok || value != "new" {
		t.Fatalf("overwrite should drop the old ttl, got ok=%v value=%q", ok, value)
	}
}

func TestClearDropsOnlyCacheNamespace(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "a", "1", 0); err != nil {
		t.Fatalf("set cache entry: %v", err)
	}
	if err := repo.Set(ctx, "b", "2", 0); err != nil {
		t.Fatalf("set cache entry: %v", err)
	}
	if err := client.Set(ctx, "sessions:keep", "1", 0).Err(); err != nil {
		t.Fatalf("set unrelated key: %v", err)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("clear cache: %v", err)
	}

	if _, ok, _ := repo.Get(ctx, "a"); ok {
		t.Fatalf("cache entry should be cleared")
	}
	if !mr.Exists("sessions:keep") {
		t.Fatalf("clear must not touch other namespaces")
	}
}
