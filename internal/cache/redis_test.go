package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestDefaultCacheConfig(t *testing.T) {
	config := DefaultCacheConfig()

	if config.Addr != "localhost:6379" {
		t.Errorf("Expected Addr to be localhost:6379, got %s", config.Addr)
	}
	if config.PoolSize != 10 {
		t.Errorf("Expected PoolSize to be 10, got %d", config.PoolSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries to be 3, got %d", config.MaxRetries)
	}
	if config.DialTimeout != 5*time.Second {
		t.Errorf("Expected DialTimeout to be 5s, got %v", config.DialTimeout)
	}
}

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	cache := NewRedisCache(&CacheConfig{
		Addr:         mr.Addr(),
		PoolSize:     10,
		MinIdleConns: 1,
		MaxRetries:   -1,
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

type boardSnapshot struct {
	WorkspaceID string   `json:"workspace_id"`
	Columns     []string `json:"columns"`
}

func TestRedisCache_SetAndGet(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	original := boardSnapshot{WorkspaceID: "ws-1", Columns: []string{"To Do", "Done"}}
	if err := cache.Set(ctx, "board:ws-1", original, time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	var retrieved boardSnapshot
	if err := cache.Get(ctx, "board:ws-1", &retrieved); err != nil {
		t.Fatalf("Failed to get from cache: %v", err)
	}
	if retrieved.WorkspaceID != "ws-1" || len(retrieved.Columns) != 2 {
		t.Errorf("Expected round-tripped snapshot, got %+v", retrieved)
	}

	snap := cache.metrics.Snapshot()
	if snap.Sets != 1 || snap.Hits != 1 {
		t.Errorf("Expected 1 set and 1 hit, got %+v", snap)
	}
}

func TestRedisCache_Get_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	var result string
	err := cache.Get(context.Background(), "missing", &result)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
	if cache.breaker.State() != BreakerClosed {
		t.Errorf("Expected misses to leave the breaker closed")
	}
}

func TestRedisCache_Set_InvalidData(t *testing.T) {
	cache, _ := setupTestRedis(t)

	if err := cache.Set(context.Background(), "bad", make(chan int), time.Minute); err == nil {
		t.Error("Expected error when setting unmarshalable data")
	}
}

func TestRedisCache_Get_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Set("board:invalid", "invalid-json")

	var result map[string]interface{}
	if err := cache.Get(context.Background(), "board:invalid", &result); err == nil {
		t.Error("Expected error when getting invalid JSON")
	}
}

func TestRedisCache_TTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "board:ttl", "data", time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	var out string
	if err := cache.Get(ctx, "board:ttl", &out); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected key to expire, got %v", err)
	}
}

func TestRedisCache_DeleteAndPattern(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	for _, key := range []string{"board:a", "board:b", "session:a"} {
		if err := cache.Set(ctx, key, "x", time.Minute); err != nil {
			t.Fatalf("Failed to set %s: %v", key, err)
		}
	}

	if err := cache.Delete(ctx, "session:a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mr.Exists("session:a") {
		t.Error("Expected session:a to be deleted")
	}

	if err := cache.DeletePattern(ctx, "board:*"); err != nil {
		t.Fatalf("DeletePattern failed: %v", err)
	}
	if mr.Exists("board:a") || mr.Exists("board:b") {
		t.Error("Expected board keys to be deleted")
	}

	exists, err := cache.Exists(ctx, "board:a")
	if err != nil || exists {
		t.Errorf("Expected board:a to be gone, got %v (%v)", exists, err)
	}
}

func TestRedisCache_BreakerOpensWhenRedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	mr.Close()

	for i := 0; i < DefaultCircuitBreakerConfig().MaxFailures; i++ {
		cache.Set(ctx, "board:x", "x", time.Minute)
	}

	err := cache.Set(ctx, "board:x", "x", time.Minute)
	if !errors.Is(err, ErrCacheDown) {
		t.Errorf("Expected ErrCacheDown once the breaker opens, got %v", err)
	}
}

func TestRedisCache_Health(t *testing.T) {
	cache, mr := setupTestRedis(t)

	if err := cache.Health(context.Background()); err != nil {
		t.Errorf("Expected healthy cache, got %v", err)
	}

	mr.Close()
	if err := cache.Health(context.Background()); err == nil {
		t.Error("Expected health check to fail after Redis stops")
	}
}

func TestRedisCache_Stats(t *testing.T) {
	cache, _ := setupTestRedis(t)

	stats := cache.Stats()
	for _, key := range []string{"metrics", "breaker", "pool_total"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("Expected stats to include %s", key)
		}
	}
}
