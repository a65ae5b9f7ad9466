package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	value := map[string]interface{}{"name": "ledger", "id": float64(7)}
	if err := c.Set(ctx, "test:key", value, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var result map[string]interface{}
	if err := c.Get(ctx, "test:key", &result); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if result["name"] != "ledger" || result["id"] != float64(7) {
		t.Errorf("unexpected value: %v", result)
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var result string
	if err := c.Get(ctx, "absent", &result); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "short", "value", -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var result string
	if err := c.Get(ctx, "short", &result); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired Get error = %v, want ErrCacheMiss", err)
	}

	exists, err := c.Exists(ctx, "short")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expired key should not exist")
	}
}

func TestMemoryCache_SetNX(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "nx", "first", time.Minute)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if !ok {
		t.Error("first SetNX should succeed")
	}

	ok, err = c.SetNX(ctx, "nx", "second", time.Minute)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if ok {
		t.Error("second SetNX should report existing key")
	}

	var result string
	if err := c.Get(ctx, "nx", &result); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if result != "first" {
		t.Errorf("value = %q, want first", result)
	}

	// 过期后可以重新占用
	if _, err := c.SetNX(ctx, "gone", "v", -time.Second); err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	ok, err = c.SetNX(ctx, "gone", "v2", time.Minute)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if !ok {
		t.Error("SetNX over an expired key should succeed")
	}
}

func TestMemoryCache_Del(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "a", 1, time.Minute)
	c.Set(ctx, "b", 2, time.Minute)

	if err := c.Del(ctx, "a", "b"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}

	var result int
	if err := c.Get(ctx, "a", &result); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("deleted key Get error = %v, want ErrCacheMiss", err)
	}
}

func TestNullCache(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set should be a no-op, got %v", err)
	}

	var result string
	if err := c.Get(ctx, "k", &result); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get error = %v, want ErrCacheMiss", err)
	}

	exists, err := c.Exists(ctx, "k")
	if err != nil || exists {
		t.Errorf("Exists = %v, %v; want false, nil", exists, err)
	}

	// 禁用缓存时SetNX按无操作成功处理，调用方不应被判定为重复请求
	ok, err := c.SetNX(ctx, "k", "v", time.Minute)
	if err != nil || !ok {
		t.Errorf("SetNX = %v, %v; want true, nil", ok, err)
	}
}
