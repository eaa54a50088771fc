package cache

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
)

func TestRedisCacheValidatesBeforeDialing(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	cache := NewRedisCache(client, "fallout:")
	t.Cleanup(func() {
		_ = cache.Close()
	})

	if err := cache.Set(context.Background(), "", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := cache.Get(ctx, "k"); err == nil {
		t.Fatalf("Get() expected error for canceled context")
	}
}
