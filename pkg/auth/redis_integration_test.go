//go:build integration

package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisCodeStoreIntegration(t *testing.T) {
	addr := os.Getenv("MEMEFORGE_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}

	s := NewRedisCodeStore(client, "memeforge:test:code:")
	if err := s.Put(ctx, "a@example.com", "123456", time.Minute); err != nil {
		t.Fatal(err)
	}
	ok, err := s.Consume(ctx, "a@example.com", "123456")
	if err != nil || !ok {
		t.Fatalf("Consume() = %v, %v", ok, err)
	}
	if ok, _ := s.Consume(ctx, "a@example.com", "123456"); ok {
		t.Error("codes should be single use")
	}
}
