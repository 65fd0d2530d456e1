package form

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStateStore(2, time.Minute)

	if v, err := s.Get(ctx, "missing"); err != nil || v != nil {
		t.Fatalf("expected nil state for unknown session, got %v, %v", v, err)
	}

	in := map[string]string{"Age": "40"}
	s.Save(ctx, "a", in)
	in["Age"] = "99"

	got, _ := s.Get(ctx, "a")
	if got["Age"] != "40" {
		t.Fatalf("expected stored copy, got %v", got)
	}
	got["Age"] = "1"
	if again, _ := s.Get(ctx, "a"); again["Age"] != "40" {
		t.Fatalf("expected Get to return a copy, got %v", again)
	}

	s.Save(ctx, "b", map[string]string{})
	s.Save(ctx, "c", map[string]string{})
	if v, _ := s.Get(ctx, "a"); v != nil {
		t.Fatal("expected oldest session to be evicted")
	}
}

func TestMemoryStateStoreExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStateStore(10, 20*time.Millisecond)
	s.Save(ctx, "a", map[string]string{"Age": "40"})

	time.Sleep(60 * time.Millisecond)
	if v, _ := s.Get(ctx, "a"); v != nil {
		t.Fatalf("expected expired state, got %v", v)
	}
}

func TestRedisStateStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	s := &RedisStateStore{Client: client}
	sid := uuid.NewString()
	defer client.Del(ctx, stateKey+sid)

	if v, err := s.Get(ctx, sid); err != nil || v != nil {
		t.Fatalf("expected nil state, got %v, %v", v, err)
	}
	if err := s.Save(ctx, sid, map[string]string{"Passport": "No"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	v, err := s.Get(ctx, sid)
	if err != nil || v["Passport"] != "No" {
		t.Fatalf("expected saved state, got %v, %v", v, err)
	}
	if ttl := client.TTL(ctx, stateKey+sid).Val(); ttl <= 0 || ttl > stateTTL {
		t.Fatalf("expected ttl within %v, got %v", stateTTL, ttl)
	}
}
