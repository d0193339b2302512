package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	if _, ok, err := store.Get(ctx, "abc"); ok || err != nil {
		t.Fatalf("Expected empty store, got ok=%v err=%v", ok, err)
	}

	first := coordinates.Geographic{Latitude: 52.37, Longitude: 4.89}
	second := coordinates.Geographic{Latitude: 51.5, Longitude: -0.12}
	store.Set(ctx, "abc", first)
	store.Set(ctx, "abc", second)

	got, ok, err := store.Get(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("Expected stored coordinates, got ok=%v err=%v", ok, err)
	}
	if got != second {
		t.Errorf("Expected last write to win, got %+v", got)
	}

	if _, ok, _ := store.Get(ctx, "other"); ok {
		t.Error("Sessions must not share coordinates")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }

	store.Set(ctx, "a", coordinates.Geographic{Latitude: 1, Longitude: 1})
	store.Set(ctx, "b", coordinates.Geographic{Latitude: 2, Longitude: 2})

	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Get(ctx, "a"); ok {
		t.Error("Expected entry to expire")
	}
	if n := store.Sweep(); n != 1 {
		t.Errorf("Expected Sweep to remove 1 remaining entry, got %d", n)
	}
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	id := NewID()

	tok, err := tokens.Issue(id)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := tokens.Parse(tok)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got != id {
		t.Errorf("Expected session id %s, got %s", id, got)
	}

	t.Run("Wrong secret", func(t *testing.T) {
		if _, err := NewTokens("other-secret", time.Hour).Parse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := tokens.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		later := NewTokens("test-secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := later.Parse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
		}
	})
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("Duplicate id %s", id)
		}
		seen[id] = true
	}
}

// TestRedisStore runs against PNM_TEST_REDIS_ADDR when set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("PNM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PNM_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, time.Minute)
	id := NewID()
	defer client.Del(ctx, redisKey(id))

	if _, ok, err := store.Get(ctx, id); ok || err != nil {
		t.Fatalf("Expected no coordinates, got ok=%v err=%v", ok, err)
	}

	want := coordinates.Geographic{Latitude: 52.370216, Longitude: 4.895168}
	if err := store.Set(ctx, id, want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok, err := store.Get(ctx, id)
	if err != nil || !ok || got != want {
		t.Errorf("Expected %+v, got %+v ok=%v err=%v", want, got, ok, err)
	}

	ttl, err := client.TTL(ctx, redisKey(id)).Result()
	if err != nil || ttl <= 0 {
		t.Errorf("Expected positive TTL, got %v (%v)", ttl, err)
	}
}

func TestParseRedisFloat(t *testing.T) {
	if v, err := parseRedisFloat("4.5"); err != nil || v != 4.5 {
		t.Errorf("parseRedisFloat(4.5) = %v, %v", v, err)
	}
	if _, err := parseRedisFloat(int64(4)); err == nil {
		t.Error("Expected error for non-string value")
	}
}
