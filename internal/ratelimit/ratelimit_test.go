package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func TestMemoryHourlyLimit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	limiter := NewMemory(Limits{PerHour: 3, PerMonth: 100})
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if ok, _, err := limiter.Allow(ctx, "1.2.3.4"); !ok || err != nil {
			t.Fatalf("Request %d should be allowed (err=%v)", i+1, err)
		}
	}

	ok, retry, _ := limiter.Allow(ctx, "1.2.3.4")
	if ok {
		t.Fatal("Fourth request in the hour should be denied")
	}
	if retry <= 0 || retry > 20*time.Minute {
		t.Errorf("Expected retry within one refill interval, got %v", retry)
	}

	if ok, _, _ := limiter.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("Other clients must have their own budget")
	}

	now = now.Add(21 * time.Minute)
	if ok, _, _ := limiter.Allow(ctx, "1.2.3.4"); !ok {
		t.Error("Expected a token after the refill interval")
	}
}

func TestMemoryMonthlyLimit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	limiter := NewMemory(Limits{PerHour: 100, PerMonth: 2})
	limiter.now = func() time.Time { return now }

	limiter.Allow(ctx, "k")
	limiter.Allow(ctx, "k")

	ok, retry, _ := limiter.Allow(ctx, "k")
	if ok {
		t.Fatal("Expected monthly limit to deny")
	}
	if retry < time.Hour {
		t.Errorf("Expected a long monthly retry, got %v", retry)
	}

	// A denied monthly request must not consume the hourly budget.
	c := limiter.clients["k"]
	if tokens := c.hourly.TokensAt(now); tokens < 97.9 {
		t.Errorf("Expected 98 hourly tokens left, got %.2f", tokens)
	}
}

func TestMemoryUnlimited(t *testing.T) {
	limiter := NewMemory(Limits{})
	for i := 0; i < 1000; i++ {
		if ok, _, _ := limiter.Allow(context.Background(), "k"); !ok {
			t.Fatalf("Zero limits should not deny (request %d)", i)
		}
	}
}

func TestMemorySweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewMemory(Limits{PerHour: 10})
	limiter.now = func() time.Time { return now }

	limiter.Allow(context.Background(), "old")
	now = now.Add(2 * time.Hour)
	limiter.Allow(context.Background(), "new")

	if n := limiter.Sweep(time.Hour); n != 1 {
		t.Errorf("Expected 1 client swept, got %d", n)
	}
	if _, ok := limiter.clients["new"]; !ok {
		t.Error("Recent client should be kept")
	}
}

func TestWindowRemaining(t *testing.T) {
	now := time.Unix(0, 0).Add(90 * time.Minute)
	if got := windowRemaining(now, time.Hour); got != 30*time.Minute {
		t.Errorf("Expected 30m remaining, got %v", got)
	}
}

// TestRedisLimiter runs against PNM_TEST_REDIS_ADDR when set.
func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("PNM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PNM_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	limiter := NewRedis(client, Limits{PerHour: 2, PerMonth: 10})
	limiter.prefix = "ratelimit-test:" + time.Now().Format("150405.000000") + ":"

	for i := 0; i < 2; i++ {
		if ok, _, err := limiter.Allow(ctx, "k"); !ok || err != nil {
			t.Fatalf("Request %d should be allowed (err=%v)", i+1, err)
		}
	}
	ok, retry, err := limiter.Allow(ctx, "k")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if ok || retry <= 0 {
		t.Errorf("Expected denial with retry, got ok=%v retry=%v", ok, retry)
	}
}
