package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/unklstewy/planes-near-me/internal/logging"
	"github.com/unklstewy/planes-near-me/pkg/config"
)

func testConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:         "localhost",
		Port:         5432,
		Username:     "testuser",
		Password:     "testpass",
		Database:     "testdb",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 1,
	}
}

func TestConnString(t *testing.T) {
	s := ConnString(testConfig())
	for _, want := range []string{"host=localhost", "port=5432", "user=testuser", "dbname=testdb", "sslmode=disable"} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %q in %q", want, s)
		}
	}
}

// TestConnect tests database connection. It passes without a running
// postgres, in which case only the error path is exercised.
func TestConnect(t *testing.T) {
	db, err := Connect(context.Background(), testConfig())
	if err != nil {
		if err.Error() == "" {
			t.Error("Expected non-empty error message")
		}
		return
	}
	defer db.Close()

	if !HealthCheck(context.Background(), db) {
		t.Error("Expected healthy connection")
	}
}

func TestConnectWithRetryGivesUp(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 1 // nothing listens here

	start := time.Now()
	_, err := ConnectWithRetry(context.Background(), cfg, 2, 10*time.Millisecond, logging.Discard())
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if time.Since(start) > 15*time.Second {
		t.Error("Retry loop took too long")
	}
}

func TestConnectWithRetryHonoursContext(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 1

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := ConnectWithRetry(ctx, cfg, 0, time.Second, logging.Discard()); err == nil {
		t.Fatal("Expected error when context expires")
	}
}

func TestHealthCheckNil(t *testing.T) {
	if HealthCheck(context.Background(), nil) {
		t.Error("Expected nil database to be unhealthy")
	}
}

// TestSessionRepository runs against a live database when one is reachable.
func TestSessionRepository(t *testing.T) {
	db, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	repo := NewSessionRepository(db, time.Hour)
	id := "test-session-" + time.Now().Format("150405.000000")
	defer repo.Delete(ctx, id)

	loc, err := repo.Get(ctx, id)
	if err != nil || loc != nil {
		t.Fatalf("Expected no location, got %v, %v", loc, err)
	}

	if err := repo.Upsert(ctx, id, 52.37, 4.89); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Upsert(ctx, id, 51.5, -0.12); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	loc, err = repo.Get(ctx, id)
	if err != nil || loc == nil {
		t.Fatalf("Expected location, got %v, %v", loc, err)
	}
	if loc.Latitude != 51.5 || loc.Longitude != -0.12 {
		t.Errorf("Expected last write to win, got %+v", loc)
	}
}
