package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/unklstewy/planes-near-me/pkg/config"
)

// ConnectWithRetry attempts to connect to the database with exponential
// backoff. It is meant for process startup, where postgres may come up after
// the server does.
//
// Parameters:
//   - cfg: Database configuration
//   - maxAttempts: Maximum number of connection attempts (0 = until ctx is done)
//   - initialDelay: Initial wait time between attempts
func ConnectWithRetry(ctx context.Context, cfg config.DatabaseConfig, maxAttempts int, initialDelay time.Duration, logger *slog.Logger) (*DB, error) {
	delay := initialDelay
	attempt := 0

	for {
		attempt++

		db, err := Connect(ctx, cfg)
		if err == nil {
			logger.Info("Database connected", slog.Int("attempt", attempt))
			return db, nil
		}

		if maxAttempts > 0 && attempt >= maxAttempts {
			logger.Error("Database connection failed", slog.Int("attempts", attempt), slog.Any("err", err))
			return nil, err
		}

		logger.Warn("Database connection failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("err", err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		// Exponential backoff with cap at 60 seconds
		delay *= 2
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}
	}
}

// HealthCheck reports whether the database answers a trivial query.
func HealthCheck(ctx context.Context, db *DB) bool {
	if db == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return false
	}

	return result == 1
}
