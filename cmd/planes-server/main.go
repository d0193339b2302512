// Planes Near Me web server
// Serves the page, the session API it drives, /airlines.json and the
// rate limited /planes proximity endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unklstewy/planes-near-me/internal/app"
	"github.com/unklstewy/planes-near-me/internal/logging"
	"github.com/unklstewy/planes-near-me/internal/ratelimit"
	"github.com/unklstewy/planes-near-me/internal/session"
	"github.com/unklstewy/planes-near-me/internal/web"
	"github.com/unklstewy/planes-near-me/pkg/config"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	port       = flag.String("port", "", "HTTP server port (overrides config)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logger, closer := logging.New("planes-server", cfg.Log)
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	state, err := app.Build(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("Failed to start", slog.Any("err", err))
		os.Exit(1)
	}
	defer state.Close()

	if cfg.Session.Secret == config.DefaultConfig().Session.Secret {
		logger.Warn("Using the development session secret; set PNM_SESSION_SECRET")
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweep(sweepCtx, state, time.Minute)

	httpServer := web.NewServer(state).HTTPServer(cfg.Server.Addr())

	go func() {
		logger.Info("Server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	// Graceful shutdown
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("err", err))
	}

	logger.Info("Server stopped")
}

// sweep drops expired sessions and idle rate limit buckets.
func sweep(ctx context.Context, state *app.State, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch store := state.Sessions.(type) {
			case *session.MemoryStore:
				if n := store.Sweep(); n > 0 {
					state.Logger.Debug("Expired sessions removed", slog.Int("count", n))
				}
			case *session.PostgresStore:
				if n, err := store.PurgeExpired(ctx); err != nil {
					state.Logger.Warn("Failed to purge sessions", slog.Any("err", err))
				} else if n > 0 {
					state.Logger.Debug("Expired sessions removed", slog.Int64("count", n))
				}
			}
			if limiter, ok := state.Limiter.(*ratelimit.Memory); ok {
				limiter.Sweep(ratelimit.Month)
			}
		}
	}
}
