// Planes Near Me probe
// Queries the configured upstream feed once and prints the enriched plane
// list, or with -bracket searches for the fastest call spacing the feed
// accepts without answering 429.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/unklstewy/planes-near-me/internal/app"
	"github.com/unklstewy/planes-near-me/internal/logging"
	"github.com/unklstewy/planes-near-me/internal/nearby"
	"github.com/unklstewy/planes-near-me/internal/render"
	"github.com/unklstewy/planes-near-me/pkg/adsb"
	"github.com/unklstewy/planes-near-me/pkg/airline"
	"github.com/unklstewy/planes-near-me/pkg/config"
	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	lat := flag.Float64("lat", 35.2144, "Latitude to query")
	lon := flag.Float64("lon", -80.9431, "Longitude to query")
	radius := flag.Float64("radius", 25, "Search radius in nautical miles")
	retries := flag.Int("retries", 3, "Retries for a single query")
	doBracket := flag.Bool("bracket", false, "Search for the fastest safe call spacing")
	minDelay := flag.Float64("min", 1.0, "Minimum delay between calls in seconds")
	maxDelay := flag.Float64("max", 10.0, "Maximum delay between calls in seconds")
	calls := flag.Int("calls", 5, "Number of test calls per interval")
	save := flag.Bool("save", false, "With -bracket, write the recommended spacing back to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.New("planes-probe", cfg.Log)
	defer closer.Close()

	center := coordinates.Geographic{Latitude: *lat, Longitude: *lon}
	if err := center.Validate(); err != nil {
		logger.Error("Invalid position", slog.Any("err", err))
		os.Exit(1)
	}

	ctx := context.Background()

	if *doBracket {
		// Client side pacing would hide the feed's own limit
		trialCfg := cfg.ADSB
		trialCfg.RateLimitSeconds = 0.001
		source := app.NewDataSource(trialCfg)
		defer source.Close()

		logger.Info("Bracketing call spacing",
			slog.String("source", cfg.ADSB.Source),
			slog.Float64("min_s", *minDelay),
			slog.Float64("max_s", *maxDelay),
			slog.Int("calls", *calls))

		safe, err := bracket(ctx, logger, upstreamTrial(source, center, *radius, logger),
			seconds(*minDelay), seconds(*maxDelay), 500*time.Millisecond, *calls, 10)
		if err != nil {
			logger.Error("Bracketing failed", slog.Any("err", err))
			os.Exit(1)
		}
		fmt.Printf("Recommended rate_limit_seconds: %.1f (about %.0f calls per minute)\n",
			safe.Seconds(), time.Minute.Seconds()/safe.Seconds())

		if *save {
			if err := saveSpacing(cfg, *configPath, safe); err != nil {
				logger.Error("Failed to save config", slog.Any("err", err))
				os.Exit(1)
			}
			logger.Info("Config updated", slog.String("path", *configPath))
		}
		return
	}

	service := nearby.NewService(app.NewDataSource(cfg.ADSB), cfg.Proximity.MaxRadiusNM, logger)
	defer service.Close()

	loadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	dir, err := airline.Load(loadCtx, cfg.Airlines.Source, &http.Client{Timeout: 10 * time.Second})
	cancel()
	if err != nil {
		logger.Warn("Airline directory unavailable", slog.Any("err", err))
	}

	backoff := adsb.DefaultBackoff()
	backoff.Retries = *retries
	reports, err := adsb.Retry(ctx, backoff, func(ctx context.Context) ([]adsb.AircraftReport, error) {
		return service.Nearby(ctx, center, *radius)
	})
	if err != nil {
		if rle, ok := adsb.IsRateLimitError(err); ok {
			logger.Error("Feed rate limited",
				slog.Int("limit", rle.Headers.Limit),
				slog.Int("remaining", rle.Headers.Remaining),
				slog.Time("reset", rle.Headers.Reset))
		} else {
			logger.Error("Query failed", slog.Any("err", err))
		}
		os.Exit(1)
	}

	logger.Info("Query complete", slog.Int("aircraft", len(reports)))

	airborne := render.FilterAirborne(reports)
	if len(airborne) == 0 {
		fmt.Println("No airborne planes found within the specified radius.")
		return
	}
	if err := (render.Terminal{}).RenderRows(os.Stdout, render.Prepare(airborne, dir)); err != nil {
		logger.Error("Render failed", slog.Any("err", err))
		os.Exit(1)
	}
	fmt.Println()
}

// saveSpacing records the spacing found by bracketing as adsb.rate_limit_seconds.
func saveSpacing(cfg *config.Config, path string, spacing time.Duration) error {
	cfg.ADSB.RateLimitSeconds = math.Round(spacing.Seconds()*10) / 10
	return cfg.Save(path)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
