// Package app assembles the application state shared by the web surface and
// the terminal client: the airline directory, session storage, and the
// location, proximity and rendering components.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/unklstewy/planes-near-me/internal/db"
	"github.com/unklstewy/planes-near-me/internal/locate"
	"github.com/unklstewy/planes-near-me/internal/nearby"
	"github.com/unklstewy/planes-near-me/internal/proximity"
	"github.com/unklstewy/planes-near-me/internal/ratelimit"
	"github.com/unklstewy/planes-near-me/internal/render"
	"github.com/unklstewy/planes-near-me/internal/session"
	"github.com/unklstewy/planes-near-me/pkg/adsb"
	"github.com/unklstewy/planes-near-me/pkg/airline"
	"github.com/unklstewy/planes-near-me/pkg/config"
)

// DefaultAirplanesLiveURL is used when adsb.base_url is empty.
const DefaultAirplanesLiveURL = "https://api.airplanes.live/v2"

// State is the context object handed to every surface.
type State struct {
	Config    *config.Config
	Logger    *slog.Logger
	Airlines  *airline.Directory
	Sessions  session.Store
	Tokens    *session.Tokens
	Locator   *locate.Acquirer
	Proximity *proximity.Client
	Renderer  render.Renderer

	// Nearby and Limiter back the /planes endpoint.
	Nearby  *nearby.Service
	Limiter ratelimit.Limiter

	closers []io.Closer
}

// Close releases every resource opened by Build.
func (s *State) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build wires the components described by cfg. A failure to load the airline
// directory is logged and leaves an empty directory; other failures abort.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*State, error) {
	s := &State{
		Config:   cfg,
		Logger:   logger,
		Tokens:   session.NewTokens(cfg.Session.Secret, cfg.Session.TTL()),
		Renderer: render.ForVariant(cfg.Render.Variant),
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	dir, err := airline.Load(ctx, cfg.Airlines.Source, httpClient)
	if err != nil {
		logger.Warn("Failed to load airline data. Please try again later.", slog.Any("err", err))
	} else {
		logger.Info("Airline directory loaded", slog.Int("airlines", dir.Len()))
	}
	s.Airlines = dir

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, redisClient)
	}

	if err := s.openSessions(ctx, redisClient); err != nil {
		s.Close()
		return nil, err
	}
	s.Locator = locate.NewAcquirer(s.Sessions)

	s.Nearby = nearby.NewService(NewDataSource(cfg.ADSB), cfg.Proximity.MaxRadiusNM, logger)
	s.closers = append(s.closers, s.Nearby)

	if cfg.RateLimit.Enabled {
		limits := ratelimit.Limits{
			PerHour:  cfg.RateLimit.RequestsPerHour,
			PerMonth: cfg.RateLimit.RequestsPerMonth,
		}
		if redisClient != nil {
			s.Limiter = ratelimit.NewRedis(redisClient, limits)
		} else {
			s.Limiter = ratelimit.NewMemory(limits)
		}
	}

	// An empty endpoint answers proximity queries from this process.
	var fetcher proximity.Fetcher = s.Nearby
	if cfg.Proximity.Endpoint != "" {
		fetcher = adsb.NewPlanesClient(cfg.Proximity.Endpoint, httpClient)
	}
	s.Proximity = proximity.NewClient(fetcher, s.Sessions, proximity.Options{
		DefaultRadiusNM: cfg.Proximity.DefaultRadiusNM,
		MaxRadiusNM:     cfg.Proximity.MaxRadiusNM,
	}, logger)

	return s, nil
}

func (s *State) openSessions(ctx context.Context, redisClient *redis.Client) error {
	cfg := s.Config
	switch cfg.Session.Store {
	case config.StoreRedis:
		if redisClient == nil {
			return fmt.Errorf("session store %q needs redis.addr", cfg.Session.Store)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.Sessions = session.NewRedisStore(redisClient, cfg.Session.TTL())

	case config.StorePostgres:
		database, err := db.ConnectWithRetry(ctx, cfg.Database, 5, time.Second, s.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		s.closers = append(s.closers, database)
		if err := database.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		s.Sessions = session.NewPostgresStore(db.NewSessionRepository(database, cfg.Session.TTL()))

	default:
		s.Sessions = session.NewMemoryStore(cfg.Session.TTL())
	}

	s.Logger.Info("Session store ready", slog.String("store", cfg.Session.Store))
	return nil
}

// NewDataSource returns the upstream feed selected by cfg.
func NewDataSource(cfg config.ADSBConfig) adsb.DataSource {
	switch cfg.Source {
	case "airplanes.live":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultAirplanesLiveURL
		}
		interval := time.Duration(cfg.RateLimitSeconds * float64(time.Second))
		return adsb.NewAirplanesLiveClient(baseURL, interval)
	default:
		return adsb.NewADSBExchangeClient(cfg.BaseURL, cfg.APIKey)
	}
}

// Render writes the fragment for a successful query: the plane list, or the
// informational message when there is nothing to list.
func (s *State) Render(w io.Writer, result proximity.Result, r render.Renderer) error {
	if r == nil {
		r = s.Renderer
	}
	if result.Kind != proximity.KindPlanes {
		return render.Message(w, result.Message())
	}
	return r.RenderRows(w, render.Prepare(result.Aircraft, s.Airlines))
}

// RenderFailure writes the fragment shown after a failed query.
func RenderFailure(w io.Writer) error {
	return render.Message(w, proximity.FailureText)
}
