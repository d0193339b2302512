// Package proximity asks a /planes endpoint for the aircraft around the
// session's stored location.
package proximity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/unklstewy/planes-near-me/internal/render"
	"github.com/unklstewy/planes-near-me/internal/session"
	"github.com/unklstewy/planes-near-me/pkg/adsb"
	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// User-facing texts.
const (
	LoadingText    = "Fetching plane data..."
	NoPlanesText   = "No planes found within the specified radius. Try making the radius bigger."
	NoAirborneText = "No airborne planes found within the specified radius."
	FailureText    = "An error occurred while fetching data."
)

var (
	// ErrNoLocation is returned when the session has no stored coordinates.
	ErrNoLocation = errors.New(`Please click "Get My Location" first.`)

	// ErrInvalidRadius is returned for radii that are not a positive number.
	ErrInvalidRadius = errors.New("radius must be a positive number of nautical miles")
)

// Kind classifies a successful query.
type Kind string

const (
	KindNoPlanes   Kind = "no_planes"
	KindNoAirborne Kind = "no_airborne"
	KindPlanes     Kind = "planes"
)

// Result is the outcome of a successful query.
type Result struct {
	Kind     Kind
	Center   coordinates.Geographic
	RadiusNM float64

	// Aircraft holds the airborne reports in response order when Kind is
	// KindPlanes.
	Aircraft []adsb.AircraftReport
}

// Message returns the informational text for results without planes.
func (r Result) Message() string {
	switch r.Kind {
	case KindNoPlanes:
		return NoPlanesText
	case KindNoAirborne:
		return NoAirborneText
	default:
		return ""
	}
}

// Fetcher performs the proximity request.
type Fetcher interface {
	Planes(ctx context.Context, center coordinates.Geographic, radiusNM float64) (*adsb.PlanesResponse, error)
}

// Options bounds the radius.
type Options struct {
	DefaultRadiusNM float64
	MaxRadiusNM     float64
}

// Client runs proximity queries for sessions.
type Client struct {
	fetcher Fetcher
	store   session.Store
	opts    Options
	logger  *slog.Logger
}

// NewClient creates a proximity client. Zero options get 5 and 250 nm.
func NewClient(fetcher Fetcher, store session.Store, opts Options, logger *slog.Logger) *Client {
	if opts.DefaultRadiusNM <= 0 {
		opts.DefaultRadiusNM = 5
	}
	if opts.MaxRadiusNM <= 0 {
		opts.MaxRadiusNM = 250
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{fetcher: fetcher, store: store, opts: opts, logger: logger}
}

// ParseRadius validates a radius as typed by the user. Empty input yields
// the default; values above the maximum are clamped.
func (c *Client) ParseRadius(radius string) (float64, error) {
	radius = strings.TrimSpace(radius)
	if radius == "" {
		return c.opts.DefaultRadiusNM, nil
	}

	r, err := strconv.ParseFloat(radius, 64)
	if err != nil || math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRadius, radius)
	}
	return min(r, c.opts.MaxRadiusNM), nil
}

// Query fetches the aircraft within radius of the session's location.
// It makes no request when the session has no location or the radius is
// invalid, and exactly one request otherwise.
func (c *Client) Query(ctx context.Context, sessionID, radius string) (Result, error) {
	center, ok, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read session location: %w", err)
	}
	if !ok {
		return Result{}, ErrNoLocation
	}

	radiusNM, err := c.ParseRadius(radius)
	if err != nil {
		return Result{}, err
	}

	return c.QueryAt(ctx, center, radiusNM)
}

// QueryAt fetches the aircraft within radiusNM of center.
func (c *Client) QueryAt(ctx context.Context, center coordinates.Geographic, radiusNM float64) (Result, error) {
	result := Result{Center: center, RadiusNM: radiusNM}

	c.logger.Debug("querying planes", "center", center.String(), "radius_nm", radiusNM)

	resp, err := c.fetcher.Planes(ctx, center, radiusNM)
	if err != nil {
		c.logger.Error("plane query failed", "error", err)
		return Result{}, fmt.Errorf("Failed to fetch data: %w", err)
	}

	if resp == nil || len(resp.Aircraft) == 0 {
		result.Kind = KindNoPlanes
		return result, nil
	}

	airborne := render.FilterAirborne(resp.Aircraft)
	if len(airborne) == 0 {
		result.Kind = KindNoAirborne
		return result, nil
	}

	result.Kind = KindPlanes
	result.Aircraft = airborne
	c.logger.Debug("plane query complete", "total", len(resp.Aircraft), "airborne", len(airborne))
	return result, nil
}
