// Package locate acquires the user's current position and records it for the
// session that asked.
package locate

import (
	"context"
	"errors"
	"fmt"

	"github.com/unklstewy/planes-near-me/internal/session"
	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// Position error codes, numbered as browsers report them.
const (
	PermissionDenied    = 1
	PositionUnavailable = 2
	Timeout             = 3
)

// ErrUnsupported is returned when no position provider is available.
var ErrUnsupported = errors.New("Geolocation is not supported by your browser.")

// PositionError is a failed position request.
type PositionError struct {
	Code int
}

func (e *PositionError) Error() string {
	switch e.Code {
	case PermissionDenied:
		return "Permission denied. Please allow location access."
	case PositionUnavailable:
		return "Position unavailable. Please try again."
	case Timeout:
		return "Request timed out. Please refresh and try again."
	default:
		return "An unknown error occurred."
	}
}

// Provider yields the current position.
type Provider interface {
	CurrentPosition(ctx context.Context) (coordinates.Geographic, error)
}

// Static always reports the same coordinates.
type Static coordinates.Geographic

// CurrentPosition implements Provider.
func (s Static) CurrentPosition(ctx context.Context) (coordinates.Geographic, error) {
	if err := ctx.Err(); err != nil {
		return coordinates.Geographic{}, &PositionError{Code: Timeout}
	}
	return coordinates.Geographic(s), nil
}

// Reported is a position a browser already resolved: either coordinates or
// an error code.
type Reported struct {
	Coordinates coordinates.Geographic
	ErrorCode   int
}

// CurrentPosition implements Provider.
func (r Reported) CurrentPosition(context.Context) (coordinates.Geographic, error) {
	if r.ErrorCode != 0 {
		return coordinates.Geographic{}, &PositionError{Code: r.ErrorCode}
	}
	return r.Coordinates, nil
}

// Readout is what the page shows after a successful acquisition.
type Readout struct {
	Coordinates coordinates.Geographic `json:"-"`
	Text        string                 `json:"text"`
	MapURL      string                 `json:"map_url"`
}

// NewReadout formats c for display.
func NewReadout(c coordinates.Geographic) Readout {
	return Readout{
		Coordinates: c,
		Text:        fmt.Sprintf("Location: %s", c),
		MapURL:      c.MapsURL(),
	}
}

// Acquirer asks a Provider for a position and stores it in the session.
type Acquirer struct {
	store session.Store
}

// NewAcquirer creates an Acquirer writing to store.
func NewAcquirer(store session.Store) *Acquirer {
	return &Acquirer{store: store}
}

// Acquire resolves the position from provider and stores it for sessionID.
// Nothing is stored on failure. A nil provider yields ErrUnsupported.
func (a *Acquirer) Acquire(ctx context.Context, sessionID string, provider Provider) (Readout, error) {
	if provider == nil {
		return Readout{}, ErrUnsupported
	}

	c, err := provider.CurrentPosition(ctx)
	if err != nil {
		var perr *PositionError
		if errors.As(err, &perr) {
			return Readout{}, perr
		}
		return Readout{}, &PositionError{Code: PositionUnavailable}
	}
	if err := c.Validate(); err != nil {
		return Readout{}, &PositionError{Code: PositionUnavailable}
	}

	if err := a.store.Set(ctx, sessionID, c); err != nil {
		return Readout{}, fmt.Errorf("failed to store location: %w", err)
	}

	return NewReadout(c), nil
}
