// Package nearby serves the /planes proximity endpoint from an upstream
// ADS-B feed.
package nearby

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/unklstewy/planes-near-me/pkg/adsb"
	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// DefaultRadiusNM is used when the request carries no dist.
const DefaultRadiusNM = 5.0

// Service queries an upstream feed and annotates each report with its
// great-circle distance from the query origin.
type Service struct {
	source    adsb.DataSource
	maxRadius float64
	logger    *slog.Logger
}

// NewService wraps source. maxRadiusNM <= 0 means no cap.
func NewService(source adsb.DataSource, maxRadiusNM float64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, maxRadius: maxRadiusNM, logger: logger}
}

// Nearby returns the aircraft around center, closest first. Reports with a
// position get dist recomputed in nautical miles; reports without one keep
// the upstream dist, or sort last when they have none.
func (s *Service) Nearby(ctx context.Context, center coordinates.Geographic, radiusNM float64) ([]adsb.AircraftReport, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if s.maxRadius > 0 && radiusNM > s.maxRadius {
		radiusNM = s.maxRadius
	}

	reports, err := s.source.NearbyAircraft(ctx, center, radiusNM)
	if err != nil {
		return nil, fmt.Errorf("upstream query failed: %w", err)
	}

	for i := range reports {
		if pos, ok := reports[i].Position(); ok {
			d := coordinates.DistanceNauticalMiles(center, pos)
			reports[i].Dist = &d
		}
	}

	SortAbsentLast(reports)

	s.logger.Debug("nearby aircraft", "center", center.String(), "radius_nm", radiusNM, "count", len(reports))
	return reports, nil
}

// Close releases the upstream source.
func (s *Service) Close() error {
	return s.source.Close()
}

// SortAbsentLast sorts reports by ascending dist, stable, with reports
// lacking a dist at the end.
func SortAbsentLast(reports []adsb.AircraftReport) {
	slices.SortStableFunc(reports, func(a, b adsb.AircraftReport) int {
		da, db := distOrInf(a), distOrInf(b)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		default:
			return 0
		}
	})
}

func distOrInf(r adsb.AircraftReport) float64 {
	if r.Dist == nil || math.IsNaN(*r.Dist) {
		return math.Inf(1)
	}
	return *r.Dist
}

// Planes runs Nearby and wraps the result in the /planes response shape, so
// the service can answer proximity queries in-process.
func (s *Service) Planes(ctx context.Context, center coordinates.Geographic, radiusNM float64) (*adsb.PlanesResponse, error) {
	reports, err := s.Nearby(ctx, center, radiusNM)
	if err != nil {
		return nil, err
	}
	return &adsb.PlanesResponse{Aircraft: reports}, nil
}
