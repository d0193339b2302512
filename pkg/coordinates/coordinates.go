package coordinates

import (
	"errors"
	"fmt"
	"math"
)

// Constants for coordinate calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// EarthRadiusKm is the Earth's radius in kilometers (WGS84 mean radius)
	EarthRadiusKm = 6371.0

	// KmPerNauticalMile is the length of one nautical mile in kilometers
	KmPerNauticalMile = 1.852
)

// ErrOutOfRange is returned by Validate for latitudes or longitudes outside
// the WGS84 bounds.
var ErrOutOfRange = errors.New("coordinates out of range")

// Geographic represents a position on Earth's surface.
// Uses the WGS84 coordinate system (same as GPS).
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64 `json:"longitude"`
}

// Validate reports whether g lies within the WGS84 bounds.
func (g Geographic) Validate() error {
	if math.IsNaN(g.Latitude) || math.IsNaN(g.Longitude) ||
		g.Latitude < -90 || g.Latitude > 90 ||
		g.Longitude < -180 || g.Longitude > 180 {
		return fmt.Errorf("%w: %v, %v", ErrOutOfRange, g.Latitude, g.Longitude)
	}
	return nil
}

// String formats the position with six decimal places, e.g. "52.370216, 4.895168".
func (g Geographic) String() string {
	return fmt.Sprintf("%.6f, %.6f", g.Latitude, g.Longitude)
}

// MapsURL returns a Google Maps search link centred on the position.
func (g Geographic) MapsURL() string {
	return fmt.Sprintf("https://www.google.com/maps/search/%.6f,+%.6f", g.Latitude, g.Longitude)
}

// DistanceNauticalMiles calculates the great-circle distance between two points.
// Uses the Haversine formula for accuracy over short and long distances.
// Returns distance in nautical miles.
func DistanceNauticalMiles(from, to Geographic) float64 {
	lat1Rad := from.Latitude * DegreesToRadians
	lon1Rad := from.Longitude * DegreesToRadians
	lat2Rad := to.Latitude * DegreesToRadians
	lon2Rad := to.Longitude * DegreesToRadians

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	// Haversine formula
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c / KmPerNauticalMile
}
