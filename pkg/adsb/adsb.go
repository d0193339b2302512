package adsb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// groundSentinel is the value feeds report in alt_baro for aircraft on the ground.
const groundSentinel = "ground"

// AircraftReport is one entry of the "ac" array returned by ADS-B feeds and
// by the /planes proximity endpoint. Pointer fields are nil when the feed
// omits them (or sends null).
type AircraftReport struct {
	// Hex is the ICAO Mode S hex code (e.g., "a12345")
	Hex string `json:"hex,omitempty"`

	// Flight is the callsign/flight number, often padded with spaces
	Flight *string `json:"flight,omitempty"`

	// Lat is latitude in decimal degrees
	Lat *float64 `json:"lat,omitempty"`

	// Lon is longitude in decimal degrees
	Lon *float64 `json:"lon,omitempty"`

	// AltBaro is barometric altitude in feet, or "ground"
	AltBaro Altitude `json:"alt_baro,omitzero"`

	// AltGeom is geometric (GPS) altitude in feet
	AltGeom Altitude `json:"alt_geom,omitzero"`

	// GS is ground speed in knots
	GS *float64 `json:"gs,omitempty"`

	// Track is ground track in degrees (0-360)
	Track *float64 `json:"track,omitempty"`

	// Dist is the distance from the query origin in nautical miles
	Dist *float64 `json:"dist,omitempty"`
}

// OnGround reports whether the barometric altitude carries the "ground" sentinel.
func (r AircraftReport) OnGround() bool {
	return r.AltBaro.Ground
}

// Position returns the reported position, if both lat and lon are present.
func (r AircraftReport) Position() (coordinates.Geographic, bool) {
	if r.Lat == nil || r.Lon == nil {
		return coordinates.Geographic{}, false
	}
	return coordinates.Geographic{Latitude: *r.Lat, Longitude: *r.Lon}, true
}

// Altitude is an ADS-B altitude field. Feeds send either a number of feet or
// the string "ground"; the field may also be missing entirely.
type Altitude struct {
	Feet   float64
	Ground bool
	Valid  bool // Feet holds a reported value
}

// Feet returns a numeric altitude.
func Feet(ft float64) Altitude {
	return Altitude{Feet: ft, Valid: true}
}

// OnGround returns the "ground" altitude.
func OnGround() Altitude {
	return Altitude{Ground: true}
}

// IsZero reports whether the altitude was absent from the feed.
func (a Altitude) IsZero() bool {
	return !a.Valid && !a.Ground
}

// UnmarshalJSON accepts a number, "ground", or null. Any other string,
// including "Ground" or " ground ", is treated as absent.
func (a *Altitude) UnmarshalJSON(data []byte) error {
	*a = Altitude{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid altitude %s: %w", data, err)
		}
		if s == groundSentinel {
			a.Ground = true
		}
		return nil
	}

	var ft float64
	if err := json.Unmarshal(data, &ft); err != nil {
		return fmt.Errorf("invalid altitude %s: %w", data, err)
	}
	a.Feet = ft
	a.Valid = true
	return nil
}

// MarshalJSON writes the altitude back in feed form.
func (a Altitude) MarshalJSON() ([]byte, error) {
	switch {
	case a.Ground:
		return json.Marshal(groundSentinel)
	case a.Valid:
		return json.Marshal(a.Feet)
	default:
		return []byte("null"), nil
	}
}

// PlanesResponse is the JSON body shared by the upstream feeds and the
// /planes endpoint.
type PlanesResponse struct {
	// Aircraft is nil when the body has no "ac" key
	Aircraft []AircraftReport `json:"ac"`
}

// UnmarshalJSON decodes the "ac" array entry by entry so that one malformed
// entry does not fail the whole response. Fields of the wrong type are
// dropped from their entry; entries that are not objects are skipped.
func (p *PlanesResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Aircraft []json.RawMessage `json:"ac"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Aircraft = nil
	if raw.Aircraft == nil {
		return nil
	}

	p.Aircraft = make([]AircraftReport, 0, len(raw.Aircraft))
	for _, entry := range raw.Aircraft {
		if report, ok := decodeReport(entry); ok {
			p.Aircraft = append(p.Aircraft, report)
		}
	}
	return nil
}

// decodeReport decodes one "ac" entry, falling back to field-by-field
// decoding when the entry as a whole does not fit AircraftReport.
func decodeReport(entry json.RawMessage) (AircraftReport, bool) {
	var report AircraftReport
	if err := json.Unmarshal(entry, &report); err == nil {
		return report, true
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return AircraftReport{}, false
	}

	report = AircraftReport{}
	for name, value := range fields {
		single, err := json.Marshal(map[string]json.RawMessage{name: value})
		if err != nil {
			continue
		}
		// Decode into a scratch value first so a bad field leaves no trace
		var scratch AircraftReport
		if json.Unmarshal(single, &scratch) != nil {
			continue
		}
		json.Unmarshal(single, &report)
	}
	return report, true
}

// DataSource is the interface that all upstream ADS-B providers implement.
// This abstraction allows switching between online services (ADS-B Exchange,
// airplanes.live) without touching the /planes endpoint.
type DataSource interface {
	// NearbyAircraft returns the aircraft reported within radiusNM nautical
	// miles of center, in the provider's order.
	NearbyAircraft(ctx context.Context, center coordinates.Geographic, radiusNM float64) ([]AircraftReport, error)

	// Close cleanly shuts down the data source connection.
	Close() error
}
