// Package render turns aircraft reports into display rows and writes them
// out as HTML or terminal tables.
package render

import (
	"fmt"
	"math"
	"math/big"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/unklstewy/planes-near-me/pkg/adsb"
	"github.com/unklstewy/planes-near-me/pkg/airline"
)

// Unknown is shown for any field the feed did not supply.
const Unknown = airline.Unknown

// NoLink is the href used when a flight cannot be tracked.
const NoLink = "#"

const (
	flightAwareBase   = "https://www.flightaware.com/live/flight/"
	flightradar24Base = "https://www.flightradar24.com/"
)

// Row is one aircraft ready for display. Altitude is in feet and distance in
// nautical miles; units are left to the presentation.
type Row struct {
	Airline          string
	Flight           string
	AltitudeDisplay  string
	DistanceDisplay  string
	FlightAwareURL   string
	Flightradar24URL string
}

var printer = message.NewPrinter(language.English)

// FilterAirborne returns the reports whose barometric altitude is not
// "ground". The input slice is not modified.
func FilterAirborne(reports []adsb.AircraftReport) []adsb.AircraftReport {
	out := make([]adsb.AircraftReport, 0, len(reports))
	for _, r := range reports {
		if !r.OnGround() {
			out = append(out, r)
		}
	}
	return out
}

// SortByDistance sorts reports in place by ascending dist. Reports without
// a dist sort as if it were 0; ties keep their input order.
func SortByDistance(reports []adsb.AircraftReport) {
	slices.SortStableFunc(reports, func(a, b adsb.AircraftReport) int {
		da, db := distOrZero(a), distOrZero(b)
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

func distOrZero(r adsb.AircraftReport) float64 {
	if r.Dist == nil || math.IsNaN(*r.Dist) {
		return 0
	}
	return *r.Dist
}

// Enrich converts each report to a Row, looking up airline names in dir.
func Enrich(reports []adsb.AircraftReport, dir *airline.Directory) []Row {
	rows := make([]Row, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, EnrichOne(r, dir))
	}
	return rows
}

// EnrichOne converts a single report.
func EnrichOne(r adsb.AircraftReport, dir *airline.Directory) Row {
	row := Row{
		Airline:          Unknown,
		Flight:           Unknown,
		AltitudeDisplay:  Unknown,
		DistanceDisplay:  Unknown,
		FlightAwareURL:   NoLink,
		Flightradar24URL: NoLink,
	}

	if r.Flight != nil {
		if flight := strings.TrimSpace(*r.Flight); flight != "" {
			row.Flight = flight
			row.Airline = dir.Lookup(airlineCode(flight))
			escaped := url.PathEscape(flight)
			row.FlightAwareURL = flightAwareBase + escaped
			row.Flightradar24URL = flightradar24Base + escaped
		}
	}

	if r.AltBaro.Valid {
		row.AltitudeDisplay = FormatAltitude(r.AltBaro.Feet)
	}

	if r.Dist != nil && !math.IsNaN(*r.Dist) && !math.IsInf(*r.Dist, 0) {
		row.DistanceDisplay = FormatDistance(*r.Dist)
	}

	return row
}

// airlineCode is the first three characters of the callsign, upper-cased.
func airlineCode(flight string) string {
	runes := []rune(flight)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return strings.ToUpper(string(runes))
}

// FormatAltitude groups thousands, e.g. 5000 -> "5,000". Fractional feet
// keep up to three digits.
func FormatAltitude(ft float64) string {
	if ft == math.Trunc(ft) && math.Abs(ft) < 1e15 {
		return printer.Sprintf("%d", int64(ft))
	}
	return printer.Sprint(number.Decimal(ft, number.MaxFractionDigits(3)))
}

// FormatDistance renders nautical miles with one fractional digit. Ties
// round away from zero on the exact binary value, so 0.25 gives "0.3" while
// 0.35 (stored just below) gives "0.3".
func FormatDistance(nm float64) string {
	if math.IsNaN(nm) || math.IsInf(nm, 0) || math.Abs(nm) >= 1e15 {
		return fmt.Sprintf("%.1f", nm)
	}

	sign := ""
	if nm < 0 {
		sign = "-"
		nm = -nm
	}

	tenths := new(big.Float).SetPrec(256).SetFloat64(nm)
	tenths.Mul(tenths, big.NewFloat(10))
	tenths.Add(tenths, big.NewFloat(0.5))
	n, _ := tenths.Int64()
	return fmt.Sprintf("%s%d.%d", sign, n/10, n%10)
}

// Prepare sorts a copy of reports by distance and enriches it. The caller's
// slice is left untouched; filtering is the caller's concern.
func Prepare(reports []adsb.AircraftReport, dir *airline.Directory) []Row {
	sorted := slices.Clone(reports)
	SortByDistance(sorted)
	return Enrich(sorted, dir)
}
