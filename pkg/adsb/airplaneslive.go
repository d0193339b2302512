package adsb

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// MaxAirplanesLiveRadiusNM is the largest radius the /point endpoint accepts.
const MaxAirplanesLiveRadiusNM = 250.0

// AirplanesLiveClient implements the DataSource interface for airplanes.live API.
// API Documentation: https://airplanes.live/api-guide/
// Rate Limit: 1 request per second
type AirplanesLiveClient struct {
	// baseURL is the API base URL (default: https://api.airplanes.live/v2)
	baseURL string

	// httpClient is the HTTP client used for API requests
	httpClient *http.Client

	// limiter paces outgoing requests
	limiter *rate.Limiter
}

// NewAirplanesLiveClient creates a new airplanes.live API client.
// baseURL should be "https://api.airplanes.live/v2" (or custom for testing).
// minInterval is the minimum spacing between requests; 0 means one second.
func NewAirplanesLiveClient(baseURL string, minInterval time.Duration) *AirplanesLiveClient {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &AirplanesLiveClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// NearbyAircraft returns all aircraft within a radius of a given point.
// Uses the /point/[lat]/[lon]/[radius] endpoint, which takes whole nautical
// miles: fractional radii round up and radii above 250 NM are capped.
func (c *AirplanesLiveClient) NearbyAircraft(ctx context.Context, center coordinates.Geographic, radiusNM float64) ([]AircraftReport, error) {
	radiusNM = math.Max(math.Ceil(radiusNM), 1)
	if radiusNM > MaxAirplanesLiveRadiusNM {
		radiusNM = MaxAirplanesLiveRadiusNM
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/point/%.4f/%.4f/%.0f", c.baseURL, center.Latitude, center.Longitude, radiusNM)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var apiResp PlanesResponse
	if err := getJSON(ctx, c.httpClient, req, &apiResp); err != nil {
		return nil, err
	}

	return apiResp.Aircraft, nil
}

// Close cleanly shuts down the client.
// For airplanes.live, this is a no-op as there are no persistent connections.
func (c *AirplanesLiveClient) Close() error {
	return nil
}
