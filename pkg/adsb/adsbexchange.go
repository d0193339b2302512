package adsb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

const (
	// DefaultADSBExchangeURL is the RapidAPI gateway for ADS-B Exchange.
	DefaultADSBExchangeURL = "https://adsbexchange-com1.p.rapidapi.com"

	// DefaultADSBExchangeHost is sent as x-rapidapi-host.
	DefaultADSBExchangeHost = "adsbexchange-com1.p.rapidapi.com"
)

// ADSBExchangeClient implements DataSource for the ADS-B Exchange API
// served through RapidAPI.
type ADSBExchangeClient struct {
	baseURL    string
	apiKey     string
	apiHost    string
	httpClient *http.Client
}

// NewADSBExchangeClient creates a client. An empty baseURL selects the
// RapidAPI gateway; the host header is derived from baseURL.
func NewADSBExchangeClient(baseURL, apiKey string) *ADSBExchangeClient {
	if baseURL == "" {
		baseURL = DefaultADSBExchangeURL
	}
	host := DefaultADSBExchangeHost
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &ADSBExchangeClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		apiHost: host,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NearbyAircraft uses the /v2/lat/{lat}/lon/{lon}/dist/{dist}/ endpoint.
func (c *ADSBExchangeClient) NearbyAircraft(ctx context.Context, center coordinates.Geographic, radiusNM float64) ([]AircraftReport, error) {
	u := fmt.Sprintf("%s/v2/lat/%s/lon/%s/dist/%s/",
		c.baseURL,
		strconv.FormatFloat(center.Latitude, 'f', -1, 64),
		strconv.FormatFloat(center.Longitude, 'f', -1, 64),
		strconv.FormatFloat(radiusNM, 'f', -1, 64),
	)
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.apiHost)

	var apiResp PlanesResponse
	if err := getJSON(ctx, c.httpClient, req, &apiResp); err != nil {
		return nil, err
	}
	return apiResp.Aircraft, nil
}

// Close is a no-op; the client holds no persistent connections.
func (c *ADSBExchangeClient) Close() error {
	return nil
}
