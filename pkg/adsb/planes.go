package adsb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// DefaultPlanesURL is the public "planes near me" service.
const DefaultPlanesURL = "https://planesnear.me"

// PlanesClient talks to a /planes proximity endpoint, either the public
// service or another instance of planes-server.
type PlanesClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPlanesClient creates a client for the endpoint at baseURL.
// A nil httpClient gets a 10 second timeout.
func NewPlanesClient(baseURL string, httpClient *http.Client) *PlanesClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &PlanesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Planes issues one GET /planes?lat=..&lon=..&dist=.. request. Exactly one
// request is made per call; failures are not retried.
func (c *PlanesClient) Planes(ctx context.Context, center coordinates.Geographic, radiusNM float64) (*PlanesResponse, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(center.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(center.Longitude, 'f', -1, 64))
	q.Set("dist", strconv.FormatFloat(radiusNM, 'f', -1, 64))

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/planes?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var resp PlanesResponse
	if err := getJSON(ctx, c.httpClient, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
