package adsb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// TestAltitudeJSON tests decoding of the number | "ground" | absent altitude.
func TestAltitudeJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Altitude
	}{
		{"Numeric altitude", `{"alt_baro": 35000}`, Feet(35000)},
		{"Fractional altitude", `{"alt_baro": 1250.5}`, Feet(1250.5)},
		{"Ground sentinel", `{"alt_baro": "ground"}`, OnGround()},
		{"Null", `{"alt_baro": null}`, Altitude{}},
		{"Absent", `{}`, Altitude{}},
		{"Unknown string", `{"alt_baro": "n/a"}`, Altitude{}},
		{"Capitalised ground", `{"alt_baro": "Ground"}`, Altitude{}},
		{"Padded ground", `{"alt_baro": " ground "}`, Altitude{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r AircraftReport
			if err := json.Unmarshal([]byte(tt.body), &r); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if r.AltBaro != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, r.AltBaro)
			}
		})
	}

	t.Run("Rejects non-numeric tokens", func(t *testing.T) {
		var r AircraftReport
		if err := json.Unmarshal([]byte(`{"alt_baro": true}`), &r); err == nil {
			t.Error("Expected error for boolean altitude")
		}
	})
}

// TestPlanesResponseMalformedEntries checks that bad entries do not fail
// the whole response.
func TestPlanesResponseMalformedEntries(t *testing.T) {
	body := `{"ac":[
		{"flight":123,"alt_baro":5000,"dist":1.5},
		{"flight":"KLM123","alt_baro":true,"dist":2.5},
		"garbage",
		{"flight":"UAL9","alt_baro":"ground"}
	]}`

	var resp PlanesResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(resp.Aircraft) != 3 {
		t.Fatalf("Expected 3 aircraft, got %d", len(resp.Aircraft))
	}

	first := resp.Aircraft[0]
	if first.Flight != nil {
		t.Errorf("Expected numeric flight to be dropped, got %q", *first.Flight)
	}
	if first.AltBaro != Feet(5000) || first.Dist == nil || *first.Dist != 1.5 {
		t.Errorf("Expected remaining fields kept, got %+v", first)
	}

	second := resp.Aircraft[1]
	if second.Flight == nil || *second.Flight != "KLM123" {
		t.Errorf("Expected flight KLM123, got %v", second.Flight)
	}
	if !second.AltBaro.IsZero() {
		t.Errorf("Expected boolean altitude to be absent, got %+v", second.AltBaro)
	}

	if !resp.Aircraft[2].OnGround() {
		t.Error("Expected third aircraft on ground")
	}
}

func TestPlanesResponseEmptyList(t *testing.T) {
	var resp PlanesResponse
	if err := json.Unmarshal([]byte(`{"ac":[]}`), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if resp.Aircraft == nil || len(resp.Aircraft) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", resp.Aircraft)
	}
}

// TestAircraftReportEncoding checks that absent fields stay absent on re-encode.
func TestAircraftReportEncoding(t *testing.T) {
	in := `{"hex":"4840d6","flight":"KLM123  ","alt_baro":"ground","dist":1.5}`

	var r AircraftReport
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !r.OnGround() {
		t.Error("Expected report to be on ground")
	}
	if r.Flight == nil || *r.Flight != "KLM123  " {
		t.Errorf("Expected raw flight to be preserved, got %v", r.Flight)
	}
	if _, ok := r.Position(); ok {
		t.Error("Expected no position without lat/lon")
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"alt_baro":"ground"`) {
		t.Errorf("Expected ground sentinel in %s", s)
	}
	for _, absent := range []string{"alt_geom", "lat", "lon", "gs", "track"} {
		if strings.Contains(s, `"`+absent+`"`) {
			t.Errorf("Expected %s to be omitted from %s", absent, s)
		}
	}
}

// TestAirplanesLiveNearbyAircraft tests fetching aircraft within a radius.
func TestAirplanesLiveNearbyAircraft(t *testing.T) {
	t.Run("Successful request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			expectedPath := "/point/35.0000/-80.0000/100"
			if r.URL.Path != expectedPath {
				t.Errorf("Expected path %s, got %s", expectedPath, r.URL.Path)
			}
			w.Write([]byte(`{"ac":[{"hex":"a12345","flight":"UAL123 ","lat":35.5,"lon":-80.5,"alt_baro":30000,"gs":450}],"total":1}`))
		}))
		defer server.Close()

		client := NewAirplanesLiveClient(server.URL, time.Millisecond)
		aircraft, err := client.NearbyAircraft(context.Background(), coordinates.Geographic{Latitude: 35.0, Longitude: -80.0}, 100)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(aircraft) != 1 {
			t.Fatalf("Expected 1 aircraft, got %d", len(aircraft))
		}

		ac := aircraft[0]
		if ac.Hex != "a12345" {
			t.Errorf("Expected hex a12345, got %s", ac.Hex)
		}
		if ac.AltBaro != Feet(30000) {
			t.Errorf("Expected altitude 30000, got %+v", ac.AltBaro)
		}
		if pos, ok := ac.Position(); !ok || pos.Latitude != 35.5 {
			t.Errorf("Expected position 35.5, got %+v (ok=%v)", pos, ok)
		}
	})

	t.Run("Caps radius at 250 NM", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/point/35.0000/-80.0000/250" {
				t.Errorf("Expected radius capped at 250, got path %s", r.URL.Path)
			}
			w.Write([]byte(`{"ac":[]}`))
		}))
		defer server.Close()

		client := NewAirplanesLiveClient(server.URL, time.Millisecond)
		if _, err := client.NearbyAircraft(context.Background(), coordinates.Geographic{Latitude: 35.0, Longitude: -80.0}, 500); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	})

	t.Run("Rounds fractional radius up", func(t *testing.T) {
		tests := map[float64]string{
			0.4: "/point/35.0000/-80.0000/1",
			2.1: "/point/35.0000/-80.0000/3",
			5:   "/point/35.0000/-80.0000/5",
		}
		for radius, want := range tests {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != want {
					t.Errorf("Radius %v: expected path %s, got %s", radius, want, r.URL.Path)
				}
				w.Write([]byte(`{"ac":[]}`))
			}))

			client := NewAirplanesLiveClient(server.URL, time.Millisecond)
			if _, err := client.NearbyAircraft(context.Background(), coordinates.Geographic{Latitude: 35.0, Longitude: -80.0}, radius); err != nil {
				t.Errorf("Radius %v: expected no error, got: %v", radius, err)
			}
			server.Close()
		}
	})

	t.Run("Handles rate limit error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.Header().Set("X-Rate-Limit-Limit", "100")
			w.Header().Set("X-Rate-Limit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewAirplanesLiveClient(server.URL, time.Millisecond)
		_, err := client.NearbyAircraft(context.Background(), coordinates.Geographic{}, 10)
		rle, ok := IsRateLimitError(err)
		if !ok {
			t.Fatalf("Expected RateLimitError, got %v", err)
		}
		if rle.RetryAfter != 30*time.Second {
			t.Errorf("Expected retry after 30s, got %v", rle.RetryAfter)
		}
		if rle.Headers.Limit != 100 || rle.Headers.Remaining != 0 {
			t.Errorf("Unexpected headers %+v", rle.Headers)
		}
	})

	t.Run("Cancelled context", func(t *testing.T) {
		client := NewAirplanesLiveClient("http://127.0.0.1:0", time.Hour)
		// Drain the single token so the next call has to wait.
		client.limiter.Allow()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := client.NearbyAircraft(ctx, coordinates.Geographic{}, 10); err == nil {
			t.Error("Expected error for cancelled context")
		}
	})
}

// TestADSBExchangeNearbyAircraft tests the RapidAPI request shape.
func TestADSBExchangeNearbyAircraft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/lat/52.3/lon/4.76/dist/5/" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-rapidapi-key"); got != "secret" {
			t.Errorf("Expected api key header, got %q", got)
		}
		if got := r.Header.Get("x-rapidapi-host"); got == "" {
			t.Error("Expected api host header")
		}
		w.Write([]byte(`{"ac":[{"hex":"484f6e","flight":"KLM1234","alt_baro":2500}]}`))
	}))
	defer server.Close()

	client := NewADSBExchangeClient(server.URL, "secret")
	aircraft, err := client.NearbyAircraft(context.Background(), coordinates.Geographic{Latitude: 52.3, Longitude: 4.76}, 5)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(aircraft) != 1 || aircraft[0].Hex != "484f6e" {
		t.Errorf("Unexpected aircraft %+v", aircraft)
	}
}

// TestPlanesClient tests the proximity endpoint client.
func TestPlanesClient(t *testing.T) {
	center := coordinates.Geographic{Latitude: 52.370216, Longitude: 4.895168}

	t.Run("Sends lat, lon and dist", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/planes" {
				t.Errorf("Expected /planes, got %s", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("lat") != "52.370216" || q.Get("lon") != "4.895168" || q.Get("dist") != "7.5" {
				t.Errorf("Unexpected query %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"ac":[{"flight":"klm123","alt_baro":5000,"dist":3.456},{"flight":null,"alt_baro":"ground","dist":1}]}`))
		}))
		defer server.Close()

		client := NewPlanesClient(server.URL+"/", nil)
		resp, err := client.Planes(context.Background(), center, 7.5)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(resp.Aircraft) != 2 {
			t.Fatalf("Expected 2 aircraft, got %d", len(resp.Aircraft))
		}
		if resp.Aircraft[1].Flight != nil {
			t.Error("Expected null flight to decode as nil")
		}
		if !resp.Aircraft[1].OnGround() {
			t.Error("Expected second aircraft on ground")
		}
	})

	t.Run("Missing ac key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		resp, err := NewPlanesClient(server.URL, nil).Planes(context.Background(), center, 5)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if resp.Aircraft != nil {
			t.Errorf("Expected nil aircraft, got %v", resp.Aircraft)
		}
	})

	t.Run("Non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewPlanesClient(server.URL, nil).Planes(context.Background(), center, 5)
		se, ok := IsStatusError(err)
		if !ok {
			t.Fatalf("Expected StatusError, got %v", err)
		}
		if se.StatusCode != http.StatusBadGateway {
			t.Errorf("Expected 502, got %d", se.StatusCode)
		}
		if !strings.HasPrefix(se.Error(), "HTTP Error: 502.") {
			t.Errorf("Unexpected message %q", se.Error())
		}
	})

	t.Run("Malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := NewPlanesClient(server.URL, nil).Planes(context.Background(), center, 5)
		if err == nil || !strings.Contains(err.Error(), "failed to parse") {
			t.Errorf("Expected parse error, got %v", err)
		}
	})
}

func TestClose(t *testing.T) {
	if err := NewAirplanesLiveClient("https://api.test.com", 0).Close(); err != nil {
		t.Errorf("Expected no error on close, got: %v", err)
	}
	if err := NewADSBExchangeClient("", "").Close(); err != nil {
		t.Errorf("Expected no error on close, got: %v", err)
	}
}
