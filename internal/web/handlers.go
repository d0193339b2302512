package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/unklstewy/planes-near-me/internal/app"
	"github.com/unklstewy/planes-near-me/internal/locate"
	"github.com/unklstewy/planes-near-me/internal/nearby"
	"github.com/unklstewy/planes-near-me/internal/proximity"
	"github.com/unklstewy/planes-near-me/internal/render"
	"github.com/unklstewy/planes-near-me/pkg/adsb"
	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// pageData feeds templates/index.html.
type pageData struct {
	DefaultRadius   string
	Readout         *locate.Readout
	AirlinesMissing bool
}

// handleIndex serves the page. A session that already has coordinates gets
// its readout pre-rendered.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		DefaultRadius:   strconv.FormatFloat(s.state.Config.Proximity.DefaultRadiusNM, 'f', -1, 64),
		AirlinesMissing: s.state.Airlines.Len() == 0,
	}

	c, ok, err := s.state.Sessions.Get(r.Context(), sessionID(r))
	if err != nil {
		s.logger.Warn("Failed to read session", slog.Any("err", err))
	}
	if ok {
		readout := locate.NewReadout(c)
		data.Readout = &readout
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("Failed to render page", slog.Any("err", err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// handleAirlines serves the reference dataset. A local dataset file is
// served as is; otherwise the loaded directory is encoded.
func (s *Server) handleAirlines(w http.ResponseWriter, r *http.Request) {
	source := s.state.Config.Airlines.Source
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		if info, err := os.Stat(source); err == nil && !info.IsDir() {
			w.Header().Set("Content-Type", "application/json")
			http.ServeFile(w, r, source)
			return
		}
	}
	respondJSON(w, http.StatusOK, s.state.Airlines.Records())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"airlines": s.state.Airlines.Len(),
	})
}

// locationRequest is what the page posts after asking the browser for a
// position: coordinates, a geolocation error code, or unsupported.
type locationRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	ErrorCode   int      `json:"error_code"`
	Unsupported bool     `json:"unsupported"`
}

func (req locationRequest) provider() locate.Provider {
	switch {
	case req.Unsupported:
		return nil
	case req.ErrorCode != 0:
		return locate.Reported{ErrorCode: req.ErrorCode}
	case req.Latitude == nil || req.Longitude == nil:
		return locate.Reported{ErrorCode: locate.PositionUnavailable}
	default:
		return locate.Reported{Coordinates: coordinates.Geographic{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		}}
	}
}

// handleLocation stores the reported position for the session.
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	readout, err := s.state.Locator.Acquire(r.Context(), sessionID(r), req.provider())
	if err != nil {
		var perr *locate.PositionError
		switch {
		case errors.Is(err, locate.ErrUnsupported), errors.As(err, &perr):
			respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			s.logger.Error("Failed to store location", slog.Any("err", err))
			respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to store location"})
		}
		return
	}

	respondJSON(w, http.StatusOK, readout)
}

// handleQuery runs the proximity query for the session and returns the
// rendered fragment.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	result, err := s.state.Proximity.Query(r.Context(), sessionID(r), r.URL.Query().Get("dist"))
	switch {
	case errors.Is(err, proximity.ErrNoLocation):
		respondJSON(w, http.StatusPreconditionRequired, map[string]string{
			"kind":  "need_location",
			"error": err.Error(),
		})
		return
	case errors.Is(err, proximity.ErrInvalidRadius):
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"kind":  "invalid_radius",
			"error": err.Error(),
		})
		return
	case err != nil:
		s.logger.Error("Plane query failed", slog.String("session", sessionID(r)), slog.Any("err", err))
		var buf bytes.Buffer
		app.RenderFailure(&buf)
		respondJSON(w, http.StatusBadGateway, map[string]string{
			"kind":  "error",
			"error": err.Error(),
			"html":  buf.String(),
		})
		return
	}

	var renderer render.Renderer
	if view := r.URL.Query().Get("view"); view == render.VariantTable || view == render.VariantCards {
		renderer = render.ForVariant(view)
	}

	var buf bytes.Buffer
	if err := s.state.Render(&buf, result, renderer); err != nil {
		s.logger.Error("Failed to render planes", slog.Any("err", err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"kind":  "error",
			"error": "Failed to render planes",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"kind": string(result.Kind),
		"html": buf.String(),
	})
}

// handlePlanes is the /planes proximity endpoint: aircraft around lat/lon
// from the upstream feed, with distances, closest first.
func (s *Server) handlePlanes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" || lonStr == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Please provide both 'lat' and 'lon' parameters",
		})
		return
	}

	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	center := coordinates.Geographic{Latitude: lat, Longitude: lon}
	if errLat != nil || errLon != nil || center.Validate() != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid 'lat' or 'lon' parameter",
		})
		return
	}

	dist := nearby.DefaultRadiusNM
	if d := q.Get("dist"); d != "" {
		parsed, err := strconv.ParseFloat(d, 64)
		if err != nil || !(parsed > 0) {
			respondJSON(w, http.StatusBadRequest, map[string]string{
				"error": "Invalid 'dist' parameter",
			})
			return
		}
		dist = parsed
	}

	reports, err := s.state.Nearby.Nearby(r.Context(), center, dist)
	if err != nil {
		s.respondUpstreamError(w, err)
		return
	}
	if reports == nil {
		reports = []adsb.AircraftReport{}
	}

	respondJSON(w, http.StatusOK, adsb.PlanesResponse{Aircraft: reports})
}

func (s *Server) respondUpstreamError(w http.ResponseWriter, err error) {
	if statusErr, ok := adsb.IsStatusError(err); ok {
		s.logger.Warn("Upstream returned error status", slog.Int("status", statusErr.StatusCode))
		respondJSON(w, statusErr.StatusCode, map[string]string{
			"error":   fmt.Sprintf("API returned status code %d", statusErr.StatusCode),
			"details": statusErr.Body,
		})
		return
	}
	if rle, ok := adsb.IsRateLimitError(err); ok {
		s.logger.Warn("Upstream rate limited", slog.Duration("retry_after", rle.RetryAfter))
		respondJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":   fmt.Sprintf("API returned status code %d", http.StatusTooManyRequests),
			"details": rle.Message,
		})
		return
	}

	s.logger.Error("Upstream query failed", slog.Any("err", err))
	respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
