// Planes Near Me terminal client
// Runs the location and proximity flow against a /planes endpoint and
// renders the result as a table.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/planes-near-me/internal/locate"
	"github.com/unklstewy/planes-near-me/internal/logging"
	"github.com/unklstewy/planes-near-me/internal/proximity"
	"github.com/unklstewy/planes-near-me/internal/render"
	"github.com/unklstewy/planes-near-me/internal/session"
	"github.com/unklstewy/planes-near-me/pkg/adsb"
	"github.com/unklstewy/planes-near-me/pkg/airline"
	"github.com/unklstewy/planes-near-me/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	lat := flag.Float64("lat", math.NaN(), "Latitude of your position")
	lon := flag.Float64("lon", math.NaN(), "Longitude of your position")
	radius := flag.Float64("radius", 0, "Search radius in nautical miles (default from config)")
	endpoint := flag.String("endpoint", "", "Base URL of the /planes service (default from config)")
	airlines := flag.String("airlines", "", "Airline dataset path or URL (default from config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *endpoint != "" {
		cfg.Proximity.Endpoint = *endpoint
	}
	if *airlines != "" {
		cfg.Airlines.Source = *airlines
	}
	if *radius <= 0 {
		*radius = cfg.Proximity.DefaultRadiusNM
	}
	if cfg.Proximity.Endpoint == "" {
		cfg.Proximity.Endpoint = adsb.DefaultPlanesURL
	}

	// stderr would corrupt the alt screen, so only the file sink is used
	logger, closer := logging.NewFileOnly("planes-tui", cfg.Log)
	defer closer.Close()

	httpClient := &http.Client{Timeout: 10 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	dir, err := airline.Load(ctx, cfg.Airlines.Source, httpClient)
	cancel()
	if err != nil {
		logger.Warn("Airline directory unavailable", "err", err)
	}

	// Without coordinates there is no position provider
	var provider locate.Provider
	if !math.IsNaN(*lat) && !math.IsNaN(*lon) {
		provider = locate.Static{Latitude: *lat, Longitude: *lon}
	}

	store := session.NewMemoryStore(0)
	m := model{
		airlines: dir,
		locator:  locate.NewAcquirer(store),
		provider: provider,
		proximity: proximity.NewClient(adsb.NewPlanesClient(cfg.Proximity.Endpoint, httpClient), store, proximity.Options{
			DefaultRadiusNM: cfg.Proximity.DefaultRadiusNM,
			MaxRadiusNM:     cfg.Proximity.MaxRadiusNM,
		}, logger),
		renderer:       render.Terminal{},
		timeout:        15 * time.Second,
		radius:         *radius,
		airlineWarning: err != nil,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
