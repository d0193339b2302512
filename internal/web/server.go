// Package web serves the planes-near-me page and the HTTP API behind it.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/netip"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/unklstewy/planes-near-me/internal/app"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Server holds the router and the application state it serves.
type Server struct {
	router  *chi.Mux
	state   *app.State
	logger  *slog.Logger
	proxies []netip.Prefix
}

// NewServer creates a server with all routes registered.
func NewServer(state *app.State) *Server {
	s := &Server{
		router: chi.NewRouter(),
		state:  state,
		logger: state.Logger,
	}
	proxies, err := state.Config.Server.TrustedPrefixes()
	if err != nil {
		s.logger.Warn("Ignoring trusted proxies", slog.Any("err", err))
	}
	s.proxies = proxies
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps the router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.realIP)
	r.Use(middleware.Compress(5))

	origins := s.state.Config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	// Credentials only go to explicitly listed origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/airlines.json", s.handleAirlines)

	// Backend proximity endpoint, rate limited per client address
	r.With(s.rateLimitMiddleware).Get("/planes", s.handlePlanes)

	// Page and the API it drives share the session cookie
	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handleIndex)
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/location", s.handleLocation)
			r.Get("/planes", s.handleQuery)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
