package config

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"path/filepath"
	"time"
)

// Session store kinds.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Render variants.
const (
	RenderTable = "table"
	RenderCards = "cards"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	ADSB      ADSBConfig      `json:"adsb"`
	Proximity ProximityConfig `json:"proximity"`
	Airlines  AirlinesConfig  `json:"airlines"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Session   SessionConfig   `json:"session"`
	Render    RenderConfig    `json:"render"`
	Log       LogConfig       `json:"log"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`

	// AllowedOrigins is the CORS origin list (default: all)
	AllowedOrigins []string `json:"allowed_origins"`

	// TrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty trusts no one.
	TrustedProxies []string `json:"trusted_proxies,omitempty"`
}

// TrustedPrefixes parses TrustedProxies. A bare IP becomes a single-address
// prefix.
func (s ServerConfig) TrustedPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, entry := range s.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig contains database connection settings for the postgres
// session store.
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// RedisConfig is used by the redis session store and the shared rate limiter.
type RedisConfig struct {
	// Addr is host:port; empty disables redis entirely
	Addr string `json:"addr"`

	Password string `json:"password"`
	DB       int    `json:"db"`
}

// ADSBConfig selects the upstream feed behind the /planes endpoint.
type ADSBConfig struct {
	// Source is "adsbexchange" or "airplanes.live"
	Source string `json:"source"`

	// BaseURL overrides the source's default API base URL
	BaseURL string `json:"base_url"`

	// APIKey is the RapidAPI key for adsbexchange
	APIKey string `json:"api_key,omitempty"`

	// RateLimitSeconds is the minimum time between upstream calls
	// airplanes.live: 1 request per second
	RateLimitSeconds float64 `json:"rate_limit_seconds"`
}

// ProximityConfig configures the "planes near me" query made on behalf of
// the page.
type ProximityConfig struct {
	// Endpoint is the base URL of a /planes service
	Endpoint string `json:"endpoint"`

	// DefaultRadiusNM is used when the user leaves the radius empty
	DefaultRadiusNM float64 `json:"default_radius_nm"`

	// MaxRadiusNM clamps larger radii
	MaxRadiusNM float64 `json:"max_radius_nm"`
}

// AirlinesConfig points at the ICAO airline reference dataset.
type AirlinesConfig struct {
	// Source is a file path or http(s) URL
	Source string `json:"source"`
}

// RateLimitConfig limits calls to the /planes endpoint per client address.
type RateLimitConfig struct {
	Enabled          bool `json:"enabled"`
	RequestsPerHour  int  `json:"requests_per_hour"`
	RequestsPerMonth int  `json:"requests_per_month"`
}

// SessionConfig controls where session coordinates live.
type SessionConfig struct {
	// Store is "memory", "redis" or "postgres"
	Store string `json:"store"`

	// Secret signs the session cookie
	Secret string `json:"secret"`

	// TTLMinutes is how long an idle session is kept
	TTLMinutes int `json:"ttl_minutes"`
}

// TTL returns the session lifetime.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// RenderConfig selects the plane list presentation.
type RenderConfig struct {
	// Variant is "table" or "cards"
	Variant string `json:"variant"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `json:"level"`

	// Dir receives rotated log files; empty logs to stderr only
	Dir string `json:"dir"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so omitted sections keep sensible values
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks enumerated fields and numeric bounds.
func (c *Config) Validate() error {
	switch c.Session.Store {
	case StoreMemory, StorePostgres:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("invalid config: session store %q needs redis.addr", c.Session.Store)
		}
	default:
		return fmt.Errorf("invalid config: unknown session store %q", c.Session.Store)
	}

	switch c.Render.Variant {
	case RenderTable, RenderCards:
	default:
		return fmt.Errorf("invalid config: unknown render variant %q", c.Render.Variant)
	}

	switch c.ADSB.Source {
	case "adsbexchange", "airplanes.live":
	default:
		return fmt.Errorf("invalid config: unknown adsb source %q", c.ADSB.Source)
	}

	if _, err := c.Server.TrustedPrefixes(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Proximity.DefaultRadiusNM <= 0 || c.Proximity.MaxRadiusNM < c.Proximity.DefaultRadiusNM {
		return fmt.Errorf("invalid config: radius defaults %v/%v", c.Proximity.DefaultRadiusNM, c.Proximity.MaxRadiusNM)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "planesnearme",
			Username:     "planesnearme",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		ADSB: ADSBConfig{
			Source:           "adsbexchange",
			RateLimitSeconds: 1.0,
		},
		Proximity: ProximityConfig{
			Endpoint:        "https://planesnear.me",
			DefaultRadiusNM: 5,
			MaxRadiusNM:     250,
		},
		Airlines: AirlinesConfig{
			Source: "airlines.json",
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			RequestsPerHour:  500,
			RequestsPerMonth: 10000,
		},
		Session: SessionConfig{
			Store:      StoreMemory,
			Secret:     "dev-secret-change-in-production",
			TTLMinutes: 60,
		},
		Render: RenderConfig{
			Variant: RenderCards,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like passwords to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("PNM_PORT"); port != "" {
		c.Server.Port = port
	}
	if dbPassword := os.Getenv("PNM_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if addr := os.Getenv("PNM_REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if apiKey := os.Getenv("PNM_ADSB_API_KEY"); apiKey != "" {
		c.ADSB.APIKey = apiKey
	}
	if secret := os.Getenv("PNM_SESSION_SECRET"); secret != "" {
		c.Session.Secret = secret
	}
}
