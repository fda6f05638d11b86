package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Map       MapConfig       `mapstructure:"map"`
	Landmarks LandmarksConfig `mapstructure:"landmarks"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Locator   LocatorConfig   `mapstructure:"locator"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MapConfig configures every widget instance.
type MapConfig struct {
	DefaultLat           float64 `mapstructure:"default_lat"`
	DefaultLon           float64 `mapstructure:"default_lon"`
	DefaultZoom          int     `mapstructure:"default_zoom"`
	SearchZoom           int     `mapstructure:"search_zoom"`
	LocateZoom           int     `mapstructure:"locate_zoom"`
	DebounceMS           int     `mapstructure:"debounce_ms"`
	DefaultRadiusM       float64 `mapstructure:"default_radius_m"`
	FetchOnLocateFailure bool    `mapstructure:"fetch_on_locate_failure"`
	LocateOnStart        bool    `mapstructure:"locate_on_start"`
}

// DebounceWindow is the viewport quiescence window.
func (m MapConfig) DebounceWindow() time.Duration {
	return time.Duration(m.DebounceMS) * time.Millisecond
}

// LandmarksConfig points at the landmark query endpoint. An empty endpoint
// makes widgets query the in-process catalog.
type LandmarksConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	CatalogFile    string `mapstructure:"catalog_file"`
}

type GeocoderConfig struct {
	Server          string  `mapstructure:"server"`
	RatePerSecond   float64 `mapstructure:"rate_per_second"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
}

// LocatorConfig selects where positions come from: "client" (browser
// geolocation over the widget session) or "geoclue" (host D-Bus service).
type LocatorConfig struct {
	Source         string `mapstructure:"source"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DesktopID      string `mapstructure:"desktop_id"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Prefix  string `mapstructure:"prefix"`
	Enabled bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: LANDMARKMAP_MAP_DEBOUNCE_MS → map.debounce_ms
	v.SetEnvPrefix("LANDMARKMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("map.default_lat", 0.0)
	v.SetDefault("map.default_lon", 0.0)
	v.SetDefault("map.default_zoom", 2)
	v.SetDefault("map.search_zoom", 13)
	v.SetDefault("map.locate_zoom", 10)
	v.SetDefault("map.debounce_ms", 300)
	v.SetDefault("map.default_radius_m", 5000e3)
	v.SetDefault("map.fetch_on_locate_failure", true)
	v.SetDefault("map.locate_on_start", true)
	v.SetDefault("landmarks.endpoint", "")
	v.SetDefault("landmarks.timeout_seconds", 15)
	v.SetDefault("landmarks.catalog_file", "")
	v.SetDefault("geocoder.server", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.rate_per_second", 1.0)
	v.SetDefault("geocoder.cache_ttl_seconds", 86400)
	v.SetDefault("locator.source", "client")
	v.SetDefault("locator.timeout_seconds", 10)
	v.SetDefault("locator.desktop_id", "landmarkmap")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.prefix", "landmarkmap:")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Map.DefaultLat < -90 || c.Map.DefaultLat > 90 {
		errs = append(errs, fmt.Sprintf("map.default_lat must be -90..90, got %g", c.Map.DefaultLat))
	}
	if c.Map.DefaultLon < -180 || c.Map.DefaultLon > 180 {
		errs = append(errs, fmt.Sprintf("map.default_lon must be -180..180, got %g", c.Map.DefaultLon))
	}
	for name, z := range map[string]int{
		"map.default_zoom": c.Map.DefaultZoom,
		"map.search_zoom":  c.Map.SearchZoom,
		"map.locate_zoom":  c.Map.LocateZoom,
	} {
		if z < 0 || z > 22 {
			errs = append(errs, fmt.Sprintf("%s must be 0-22, got %d", name, z))
		}
	}
	if c.Map.DebounceMS <= 0 {
		errs = append(errs, "map.debounce_ms must be positive")
	}
	if c.Map.DefaultRadiusM <= 0 {
		errs = append(errs, "map.default_radius_m must be positive")
	}
	if c.Landmarks.TimeoutSeconds <= 0 {
		errs = append(errs, "landmarks.timeout_seconds must be positive")
	}
	if c.Geocoder.Server == "" {
		errs = append(errs, "geocoder.server is required")
	}
	if c.Geocoder.RatePerSecond <= 0 {
		errs = append(errs, "geocoder.rate_per_second must be positive")
	}
	switch c.Locator.Source {
	case "client", "geoclue":
	default:
		errs = append(errs, fmt.Sprintf("locator.source must be client or geoclue, got %q", c.Locator.Source))
	}
	if c.Locator.TimeoutSeconds <= 0 {
		errs = append(errs, "locator.timeout_seconds must be positive")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
