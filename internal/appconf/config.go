// Package appconf loads the service configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables (a .env file is read first when present). The
// command-line flags in cmd/api are applied last, followed by Validate.
package appconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            int         `yaml:"port" validate:"gt=0,lte=65535"`
	Env             Environment `yaml:"env"`
	ApiKeys         []string    `yaml:"apiKeys" validate:"required,min=1,dive,required"`
	RateLimit       int         `yaml:"rateLimit" validate:"gte=0"`
	RateLimitExempt []string    `yaml:"rateLimitExempt"`
	LogLevel        string      `yaml:"logLevel" validate:"oneof=debug info warn error"`

	GTFS      GTFSConfig      `yaml:"gtfs"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Arrivals  ArrivalsConfig  `yaml:"arrivals"`
	NATS      NATSConfig      `yaml:"nats"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Profiling ProfilingConfig `yaml:"profiling"`
}

// GTFSConfig locates the static schedule and the SQLite store.
type GTFSConfig struct {
	StaticURL string `yaml:"staticURL" validate:"required"`
	DataPath  string `yaml:"dataPath"`
	Verbose   bool   `yaml:"verbose"`
}

// RealtimeConfig describes the GTFS-Realtime feeds polled each tick.
type RealtimeConfig struct {
	FeedName            string        `yaml:"feedName" validate:"required"`
	TripUpdatesURL      string        `yaml:"tripUpdatesURL" validate:"omitempty,url"`
	VehiclePositionsURL string        `yaml:"vehiclePositionsURL" validate:"omitempty,url"`
	ServiceAlertsURL    string        `yaml:"serviceAlertsURL" validate:"omitempty,url"`
	AuthHeaderKey       string        `yaml:"authHeaderKey"`
	AuthHeaderValue     string        `yaml:"authHeaderValue"`
	Interval            time.Duration `yaml:"interval" validate:"gt=0"`
	Timeout             time.Duration `yaml:"timeout" validate:"gt=0"`
}

// ArrivalsConfig bounds the query window around the requested time.
type ArrivalsConfig struct {
	Lookbehind   time.Duration `yaml:"lookbehind" validate:"gte=0"`
	Horizon      time.Duration `yaml:"horizon" validate:"gt=0"`
	DefaultLimit int           `yaml:"defaultLimit" validate:"gt=0"`
	MaxLimit     int           `yaml:"maxLimit" validate:"gtefield=DefaultLimit"`
}

type NATSConfig struct {
	URL           string `yaml:"url" validate:"omitempty,url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `yaml:"serviceName"`
}

type ProfilingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ServerAddress string `yaml:"serverAddress" validate:"required_if=Enabled true"`
	BasicAuthUser string `yaml:"basicAuthUser"`
	BasicAuthPass string `yaml:"basicAuthPassword"`
}

// DefaultDataPath is the store used when none is configured: a file database,
// so readers never queue behind an ingest tick.
func DefaultDataPath() string {
	return filepath.Join(os.TempDir(), "nextstop.db")
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:      4000,
		Env:       Development,
		ApiKeys:   []string{"test"},
		RateLimit: 100,
		LogLevel:  "info",
		GTFS: GTFSConfig{
			DataPath: DefaultDataPath(),
		},
		Realtime: RealtimeConfig{
			FeedName: "default",
			Interval: 30 * time.Second,
			Timeout:  15 * time.Second,
		},
		Arrivals: ArrivalsConfig{
			Lookbehind:   5 * time.Minute,
			Horizon:      3 * time.Hour,
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		NATS: NATSConfig{
			SubjectPrefix: "nextstop.ticks",
		},
		Tracing: TracingConfig{
			ServiceName: "nextstop",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. It does not validate; callers apply
// their own overrides and then call Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags of the whole configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("NEXTSTOP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NEXTSTOP_PORT: %q", v)
		}
		cfg.Port = port
	}
	if v := os.Getenv("NEXTSTOP_ENV"); v != "" {
		if err := cfg.Env.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid NEXTSTOP_ENV: %w", err)
		}
	}
	if v := os.Getenv("NEXTSTOP_API_KEYS"); v != "" {
		cfg.ApiKeys = splitList(v)
	}
	if v := os.Getenv("NEXTSTOP_RATE_LIMIT_EXEMPT"); v != "" {
		cfg.RateLimitExempt = splitList(v)
	}
	cfg.LogLevel = getenvDefault("NEXTSTOP_LOG_LEVEL", cfg.LogLevel)

	cfg.GTFS.StaticURL = firstNonEmpty(os.Getenv("GTFS_STATIC_URL"), cfg.GTFS.StaticURL)
	cfg.GTFS.DataPath = firstNonEmpty(os.Getenv("GTFS_DATA_PATH"), cfg.GTFS.DataPath)

	cfg.Realtime.FeedName = getenvDefault("GTFSRT_FEED_NAME", cfg.Realtime.FeedName)
	cfg.Realtime.TripUpdatesURL = getenvDefault("GTFSRT_TRIP_UPDATES_URL", cfg.Realtime.TripUpdatesURL)
	cfg.Realtime.VehiclePositionsURL = getenvDefault("GTFSRT_VEHICLE_POSITIONS_URL", cfg.Realtime.VehiclePositionsURL)
	cfg.Realtime.ServiceAlertsURL = getenvDefault("GTFSRT_SERVICE_ALERTS_URL", cfg.Realtime.ServiceAlertsURL)
	cfg.Realtime.AuthHeaderKey = getenvDefault("GTFSRT_AUTH_HEADER_KEY", cfg.Realtime.AuthHeaderKey)
	cfg.Realtime.AuthHeaderValue = getenvDefault("GTFSRT_AUTH_HEADER_VALUE", cfg.Realtime.AuthHeaderValue)
	if err := durationEnv("GTFSRT_INTERVAL", &cfg.Realtime.Interval); err != nil {
		return err
	}
	if err := durationEnv("GTFSRT_TIMEOUT", &cfg.Realtime.Timeout); err != nil {
		return err
	}

	cfg.NATS.URL = getenvDefault("NATS_URL", cfg.NATS.URL)

	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Endpoint = v
	}
	cfg.Tracing.ServiceName = getenvDefault("OTEL_SERVICE_NAME", cfg.Tracing.ServiceName)

	if strings.EqualFold(os.Getenv("PYROSCOPE_PROFILING_ENABLED"), "true") {
		cfg.Profiling.Enabled = true
	}
	cfg.Profiling.ServerAddress = getenvDefault("PYROSCOPE_SERVER_ADDRESS", cfg.Profiling.ServerAddress)
	cfg.Profiling.BasicAuthUser = getenvDefault("PYROSCOPE_BASIC_AUTH_USER", cfg.Profiling.BasicAuthUser)
	cfg.Profiling.BasicAuthPass = getenvDefault("PYROSCOPE_BASIC_AUTH_PASSWORD", cfg.Profiling.BasicAuthPass)

	return nil
}

func durationEnv(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, v)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
