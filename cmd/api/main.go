package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nextstop.transit.org/internal/app"
	"nextstop.transit.org/internal/appconf"
	"nextstop.transit.org/internal/gtfs"
	"nextstop.transit.org/internal/logging"
	"nextstop.transit.org/internal/metrics"
	"nextstop.transit.org/internal/profiling"
	"nextstop.transit.org/internal/publisher"
	"nextstop.transit.org/internal/restapi"
	"nextstop.transit.org/internal/tracing"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

// flagValues holds the command-line overrides. Only flags the user set are
// applied on top of the loaded configuration.
type flagValues struct {
	configPath          string
	port                int
	env                 string
	apiKeys             string
	gtfsURL             string
	dataPath            string
	tripUpdatesURL      string
	vehiclePositionsURL string
	serviceAlertsURL    string
	natsURL             string
	logLevel            string
	verbose             bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nextstop: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var f flagValues
	flag.StringVar(&f.configPath, "config", "", "Path to a YAML configuration file")
	flag.IntVar(&f.port, "port", 4000, "API server port")
	flag.StringVar(&f.env, "env", "development", "Environment (development|test|production)")
	flag.StringVar(&f.apiKeys, "api-keys", "test", "Comma separated API keys")
	flag.StringVar(&f.gtfsURL, "gtfs-url", "", "URL or local path of the static GTFS zip")
	flag.StringVar(&f.dataPath, "data-path", appconf.DefaultDataPath(), "SQLite database path (:memory: for a throwaway store)")
	flag.StringVar(&f.tripUpdatesURL, "trip-updates-url", "", "GTFS-realtime trip updates URL")
	flag.StringVar(&f.vehiclePositionsURL, "vehicle-positions-url", "", "GTFS-realtime vehicle positions URL")
	flag.StringVar(&f.serviceAlertsURL, "service-alerts-url", "", "GTFS-realtime service alerts URL")
	flag.StringVar(&f.natsURL, "nats-url", "", "NATS server URL for tick notifications")
	flag.StringVar(&f.logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	flag.BoolVar(&f.verbose, "verbose", false, "Log import statistics")
	flag.Parse()

	cfg, err := appconf.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg, f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, cfg.Tracing, version, logger)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	stopProfiling := profiling.InitProfiling(cfg.Profiling, cfg.Tracing.ServiceName, version, logger)
	defer stopProfiling()

	collector := metrics.NewCollector()

	gtfsConfig := gtfs.NewConfig(cfg)
	gtfsConfig.Engine.Logger = logger
	gtfsConfig.Engine.Metrics = collector
	gtfsConfig.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	if cfg.NATS.URL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger, collector)
		if err != nil {
			return err
		}
		defer pub.Close()
		gtfsConfig.Engine.Publisher = pub
	}

	gtfsManager, err := gtfs.InitGTFSManager(gtfsConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize GTFS manager: %w", err)
	}
	defer gtfsManager.Shutdown()

	api := restapi.NewRestAPI(&app.Application{
		Config:      cfg,
		Logger:      logger,
		GtfsManager: gtfsManager,
		Metrics:     collector,
		Version:     version,
	})
	defer api.Close()

	var handler http.Handler = api.Routes()
	if cfg.Tracing.Enabled {
		handler = otelhttp.NewHandler(handler, "nextstop.http")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errChan := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "starting_server",
			slog.String("addr", srv.Addr),
			slog.String("env", cfg.Env.String()),
			slog.String("version", version))
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logging.LogOperation(logger, "shutting_down_server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
	}
	return nil
}

// applyFlags copies the flags set on the command line into cfg.
func applyFlags(cfg *appconf.Config, f flagValues) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "port":
			cfg.Port = f.port
		case "env":
			cfg.Env = appconf.EnvFlagToEnvironment(f.env)
		case "api-keys":
			cfg.ApiKeys = nil
			for _, k := range strings.Split(f.apiKeys, ",") {
				if k = strings.TrimSpace(k); k != "" {
					cfg.ApiKeys = append(cfg.ApiKeys, k)
				}
			}
		case "gtfs-url":
			cfg.GTFS.StaticURL = f.gtfsURL
		case "data-path":
			cfg.GTFS.DataPath = f.dataPath
		case "trip-updates-url":
			cfg.Realtime.TripUpdatesURL = f.tripUpdatesURL
		case "vehicle-positions-url":
			cfg.Realtime.VehiclePositionsURL = f.vehiclePositionsURL
		case "service-alerts-url":
			cfg.Realtime.ServiceAlertsURL = f.serviceAlertsURL
		case "nats-url":
			cfg.NATS.URL = f.natsURL
		case "log-level":
			cfg.LogLevel = f.logLevel
		case "verbose":
			cfg.GTFS.Verbose = f.verbose
		}
	})
}
