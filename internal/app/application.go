package app

import (
	"log/slog"

	"nextstop.transit.org/internal/appconf"
	"nextstop.transit.org/internal/gtfs"
	"nextstop.transit.org/internal/metrics"
)

// Application holds the dependencies shared by the HTTP handlers, helpers
// and middleware.
type Application struct {
	Config      appconf.Config
	Logger      *slog.Logger
	GtfsManager *gtfs.Manager
	Metrics     *metrics.Collector
	Version     string
}
