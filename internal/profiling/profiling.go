// Package profiling starts continuous profiling with Pyroscope.
package profiling

import (
	"log/slog"

	"github.com/grafana/pyroscope-go"

	"nextstop.transit.org/internal/appconf"
)

// InitProfiling starts the profiler when enabled. A profiler that fails to
// start is logged and skipped; profiling never blocks startup.
func InitProfiling(cfg appconf.ProfilingConfig, appName, version string, logger *slog.Logger) func() {
	if !cfg.Enabled {
		logger.Debug("Pyroscope profiling is disabled")
		return func() {}
	}

	config := pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   cfg.ServerAddress,
		Tags: map[string]string{
			"service": appName,
			"version": version,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	}
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		config.BasicAuthUser = cfg.BasicAuthUser
		config.BasicAuthPassword = cfg.BasicAuthPass
	}

	profiler, err := pyroscope.Start(config)
	if err != nil {
		logger.Warn("Failed to start Pyroscope profiler", slog.Any("error", err))
		return func() {}
	}
	logger.Info("Pyroscope profiling started",
		slog.String("server", cfg.ServerAddress),
		slog.String("application", appName))

	return func() {
		if err := profiler.Stop(); err != nil {
			logger.Error("Error stopping Pyroscope profiler", slog.Any("error", err))
		}
	}
}
