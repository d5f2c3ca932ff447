package gtfs

import (
	"net/http"
	"time"

	"nextstop.transit.org/internal/appconf"
	"nextstop.transit.org/internal/arrivals"
)

type Config struct {
	GtfsURL                 string
	GTFSDataPath            string
	Env                     appconf.Environment
	Verbose                 bool
	FeedName                string
	TripUpdatesURL          string
	VehiclePositionsURL     string
	ServiceAlertsURL        string
	RealTimeAuthHeaderKey   string
	RealTimeAuthHeaderValue string
	RealTimeInterval        time.Duration
	RealTimeTimeout         time.Duration

	// StaticRefreshInterval re-downloads a remote static feed. Zero
	// disables refreshing; local files are never refreshed.
	StaticRefreshInterval time.Duration

	// Engine is handed to every arrivals.Engine the manager builds.
	Engine arrivals.Config

	// HTTPClient fetches realtime feeds. Nil uses a plain client.
	HTTPClient *http.Client
}

// NewConfig maps the service configuration onto the manager's settings.
func NewConfig(cfg appconf.Config) Config {
	return Config{
		GtfsURL:                 cfg.GTFS.StaticURL,
		GTFSDataPath:            cfg.GTFS.DataPath,
		Env:                     cfg.Env,
		Verbose:                 cfg.GTFS.Verbose,
		FeedName:                cfg.Realtime.FeedName,
		TripUpdatesURL:          cfg.Realtime.TripUpdatesURL,
		VehiclePositionsURL:     cfg.Realtime.VehiclePositionsURL,
		ServiceAlertsURL:        cfg.Realtime.ServiceAlertsURL,
		RealTimeAuthHeaderKey:   cfg.Realtime.AuthHeaderKey,
		RealTimeAuthHeaderValue: cfg.Realtime.AuthHeaderValue,
		RealTimeInterval:        cfg.Realtime.Interval,
		RealTimeTimeout:         cfg.Realtime.Timeout,
		StaticRefreshInterval:   24 * time.Hour,
		Engine: arrivals.Config{
			Lookbehind: cfg.Arrivals.Lookbehind,
			Horizon:    cfg.Arrivals.Horizon,
		},
	}
}

func (config Config) realTimeDataEnabled() bool {
	return len(config.realTimeFeeds()) > 0
}

// realTimeFeeds lists the configured feed URLs in ingest order.
func (config Config) realTimeFeeds() []string {
	var urls []string
	for _, u := range []string{config.TripUpdatesURL, config.VehiclePositionsURL, config.ServiceAlertsURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func (config Config) realTimeHeaders() map[string]string {
	if config.RealTimeAuthHeaderKey == "" || config.RealTimeAuthHeaderValue == "" {
		return nil
	}
	return map[string]string{config.RealTimeAuthHeaderKey: config.RealTimeAuthHeaderValue}
}

func (config Config) feedName() string {
	if config.FeedName == "" {
		return "default"
	}
	return config.FeedName
}
