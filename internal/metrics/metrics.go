// Package metrics exposes engine and publisher counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry, so tests can build as many as they
// like without colliding on the default one.
type Collector struct {
	reg *prometheus.Registry

	Ticks           *prometheus.CounterVec // feed, outcome: applied|skipped|failed
	TickDuration    prometheus.Histogram
	Entities        *prometheus.CounterVec // kind, outcome: applied|skipped
	Stale           prometheus.Counter
	TripRunsCreated *prometheus.CounterVec // relationship

	QueryDuration prometheus.Histogram
	QueryResults  prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextstop_ticks_total",
			Help: "Realtime snapshots processed, by feed and outcome.",
		}, []string{"feed", "outcome"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nextstop_tick_duration_seconds",
			Help:    "Time to apply one realtime snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		Entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextstop_entities_total",
			Help: "Feed entities processed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Stale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nextstop_stale_updates_total",
			Help: "Stop time updates ignored because the stored value was fresher.",
		}),
		TripRunsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextstop_trip_runs_created_total",
			Help: "Trip occurrences created, by schedule relationship.",
		}, []string{"relationship"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nextstop_query_duration_seconds",
			Help:    "Time to answer one next-arrivals query.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		QueryResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nextstop_query_results",
			Help:    "Arrivals returned per query.",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nextstop_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nextstop_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nextstop_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nextstop_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
	}

	reg.MustRegister(
		c.Ticks, c.TickDuration, c.Entities, c.Stale, c.TripRunsCreated,
		c.QueryDuration, c.QueryResults,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Registry is exposed for tests that gather values directly.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) ObserveTick(feed, outcome string, d time.Duration) {
	c.Ticks.WithLabelValues(feed, outcome).Inc()
	c.TickDuration.Observe(d.Seconds())
}

func (c *Collector) EntityProcessed(kind, outcome string) {
	c.Entities.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) StaleUpdates(n int) { c.Stale.Add(float64(n)) }

func (c *Collector) TripRunCreated(relationship string) {
	c.TripRunsCreated.WithLabelValues(relationship).Inc()
}

func (c *Collector) ObserveQuery(d time.Duration, results int) {
	c.QueryDuration.Observe(d.Seconds())
	c.QueryResults.Observe(float64(results))
}

func (c *Collector) NATSPublishedInc() { c.NATSPublished.Inc() }

func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}
