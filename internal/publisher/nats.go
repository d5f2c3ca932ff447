// Package publisher announces applied ticks on NATS.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"nextstop.transit.org/internal/arrivals"
	"nextstop.transit.org/internal/logging"
)

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc      *nats.Conn
	pub     conn
	prefix  string
	logger  *slog.Logger
	metrics PublisherMetrics
}

// TickMessage is the JSON body published for each applied tick.
type TickMessage struct {
	TickID          string    `json:"tickId"`
	Feed            string    `json:"feed"`
	HeaderTimestamp time.Time `json:"headerTimestamp"`
	TripUpdates     int       `json:"tripUpdates"`
	Vehicles        int       `json:"vehicles"`
	Alerts          int       `json:"alerts"`
	FailedEntities  int       `json:"failedEntities"`
	StaleUpdates    int       `json:"staleUpdates"`
	TripRunsCreated int       `json:"tripRunsCreated"`
	DurationMs      float64   `json:"durationMs"`
}

func NewNATSPublisher(url, subjectPrefix string, logger *slog.Logger, m PublisherMetrics) (*NATSPublisher, error) {
	logger = logging.ForComponent(logger, "nats_publisher")

	nc, err := nats.Connect(url,
		nats.Name("nextstop"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logging.LogOperation(logger, "nats_reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logging.LogOperation(logger, "nats_closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	p := newPublisher(nc, subjectPrefix, logger, m)
	p.nc = nc
	return p, nil
}

func newPublisher(c conn, prefix string, logger *slog.Logger, m PublisherMetrics) *NATSPublisher {
	return &NATSPublisher{pub: c, prefix: prefix, logger: logger, metrics: m}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			logging.LogError(p.logger, "failed to drain NATS connection", err)
		}
		p.nc.Close()
	}
}

// PublishTick sends the tick summary on <prefix>.<feed>.
func (p *NATSPublisher) PublishTick(_ context.Context, res arrivals.TickResult) error {
	subject := p.subject(res.Feed)
	b, err := json.Marshal(TickMessage{
		TickID:          res.ID,
		Feed:            res.Feed,
		HeaderTimestamp: res.HeaderTimestamp,
		TripUpdates:     res.TripUpdates,
		Vehicles:        res.Vehicles,
		Alerts:          res.Alerts,
		FailedEntities:  res.FailedEntities,
		StaleUpdates:    res.StaleUpdates,
		TripRunsCreated: res.TripRunsCreated,
		DurationMs:      float64(res.Duration.Microseconds()) / 1000,
	})
	if err != nil {
		return err
	}

	p.logger.Debug("nats publish", slog.String("subject", subject))
	start := time.Now()
	err = p.pub.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func (p *NATSPublisher) subject(feed string) string {
	if p.prefix == "" {
		return subjectToken(feed)
	}
	return p.prefix + "." + subjectToken(feed)
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
