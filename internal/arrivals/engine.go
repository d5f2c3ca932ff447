// Package arrivals reconciles realtime trip updates with the static
// schedule and answers next-arrival queries against the result.
package arrivals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nextstop.transit.org/gtfsdb"
	"nextstop.transit.org/internal/calendar"
	"nextstop.transit.org/internal/logging"
	"nextstop.transit.org/internal/realtime"
)

const entitySavepoint = "entity"

// Metrics receives engine events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveTick(feed, outcome string, d time.Duration)
	EntityProcessed(kind, outcome string)
	StaleUpdates(n int)
	TripRunCreated(relationship string)
	ObserveQuery(d time.Duration, results int)
}

// Publisher announces applied ticks to other processes.
type Publisher interface {
	PublishTick(ctx context.Context, res TickResult) error
}

type Config struct {
	// Lookbehind widens the query window into the past so that delayed
	// vehicles scheduled before the query instant are still found.
	Lookbehind time.Duration
	Horizon    time.Duration
	Metrics    Metrics
	Publisher  Publisher
	Logger     *slog.Logger
	Now        func() time.Time
}

// TickResult summarizes one Ingest call.
type TickResult struct {
	ID              string        `json:"id"`
	Feed            string        `json:"feed"`
	HeaderTimestamp time.Time     `json:"header_timestamp"`
	Skipped         bool          `json:"skipped"`
	TripUpdates     int           `json:"trip_updates"`
	Vehicles        int           `json:"vehicles"`
	Alerts          int           `json:"alerts"`
	FailedEntities  int           `json:"failed_entities"`
	StaleUpdates    int           `json:"stale_updates"`
	TripRunsCreated int           `json:"trip_runs_created"`
	Duration        time.Duration `json:"duration_ns"`
}

// Engine owns the arrival index. Ingest calls serialize on the store's
// write lock; NextArrivals may run concurrently with them.
type Engine struct {
	db       *gtfsdb.Client
	resolver *calendar.Resolver
	matcher  *matcher
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewEngine(db *gtfsdb.Client, resolver *calendar.Resolver, cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 3 * time.Hour
	}
	logger := logging.ForComponent(cfg.Logger, "arrivals")
	return &Engine{
		db:       db,
		resolver: resolver,
		matcher:  &matcher{resolver: resolver, logger: logger, now: cfg.Now},
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("nextstop.transit.org/internal/arrivals"),
	}
}

func (e *Engine) Resolver() *calendar.Resolver {
	return e.resolver
}

// Ingest applies one snapshot as a single transaction. Entity-level
// failures roll back only that entity; any other failure rolls back the
// whole tick and is returned as a *TickError. A snapshot not newer than
// the last applied one for its feed is a no-op.
func (e *Engine) Ingest(ctx context.Context, snap *realtime.Snapshot) (TickResult, error) {
	res := TickResult{
		ID:              uuid.NewString(),
		Feed:            snap.Feed,
		HeaderTimestamp: snap.Timestamp,
	}
	ctx, span := e.tracer.Start(ctx, "arrivals.ingest", trace.WithAttributes(
		attribute.String("feed", snap.Feed),
		attribute.String("tick_id", res.ID),
	))
	defer span.End()

	start := time.Now()
	err := e.ingest(ctx, snap, &res)
	res.Duration = time.Since(start)

	outcome := "applied"
	switch {
	case err != nil:
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.LogError(e.logger, "tick failed", err,
			slog.String("tick_id", res.ID),
			slog.String("feed", snap.Feed))
		err = &TickError{TickID: res.ID, Feed: snap.Feed, Err: err}
	case res.Skipped:
		outcome = "skipped"
		e.logger.Debug("tick skipped",
			slog.String("feed", snap.Feed),
			slog.Time("header_timestamp", snap.Timestamp))
	default:
		logging.LogOperation(e.logger, "tick_applied",
			slog.String("tick_id", res.ID),
			slog.String("feed", snap.Feed),
			slog.Int("trip_updates", res.TripUpdates),
			slog.Int("vehicles", res.Vehicles),
			slog.Int("alerts", res.Alerts),
			slog.Int("failed_entities", res.FailedEntities),
			slog.Int("stale_updates", res.StaleUpdates),
			slog.Int("trip_runs_created", res.TripRunsCreated),
			slog.Duration("duration", res.Duration))
	}
	e.cfg.Metrics.ObserveTick(snap.Feed, outcome, res.Duration)
	if res.StaleUpdates > 0 {
		e.cfg.Metrics.StaleUpdates(res.StaleUpdates)
	}

	if outcome == "applied" && e.cfg.Publisher != nil {
		if pubErr := e.cfg.Publisher.PublishTick(ctx, res); pubErr != nil {
			logging.LogError(e.logger, "failed to publish tick", pubErr, slog.String("tick_id", res.ID))
		}
	}
	return res, err
}

func (e *Engine) ingest(ctx context.Context, snap *realtime.Snapshot, res *TickResult) error {
	header := snap.Timestamp
	if header.IsZero() {
		header = e.cfg.Now()
		res.HeaderTimestamp = header
	}

	e.db.LockWrite()
	defer e.db.UnlockWrite()

	tx, err := e.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, e.logger, "ingest_tick")
	qtx := e.db.Queries.WithTx(tx)

	last, err := qtx.LastFeedTimestamp(ctx, snap.Feed)
	if err != nil {
		return fmt.Errorf("error reading last tick: %w", err)
	}
	if header.Unix() <= last {
		res.Skipped = true
		return nil
	}

	t := &tick{engine: e, q: qtx, header: header}
	for _, tu := range snap.TripUpdates {
		ok, err := t.entity(ctx, "trip_update", tu.EntityID, func(st *entityStats) error {
			return t.applyTripUpdate(ctx, tu, st)
		})
		if err != nil {
			return err
		}
		if ok {
			res.TripUpdates++
		}
	}
	for _, vp := range snap.Vehicles {
		ok, err := t.entity(ctx, "vehicle", vp.EntityID, func(*entityStats) error {
			return t.applyVehicle(ctx, vp)
		})
		if err != nil {
			return err
		}
		if ok {
			res.Vehicles++
		}
	}
	for _, a := range snap.Alerts {
		ok, err := t.entity(ctx, "alert", a.ID, func(*entityStats) error {
			return t.applyAlert(ctx, a)
		})
		if err != nil {
			return err
		}
		if ok {
			res.Alerts++
		}
	}
	res.FailedEntities = t.failed
	res.StaleUpdates = t.stale
	res.TripRunsCreated = t.created

	err = qtx.InsertFeedTick(ctx, gtfsdb.FeedTick{
		ID:              res.ID,
		Feed:            snap.Feed,
		HeaderTimestamp: header.Unix(),
		AppliedAt:       e.cfg.Now().UnixMilli(),
		TripUpdates:     int64(res.TripUpdates),
		Vehicles:        int64(res.Vehicles),
		Alerts:          int64(res.Alerts),
		SkippedEntities: int64(res.FailedEntities),
	})
	if err != nil {
		return fmt.Errorf("error recording tick: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing tick: %w", err)
	}
	return nil
}

type nopMetrics struct{}

func (nopMetrics) ObserveTick(string, string, time.Duration) {}
func (nopMetrics) EntityProcessed(string, string)            {}
func (nopMetrics) StaleUpdates(int)                          {}
func (nopMetrics) TripRunCreated(string)                     {}
func (nopMetrics) ObserveQuery(time.Duration, int)           {}
