package arrivals

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nextstop.transit.org/gtfsdb"
	"nextstop.transit.org/internal/logging"
	"nextstop.transit.org/internal/realtime"
)

// Arrival is one call of a trip occurrence at a stop. EffectiveTime is the
// live arrival when one is known and the scheduled arrival otherwise.
type Arrival struct {
	TripRunID      int64
	TripID         string
	RouteID        string
	RouteShortName string
	Headsign       string
	StopID         string
	StopSequence   int64
	ServiceDate    string
	ScheduledTime  time.Time
	EffectiveTime  time.Time
	DepartureTime  time.Time
	Realtime       bool
	Relationship   realtime.TripRelationship
	VehicleID      string
	Occupancy      string
}

type candidate struct {
	Arrival
	scheduledDeparture time.Time
	canonicalStart     int64
	skipped            bool
}

type callSlot struct {
	tripID string
	date   string
	seq    int64
}

// NextArrivals returns up to limit calls at the stop whose arrival or
// departure is at or after from and whose arrival is within the horizon,
// ordered by effective time, then trip id, then stop sequence. The result
// is computed against one consistent state of the index and may be
// iterated once. An unknown stop yields an empty sequence.
func (e *Engine) NextArrivals(ctx context.Context, stopID string, from time.Time, limit int) (iter.Seq[Arrival], error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	ctx, span := e.tracer.Start(ctx, "arrivals.next_arrivals", trace.WithAttributes(
		attribute.String("stop_id", stopID),
		attribute.Int("limit", limit),
	))
	defer span.End()

	start := time.Now()
	arrivals, err := e.nextArrivals(ctx, stopID, from, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("results", len(arrivals)))
	e.cfg.Metrics.ObserveQuery(time.Since(start), len(arrivals))
	return singleUse(arrivals), nil
}

func (e *Engine) nextArrivals(ctx context.Context, stopID string, from time.Time, limit int) ([]Arrival, error) {
	tx, err := e.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting read transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, e.logger, "next_arrivals")
	q := e.db.Queries.WithTx(tx)

	exists, err := q.StopExists(ctx, stopID)
	if err != nil {
		return nil, err
	}
	if !exists {
		e.logger.Debug("arrivals for unknown stop", slog.String("stop_id", stopID))
		return nil, nil
	}

	windowStart := from.Add(-e.cfg.Lookbehind)
	windowEnd := from.Add(e.cfg.Horizon)

	calls, err := q.GetScheduledCallsForStop(ctx, stopID)
	if err != nil {
		return nil, fmt.Errorf("error loading scheduled calls: %w", err)
	}

	slots := make(map[callSlot]*candidate)
	var all []*candidate
	for _, day := range e.resolver.ServiceDaysBetween(windowStart, windowEnd) {
		active := make(map[string]bool, len(day.ServiceIDs))
		for _, id := range day.ServiceIDs {
			active[id] = true
		}
		for _, c := range calls {
			if !active[c.ServiceID] {
				continue
			}
			arr := day.Anchor.Add(seconds(c.ArrivalTime))
			dep := day.Anchor.Add(seconds(c.DepartureTime))
			if dep.Before(windowStart) || arr.After(windowEnd) {
				continue
			}
			cand := &candidate{
				Arrival: Arrival{
					TripID:         c.TripID,
					RouteID:        c.RouteID,
					RouteShortName: c.RouteShortName,
					Headsign:       firstNonEmpty(c.StopHeadsign, c.TripHeadsign),
					StopID:         stopID,
					StopSequence:   c.StopSequence,
					ServiceDate:    day.Date.String(),
					ScheduledTime:  arr,
					EffectiveTime:  arr,
					DepartureTime:  dep,
					Relationship:   realtime.TripScheduled,
				},
				scheduledDeparture: dep,
				canonicalStart:     day.Anchor.Add(seconds(c.FirstDeparture)).UnixMilli(),
			}
			slots[callSlot{c.TripID, cand.ServiceDate, c.StopSequence}] = cand
			all = append(all, cand)
		}
	}

	visits, err := q.ListRunVisitsAtStop(ctx, stopID, windowStart.UnixMilli(), windowEnd.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("error loading live visits: %w", err)
	}
	for _, v := range visits {
		rel := realtime.TripRelationship(v.ScheduleRelationship)
		if c, ok := slots[callSlot{v.TripID, v.StartDate, v.StopSequence}]; ok {
			extra := rel == realtime.TripAdded || rel == realtime.TripDuplicated
			switch {
			case v.StartTimestamp == c.canonicalStart:
				c.overlay(v)
				continue
			case !extra && c.TripRunID == 0:
				c.overlay(v)
				continue
			case !extra:
				continue
			}
		}
		all = append(all, visitCandidate(v))
	}

	var out []Arrival
	for _, c := range all {
		if c.skipped || canceled(c.Relationship) {
			continue
		}
		last := c.EffectiveTime
		if c.DepartureTime.After(last) {
			last = c.DepartureTime
		}
		if last.Before(from) || c.EffectiveTime.After(windowEnd) {
			continue
		}
		out = append(out, c.Arrival)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.EffectiveTime.Equal(b.EffectiveTime) {
			return a.EffectiveTime.Before(b.EffectiveTime)
		}
		if a.TripID != b.TripID {
			return a.TripID < b.TripID
		}
		return a.StopSequence < b.StopSequence
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *candidate) overlay(v gtfsdb.RunVisit) {
	c.TripRunID = v.TripRunID
	c.Relationship = realtime.TripRelationship(v.ScheduleRelationship)
	c.VehicleID = v.VehicleID.String
	c.Occupancy = v.OccupancyStatus.String
	c.skipped = v.Skipped
	c.EffectiveTime = c.ScheduledTime
	c.DepartureTime = c.scheduledDeparture
	c.Realtime = false
	if v.LiveArrival.Valid {
		c.EffectiveTime = time.UnixMilli(v.LiveArrival.Int64)
		c.Realtime = true
	}
	if v.LiveDeparture.Valid {
		c.DepartureTime = time.UnixMilli(v.LiveDeparture.Int64)
		c.Realtime = true
	}
}

// visitCandidate builds an arrival from a run visit alone, for runs with
// no static call in the window: added and duplicated runs, and runs whose
// delay moved them into it.
func visitCandidate(v gtfsdb.RunVisit) *candidate {
	c := &candidate{
		Arrival: Arrival{
			TripID:         v.TripID,
			RouteID:        v.RouteID,
			RouteShortName: v.RouteShortName,
			Headsign:       v.TripHeadsign,
			StopID:         v.StopID,
			StopSequence:   v.StopSequence,
			ServiceDate:    v.StartDate,
			ScheduledTime:  time.UnixMilli(v.ScheduledArrival),
			EffectiveTime:  time.UnixMilli(v.ScheduledArrival),
			DepartureTime:  time.UnixMilli(v.ScheduledDeparture),
		},
		scheduledDeparture: time.UnixMilli(v.ScheduledDeparture),
		canonicalStart:     v.StartTimestamp,
	}
	c.overlay(v)
	return c
}

// singleUse wraps a result so that only the first iteration yields it.
func singleUse(arrivals []Arrival) iter.Seq[Arrival] {
	var used atomic.Bool
	return func(yield func(Arrival) bool) {
		if used.Swap(true) {
			return
		}
		for _, a := range arrivals {
			if !yield(a) {
				return
			}
		}
	}
}

// RoutesForStop lists the routes with a scheduled call at the stop.
func (e *Engine) RoutesForStop(ctx context.Context, stopID string) ([]gtfsdb.Route, error) {
	exists, err := e.db.Queries.StopExists(ctx, stopID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStop, stopID)
	}
	return e.db.Queries.GetRoutesForStop(ctx, stopID)
}

// AlertsForStop lists alerts active at the instant that affect the stop,
// a route serving it, or a run calling at it.
func (e *Engine) AlertsForStop(ctx context.Context, stopID string, at time.Time) ([]gtfsdb.Alert, error) {
	exists, err := e.db.Queries.StopExists(ctx, stopID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStop, stopID)
	}
	return e.db.Queries.ListAlertsForStop(ctx, stopID, at.UnixMilli())
}
