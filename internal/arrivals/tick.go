package arrivals

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"nextstop.transit.org/gtfsdb"
	"nextstop.transit.org/internal/realtime"
)

type entityStats struct {
	stale   int
	created string
}

// tick applies the entities of one snapshot inside the tick transaction.
type tick struct {
	engine  *Engine
	q       *gtfsdb.Queries
	header  time.Time
	failed  int
	stale   int
	created int
}

// entity runs apply inside a savepoint. Entity errors undo the entity and
// are reported as ok=false; anything else is returned and ends the tick.
func (t *tick) entity(ctx context.Context, kind, id string, apply func(*entityStats) error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := t.q.Savepoint(ctx, entitySavepoint); err != nil {
		return false, fmt.Errorf("error opening savepoint: %w", err)
	}

	var st entityStats
	if err := apply(&st); err != nil {
		if !entityError(err) {
			return false, err
		}
		if rbErr := t.q.RollbackToSavepoint(ctx, entitySavepoint); rbErr != nil {
			return false, fmt.Errorf("error rolling back entity %s: %w", id, rbErr)
		}
		t.failed++
		t.engine.logger.Warn("entity_skipped",
			slog.String("kind", kind),
			slog.String("entity_id", id),
			slog.String("error", err.Error()))
		t.engine.cfg.Metrics.EntityProcessed(kind, "skipped")
		return false, nil
	}
	if err := t.q.ReleaseSavepoint(ctx, entitySavepoint); err != nil {
		return false, fmt.Errorf("error releasing savepoint: %w", err)
	}

	t.stale += st.stale
	if st.created != "" {
		t.created++
		t.engine.cfg.Metrics.TripRunCreated(st.created)
	}
	t.engine.cfg.Metrics.EntityProcessed(kind, "applied")
	return true, nil
}

func (t *tick) sourceTimestamp(ts time.Time) int64 {
	if ts.IsZero() {
		return t.header.Unix()
	}
	return ts.Unix()
}

func (t *tick) applyTripUpdate(ctx context.Context, tu realtime.TripUpdate, st *entityStats) error {
	m, err := t.engine.matcher.MatchOrCreate(ctx, t.q, tu.Trip, tu.StopTimeUpdates, tu.VehicleID)
	if err != nil {
		return err
	}
	rel := realtime.TripRelationship(m.Run.ScheduleRelationship)
	if m.Created {
		st.created = rel.String()
	}
	if canceled(rel) {
		return nil
	}

	visits, err := t.q.GetStopVisitsForRun(ctx, m.Run.ID)
	if err != nil {
		return fmt.Errorf("error loading visits for run %d: %w", m.Run.ID, err)
	}

	ts := t.sourceTimestamp(tu.Timestamp)
	p := NewPropagator(visits)
	// The trip delay is the baseline; stop updates in the same message
	// outrank it from their own stop onward.
	if tu.Delay != nil {
		p.PropagateDelay(*tu.Delay, ts)
	}
	for _, u := range tu.StopTimeUpdates {
		if u.Relationship != realtime.StopScheduled && u.Relationship != realtime.StopSkipped {
			continue
		}
		i, err := visitIndex(visits, u)
		if err != nil {
			return fmt.Errorf("%w on trip %s", err, tu.Trip.TripID)
		}
		out := p.Apply(Event{
			Index:           i,
			Arrival:         u.Arrival,
			Departure:       u.Departure,
			Skipped:         u.Relationship == realtime.StopSkipped,
			SourceTimestamp: ts,
		})
		if out == OutcomeStale {
			st.stale++
		}
	}

	for _, v := range p.Changed() {
		err := t.q.UpdateStopVisitLive(ctx, gtfsdb.UpdateStopVisitLiveParams{
			ID:              v.ID,
			LiveArrival:     v.LiveArrival,
			LiveDeparture:   v.LiveDeparture,
			UpdateSource:    v.UpdateSource,
			SourceTimestamp: v.SourceTimestamp,
			OriginRank:      v.OriginRank,
			Skipped:         v.Skipped,
		})
		if err != nil {
			return fmt.Errorf("error updating stop visit %d: %w", v.ID, err)
		}
	}
	return nil
}

// visitIndex locates the visit an update targets: by stop_sequence when
// present, checking the stop id if one is given, else by stop id.
func visitIndex(visits []gtfsdb.StopVisit, u realtime.StopTimeUpdate) (int, error) {
	for i, v := range visits {
		if u.StopSequence != nil {
			if v.StopSequence != int64(*u.StopSequence) {
				continue
			}
			if u.StopID != "" && u.StopID != v.StopID {
				return -1, fmt.Errorf("%w: %s at sequence %d, expected %s", ErrUnknownStop, u.StopID, v.StopSequence, v.StopID)
			}
			return i, nil
		}
		if u.StopID != "" && v.StopID == u.StopID {
			return i, nil
		}
	}
	if u.StopSequence != nil {
		return -1, fmt.Errorf("%w: no visit at sequence %d", ErrUnknownStop, *u.StopSequence)
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownStop, u.StopID)
}

func (t *tick) applyVehicle(ctx context.Context, vp realtime.VehiclePosition) error {
	if vp.VehicleID == "" {
		return fmt.Errorf("%w: vehicle without id", ErrInvalidDescriptor)
	}
	ts := vp.Timestamp
	if ts.IsZero() {
		ts = t.header
	}

	v := gtfsdb.Vehicle{
		ID:              vp.VehicleID,
		Label:           gtfsdb.NullString(vp.Label),
		Lat:             gtfsdb.NullFloat64(vp.Latitude),
		Lon:             gtfsdb.NullFloat64(vp.Longitude),
		Bearing:         gtfsdb.NullFloat64(vp.Bearing),
		Speed:           gtfsdb.NullFloat64(vp.Speed),
		OccupancyStatus: gtfsdb.NullString(vp.OccupancyStatus),
		Timestamp:       ts.Unix(),
	}
	if vp.Trip != nil {
		v.TripID = gtfsdb.NullString(vp.Trip.TripID)
		v.RouteID = gtfsdb.NullString(vp.Trip.RouteID)
		v.StartDate = gtfsdb.NullString(vp.Trip.StartDate)
	}
	stored, err := t.q.UpsertVehicle(ctx, v)
	if err != nil {
		return fmt.Errorf("error storing vehicle %s: %w", vp.VehicleID, err)
	}

	// A report older than the stored one must not move the vehicle between runs.
	if stored == 0 || vp.Trip == nil || vp.Trip.TripID == "" {
		return nil
	}
	run, found, err := t.findRun(ctx, *vp.Trip)
	if err != nil || !found {
		return err
	}
	if _, err := t.q.AttachVehicle(ctx, run.TripID, run.StartDate, vp.VehicleID); err != nil {
		return fmt.Errorf("error attaching vehicle %s: %w", vp.VehicleID, err)
	}
	return nil
}

func (t *tick) applyAlert(ctx context.Context, a realtime.Alert) error {
	if a.ID == "" {
		return fmt.Errorf("%w: alert without id", ErrInvalidDescriptor)
	}

	arg := gtfsdb.ReplaceAlertParams{
		Alert: gtfsdb.Alert{
			ID:              a.ID,
			Cause:           a.Cause,
			Effect:          a.Effect,
			HeaderText:      gtfsdb.NullString(a.HeaderText),
			DescriptionText: gtfsdb.NullString(a.DescriptionText),
			LastSeen:        t.header.Unix(),
		},
	}
	for _, ie := range a.InformedEntities {
		e := gtfsdb.AlertInformedEntity{
			AlertID:  a.ID,
			AgencyID: gtfsdb.NullString(ie.AgencyID),
			RouteID:  gtfsdb.NullString(ie.RouteID),
			StopID:   gtfsdb.NullString(ie.StopID),
		}
		if ie.RouteType != nil {
			e.RouteType = gtfsdb.NullInt64(int64(*ie.RouteType))
		}
		if ie.Trip != nil && ie.Trip.TripID != "" {
			e.TripID = gtfsdb.NullString(ie.Trip.TripID)
			run, found, err := t.findRun(ctx, *ie.Trip)
			if err != nil {
				return err
			}
			if found {
				e.TripRunID = gtfsdb.NullInt64(run.ID)
				if !e.RouteID.Valid {
					e.RouteID = gtfsdb.NullString(run.RouteID)
				}
			}
		}
		arg.InformedEntities = append(arg.InformedEntities, e)
	}
	for _, p := range a.ActivePeriods {
		arg.ActivePeriods = append(arg.ActivePeriods, gtfsdb.AlertActivePeriod{
			AlertID:   a.ID,
			StartTime: millisOrNull(p.Start),
			EndTime:   millisOrNull(p.End),
		})
	}

	if err := t.q.ReplaceAlert(ctx, arg); err != nil {
		return fmt.Errorf("error storing alert %s: %w", a.ID, err)
	}
	return nil
}

// findRun looks up an existing run for a descriptor without creating one.
func (t *tick) findRun(ctx context.Context, d realtime.TripDescriptor) (gtfsdb.TripRun, bool, error) {
	var run gtfsdb.TripRun
	var err error
	if d.StartDate != "" {
		run, err = t.q.FindTripRunByDate(ctx, d.TripID, d.StartDate)
	} else {
		run, err = t.q.FindLatestTripRun(ctx, d.TripID)
	}
	if gtfsdb.IsNotFound(err) {
		return gtfsdb.TripRun{}, false, nil
	}
	if err != nil {
		return gtfsdb.TripRun{}, false, fmt.Errorf("error finding run for trip %s: %w", d.TripID, err)
	}
	return run, true, nil
}

func millisOrNull(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return gtfsdb.NullInt64(t.UnixMilli())
}
