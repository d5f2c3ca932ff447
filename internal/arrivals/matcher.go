package arrivals

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"nextstop.transit.org/gtfsdb"
	"nextstop.transit.org/internal/calendar"
	"nextstop.transit.org/internal/realtime"
)

// Match is the run a descriptor resolved to.
type Match struct {
	Run     gtfsdb.TripRun
	Created bool
	Revived bool
}

// runKey locates one occurrence of a trip. Shift moves the static
// schedule, and is non-zero only for duplicated runs.
type runKey struct {
	date   calendar.Date
	anchor time.Time
	start  time.Time
	shift  time.Duration
}

type matcher struct {
	resolver *calendar.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// MatchOrCreate returns the run identified by d, creating it with its stop
// visits when it does not exist yet. The (trip_id, start_timestamp) key is
// claimed by whichever writer inserts first; later writers merge into it.
func (m *matcher) MatchOrCreate(ctx context.Context, q *gtfsdb.Queries, d realtime.TripDescriptor, events []realtime.StopTimeUpdate, vehicleID string) (Match, error) {
	if d.TripID == "" {
		return Match{}, fmt.Errorf("%w: missing trip_id", ErrInvalidDescriptor)
	}
	switch d.Relationship {
	case realtime.TripScheduled, realtime.TripAdded, realtime.TripCanceled,
		realtime.TripDeleted, realtime.TripDuplicated:
	default:
		return Match{}, fmt.Errorf("%w: %s for trip %s", ErrUnsupportedRelationship, d.Relationship, d.TripID)
	}

	trip, err := q.GetTrip(ctx, d.TripID)
	if gtfsdb.IsNotFound(err) {
		if d.Relationship == realtime.TripAdded {
			return m.matchAdded(ctx, q, d, events, vehicleID)
		}
		return Match{}, fmt.Errorf("%w: unknown trip %s", ErrUnmatchedTripRun, d.TripID)
	}
	if err != nil {
		return Match{}, fmt.Errorf("error loading trip %s: %w", d.TripID, err)
	}

	stopTimes, err := q.GetStopTimesForTrip(ctx, trip.ID)
	if err != nil {
		return Match{}, fmt.Errorf("error loading stop times for trip %s: %w", trip.ID, err)
	}
	if len(stopTimes) == 0 {
		return Match{}, fmt.Errorf("%w: trip %s has no stop times", ErrUnmatchedTripRun, trip.ID)
	}

	key, err := m.resolveKey(d, trip, stopTimes, events)
	if err != nil {
		return Match{}, err
	}

	arg := gtfsdb.InsertTripRunParams{
		TripID:               d.TripID,
		StaticTripID:         gtfsdb.NullString(trip.ID),
		RouteID:              firstNonEmpty(d.RouteID, trip.RouteID),
		DirectionID:          trip.DirectionID,
		StartDate:            key.date.String(),
		StartTimestamp:       key.start.UnixMilli(),
		ScheduleRelationship: int64(d.Relationship),
		VehicleID:            gtfsdb.NullString(vehicleID),
		UpdatedAt:            m.now().UnixMilli(),
	}
	if d.DirectionID != nil {
		arg.DirectionID = gtfsdb.NullInt64(int64(*d.DirectionID))
	}

	return m.upsert(ctx, q, arg, func(runID int64) (bool, error) {
		return materializeStatic(ctx, q, runID, trip.ID, stopTimes, key)
	})
}

func (m *matcher) resolveKey(d realtime.TripDescriptor, trip gtfsdb.Trip, stopTimes []gtfsdb.StopTime, events []realtime.StopTimeUpdate) (runKey, error) {
	firstDep := seconds(stopTimes[0].DepartureTime)

	if d.Relationship == realtime.TripDuplicated {
		if d.StartDate == "" || d.StartTime == "" {
			return runKey{}, fmt.Errorf("%w: duplicated trip %s needs start_date and start_time", ErrInvalidDescriptor, d.TripID)
		}
		date, start, err := parseStart(d.StartDate, d.StartTime)
		if err != nil {
			return runKey{}, err
		}
		anchor := m.resolver.Anchor(date)
		return runKey{date: date, anchor: anchor, start: anchor.Add(start), shift: start - firstDep}, nil
	}

	var key runKey
	if d.StartDate != "" {
		date, start, err := parseStart(d.StartDate, d.StartTime)
		if err != nil {
			return runKey{}, err
		}
		if d.StartTime == "" {
			start = firstDep
		}
		anchor := m.resolver.Anchor(date)
		key = runKey{date: date, anchor: anchor, start: anchor.Add(start)}
	} else {
		key = m.inferKey(trip.ServiceID, stopTimes, events, firstDep)
	}

	if d.Relationship != realtime.TripAdded && !m.resolver.Active(trip.ServiceID, key.date) {
		return runKey{}, fmt.Errorf("%w: service %s of trip %s not active on %s",
			ErrUnmatchedTripRun, trip.ServiceID, trip.ID, key.date)
	}
	return key, nil
}

// inferKey picks the service day for a descriptor without start_date. The
// first absolute event time, less its scheduled offset, points at the
// service day; failing that the run starting closest to now is taken.
func (m *matcher) inferKey(serviceID string, stopTimes []gtfsdb.StopTime, events []realtime.StopTimeUpdate, firstDep time.Duration) runKey {
	for _, u := range events {
		i := stopTimeIndex(stopTimes, u)
		if i < 0 {
			continue
		}
		ev, offset := u.Arrival, stopTimes[i].ArrivalTime
		if !ev.HasTime() {
			ev, offset = u.Departure, stopTimes[i].DepartureTime
		}
		if !ev.HasTime() {
			continue
		}
		return m.closestDay(serviceID, ev.Time, seconds(offset), firstDep)
	}
	return m.closestDay(serviceID, m.now(), firstDep, firstDep)
}

func (m *matcher) closestDay(serviceID string, instant time.Time, offset, firstDep time.Duration) runKey {
	var best runKey
	var bestDist time.Duration
	bestActive := false
	for _, day := range m.resolver.ServiceDaysBetween(instant, instant.Add(24*time.Hour)) {
		active := m.resolver.Active(serviceID, day.Date)
		dist := instant.Sub(day.Anchor.Add(offset)).Abs()
		better := best.anchor.IsZero() ||
			(active && !bestActive) ||
			(active == bestActive && dist < bestDist)
		if better {
			best = runKey{date: day.Date, anchor: day.Anchor, start: day.Anchor.Add(firstDep)}
			bestDist, bestActive = dist, active
		}
	}
	return best
}

// matchAdded builds a run for an ADDED trip with no static counterpart.
// Its schedule is whatever the feed announces; every stop must be known.
func (m *matcher) matchAdded(ctx context.Context, q *gtfsdb.Queries, d realtime.TripDescriptor, events []realtime.StopTimeUpdate, vehicleID string) (Match, error) {
	type addedStop struct {
		seq    int64
		stopID string
		arr    time.Time
		dep    time.Time
	}

	var stops []addedStop
	for i, u := range events {
		if u.StopID == "" {
			return Match{}, fmt.Errorf("%w: added trip %s has a stop update without stop_id", ErrInvalidDescriptor, d.TripID)
		}
		exists, err := q.StopExists(ctx, u.StopID)
		if err != nil {
			return Match{}, err
		}
		if !exists {
			return Match{}, fmt.Errorf("%w: %s on added trip %s", ErrUnknownStop, u.StopID, d.TripID)
		}
		arr, dep := u.Arrival, u.Departure
		if !arr.HasTime() && !dep.HasTime() {
			return Match{}, fmt.Errorf("%w: added trip %s needs absolute times", ErrInvalidDescriptor, d.TripID)
		}
		s := addedStop{seq: int64(i + 1), stopID: u.StopID}
		if u.StopSequence != nil {
			s.seq = int64(*u.StopSequence)
		}
		if arr.HasTime() {
			s.arr = arr.Time
		}
		if dep.HasTime() {
			s.dep = dep.Time
		}
		if s.arr.IsZero() {
			s.arr = s.dep
		}
		if s.dep.IsZero() {
			s.dep = s.arr
		}
		stops = append(stops, s)
	}
	if len(stops) == 0 {
		return Match{}, fmt.Errorf("%w: added trip %s has no stops", ErrInvalidDescriptor, d.TripID)
	}

	var key runKey
	if d.StartDate != "" {
		date, start, err := parseStart(d.StartDate, d.StartTime)
		if err != nil {
			return Match{}, err
		}
		key = runKey{date: date, anchor: m.resolver.Anchor(date)}
		key.start = key.anchor.Add(start)
		if d.StartTime == "" {
			key.start = stops[0].dep
		}
	} else {
		key.date = calendar.DateOf(stops[0].dep.In(m.resolver.Location()))
		key.anchor = m.resolver.Anchor(key.date)
		key.start = stops[0].dep
	}

	arg := gtfsdb.InsertTripRunParams{
		TripID:               d.TripID,
		RouteID:              d.RouteID,
		StartDate:            key.date.String(),
		StartTimestamp:       key.start.UnixMilli(),
		ScheduleRelationship: int64(realtime.TripAdded),
		VehicleID:            gtfsdb.NullString(vehicleID),
		UpdatedAt:            m.now().UnixMilli(),
	}
	if d.DirectionID != nil {
		arg.DirectionID = gtfsdb.NullInt64(int64(*d.DirectionID))
	}

	return m.upsert(ctx, q, arg, func(runID int64) (bool, error) {
		for _, s := range stops {
			_, err := q.InsertStopVisit(ctx, gtfsdb.InsertStopVisitParams{
				TripRunID:          runID,
				StopID:             s.stopID,
				StopSequence:       s.seq,
				ScheduledArrival:   s.arr.UnixMilli(),
				ScheduledDeparture: s.dep.UnixMilli(),
			})
			if err != nil {
				return false, fmt.Errorf("error inserting stop visit: %w", err)
			}
		}
		return false, nil
	})
}

func (m *matcher) upsert(ctx context.Context, q *gtfsdb.Queries, arg gtfsdb.InsertTripRunParams, materialize func(runID int64) (bool, error)) (Match, error) {
	id, created, err := q.InsertTripRunIfAbsent(ctx, arg)
	if err != nil {
		return Match{}, fmt.Errorf("error inserting trip run: %w", err)
	}

	if created {
		anomaly, err := materialize(id)
		if err != nil {
			return Match{}, err
		}
		if anomaly {
			if err := q.MarkTripRunAnomaly(ctx, id); err != nil {
				return Match{}, err
			}
			m.logger.Warn("schedule_anomaly",
				slog.String("trip_id", arg.TripID),
				slog.String("start_date", arg.StartDate))
		}
		run, err := q.GetTripRun(ctx, id)
		if err != nil {
			return Match{}, fmt.Errorf("error loading trip run: %w", err)
		}
		return Match{Run: run, Created: true}, nil
	}

	run, err := q.GetTripRunByKey(ctx, arg.TripID, arg.StartTimestamp)
	if err != nil {
		return Match{}, fmt.Errorf("error loading trip run: %w", err)
	}

	current := realtime.TripRelationship(run.ScheduleRelationship)
	next, revived := transition(current, realtime.TripRelationship(arg.ScheduleRelationship))
	if revived {
		m.logger.Info("trip_run_revived",
			slog.String("trip_id", run.TripID),
			slog.String("start_date", run.StartDate),
			slog.String("from", current.String()))
	}

	err = q.UpdateTripRun(ctx, gtfsdb.UpdateTripRunParams{
		ID:                   run.ID,
		ScheduleRelationship: int64(next),
		VehicleID:            arg.VehicleID,
		UpdatedAt:            arg.UpdatedAt,
	})
	if err != nil {
		return Match{}, fmt.Errorf("error updating trip run: %w", err)
	}
	run.ScheduleRelationship = int64(next)
	run.UpdatedAt = arg.UpdatedAt
	if arg.VehicleID.Valid {
		run.VehicleID = arg.VehicleID
	}
	return Match{Run: run, Revived: revived}, nil
}

// transition applies an incoming relationship to a stored run. A canceled
// run only comes back when the feed sends SCHEDULED for it again.
func transition(current, incoming realtime.TripRelationship) (realtime.TripRelationship, bool) {
	switch {
	case canceled(incoming):
		return incoming, false
	case canceled(current) && incoming == realtime.TripScheduled:
		return incoming, true
	case canceled(current):
		return current, false
	default:
		return incoming, false
	}
}

func canceled(r realtime.TripRelationship) bool {
	return r == realtime.TripCanceled || r == realtime.TripDeleted
}

// materializeStatic writes one visit per stop time. It reports a schedule
// anomaly when a stop departs before it arrives or the times run backwards.
func materializeStatic(ctx context.Context, q *gtfsdb.Queries, runID int64, tripID string, stopTimes []gtfsdb.StopTime, key runKey) (bool, error) {
	base := key.anchor.Add(key.shift)
	anomaly := false
	var prevDep int64
	for i, st := range stopTimes {
		arr := base.Add(seconds(st.ArrivalTime)).UnixMilli()
		dep := base.Add(seconds(st.DepartureTime)).UnixMilli()
		if arr > dep || (i > 0 && arr < prevDep) {
			anomaly = true
		}
		prevDep = dep

		_, err := q.InsertStopVisit(ctx, gtfsdb.InsertStopVisitParams{
			TripRunID:          runID,
			StaticTripID:       gtfsdb.NullString(tripID),
			StopID:             st.StopID,
			StopSequence:       st.StopSequence,
			ScheduledArrival:   arr,
			ScheduledDeparture: dep,
		})
		if err != nil {
			return false, fmt.Errorf("error inserting stop visit: %w", err)
		}
	}
	return anomaly, nil
}

func stopTimeIndex(stopTimes []gtfsdb.StopTime, u realtime.StopTimeUpdate) int {
	for i, st := range stopTimes {
		if u.StopSequence != nil {
			if st.StopSequence == int64(*u.StopSequence) {
				return i
			}
			continue
		}
		if u.StopID != "" && st.StopID == u.StopID {
			return i
		}
	}
	return -1
}

func parseStart(date, clock string) (calendar.Date, time.Duration, error) {
	d, err := calendar.ParseDate(date)
	if err != nil {
		return calendar.Date{}, 0, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if clock == "" {
		return d, 0, nil
	}
	offset, err := ParseClock(clock)
	if err != nil {
		return calendar.Date{}, 0, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return d, offset, nil
}

// ParseClock parses a GTFS HH:MM:SS time. Hours may exceed 23 for trips
// that run past midnight of their service day.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || (i > 0 && v > 59) {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		n[i] = v
	}
	return time.Duration(n[0])*time.Hour + time.Duration(n[1])*time.Minute + time.Duration(n[2])*time.Second, nil
}

func seconds(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
