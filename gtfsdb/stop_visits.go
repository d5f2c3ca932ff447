package gtfsdb

import (
	"context"
	"database/sql"
)

type InsertStopVisitParams struct {
	TripRunID          int64
	StaticTripID       sql.NullString
	StopID             string
	StopSequence       int64
	ScheduledArrival   int64
	ScheduledDeparture int64
	LiveArrival        sql.NullInt64
	LiveDeparture      sql.NullInt64
	UpdateSource       int64
	SourceTimestamp    int64
	OriginRank         int64
	Skipped            bool
}

func (q *Queries) InsertStopVisit(ctx context.Context, arg InsertStopVisitParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO stop_visit (
			trip_run_id, static_trip_id, stop_id, stop_sequence,
			scheduled_arrival, scheduled_departure, live_arrival, live_departure,
			update_source, source_timestamp, origin_rank, skipped
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		arg.TripRunID, arg.StaticTripID, arg.StopID, arg.StopSequence,
		arg.ScheduledArrival, arg.ScheduledDeparture, arg.LiveArrival, arg.LiveDeparture,
		arg.UpdateSource, arg.SourceTimestamp, arg.OriginRank, boolToInt(arg.Skipped),
	).Scan(&id)
	return id, err
}

// GetStopVisitsForRun returns a run's visits in stop_sequence order.
func (q *Queries) GetStopVisitsForRun(ctx context.Context, tripRunID int64) ([]StopVisit, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, trip_run_id, static_trip_id, stop_id, stop_sequence,
			scheduled_arrival, scheduled_departure, live_arrival, live_departure,
			update_source, source_timestamp, origin_rank, skipped
		FROM stop_visit
		WHERE trip_run_id = ?
		ORDER BY stop_sequence`, tripRunID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var visits []StopVisit
	for rows.Next() {
		var v StopVisit
		err := rows.Scan(&v.ID, &v.TripRunID, &v.StaticTripID, &v.StopID, &v.StopSequence,
			&v.ScheduledArrival, &v.ScheduledDeparture, &v.LiveArrival, &v.LiveDeparture,
			&v.UpdateSource, &v.SourceTimestamp, &v.OriginRank, &v.Skipped)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

type UpdateStopVisitLiveParams struct {
	ID              int64
	LiveArrival     sql.NullInt64
	LiveDeparture   sql.NullInt64
	UpdateSource    int64
	SourceTimestamp int64
	OriginRank      int64
	Skipped         bool
}

func (q *Queries) UpdateStopVisitLive(ctx context.Context, arg UpdateStopVisitLiveParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE stop_visit
		SET live_arrival = ?, live_departure = ?, update_source = ?,
			source_timestamp = ?, origin_rank = ?, skipped = ?
		WHERE id = ?`,
		arg.LiveArrival, arg.LiveDeparture, arg.UpdateSource,
		arg.SourceTimestamp, arg.OriginRank, boolToInt(arg.Skipped), arg.ID,
	)
	return err
}

// RunVisit is a stop visit joined with the state of its run, as the query
// engine overlays it on the static schedule.
type RunVisit struct {
	StopVisit
	TripID               string
	RouteID              string
	RouteShortName       string
	TripHeadsign         string
	StartDate            string
	StartTimestamp       int64
	ScheduleRelationship int64
	VehicleID            sql.NullString
	OccupancyStatus      sql.NullString
}

// ListRunVisitsAtStop returns every visit at the stop whose scheduled
// arrival or departure falls in [fromMs, toMs], or whose live time does.
func (q *Queries) ListRunVisitsAtStop(ctx context.Context, stopID string, fromMs, toMs int64) ([]RunVisit, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT sv.id, sv.trip_run_id, sv.static_trip_id, sv.stop_id, sv.stop_sequence,
			sv.scheduled_arrival, sv.scheduled_departure, sv.live_arrival, sv.live_departure,
			sv.update_source, sv.source_timestamp, sv.origin_rank, sv.skipped,
			tr.trip_id, tr.route_id, COALESCE(r.short_name, r.long_name, ''),
			COALESCE(t.trip_headsign, ''), tr.start_date, tr.start_timestamp,
			tr.schedule_relationship, tr.vehicle_id, v.occupancy_status
		FROM stop_visit sv
		JOIN trip_run tr ON tr.id = sv.trip_run_id
		LEFT JOIN routes r ON r.id = tr.route_id
		LEFT JOIN trips t ON t.id = tr.static_trip_id
		LEFT JOIN vehicle v ON v.id = tr.vehicle_id
		WHERE sv.stop_id = ?
			AND (
				(sv.scheduled_arrival <= ? AND sv.scheduled_departure >= ?)
				OR (COALESCE(sv.live_departure, sv.live_arrival) >= ? AND COALESCE(sv.live_arrival, sv.live_departure) <= ?)
			)
		ORDER BY sv.scheduled_arrival, tr.trip_id, sv.stop_sequence`,
		stopID, toMs, fromMs, fromMs, toMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var visits []RunVisit
	for rows.Next() {
		var v RunVisit
		err := rows.Scan(&v.ID, &v.TripRunID, &v.StaticTripID, &v.StopID, &v.StopSequence,
			&v.ScheduledArrival, &v.ScheduledDeparture, &v.LiveArrival, &v.LiveDeparture,
			&v.UpdateSource, &v.SourceTimestamp, &v.OriginRank, &v.Skipped,
			&v.TripID, &v.RouteID, &v.RouteShortName,
			&v.TripHeadsign, &v.StartDate, &v.StartTimestamp,
			&v.ScheduleRelationship, &v.VehicleID, &v.OccupancyStatus)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func (q *Queries) CountStopVisits(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stop_visit`).Scan(&n)
	return n, err
}
