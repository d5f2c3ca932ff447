package gtfsdb

import (
	"context"
	"database/sql"
)

const tripRunColumns = `id, trip_id, static_trip_id, route_id, direction_id, start_date, start_timestamp,
	schedule_relationship, vehicle_id, schedule_anomaly, updated_at`

func scanTripRun(row interface{ Scan(...any) error }) (TripRun, error) {
	var r TripRun
	err := row.Scan(&r.ID, &r.TripID, &r.StaticTripID, &r.RouteID, &r.DirectionID, &r.StartDate,
		&r.StartTimestamp, &r.ScheduleRelationship, &r.VehicleID, &r.ScheduleAnomaly, &r.UpdatedAt)
	return r, err
}

type InsertTripRunParams struct {
	TripID               string
	StaticTripID         sql.NullString
	RouteID              string
	DirectionID          sql.NullInt64
	StartDate            string
	StartTimestamp       int64
	ScheduleRelationship int64
	VehicleID            sql.NullString
	UpdatedAt            int64
}

// InsertTripRunIfAbsent inserts a run keyed by (trip_id, start_timestamp).
// When the key already exists nothing is written and created is false; the
// unique constraint decides which concurrent writer owns the key.
func (q *Queries) InsertTripRunIfAbsent(ctx context.Context, arg InsertTripRunParams) (id int64, created bool, err error) {
	err = q.db.QueryRowContext(ctx, `
		INSERT INTO trip_run (
			trip_id, static_trip_id, route_id, direction_id, start_date, start_timestamp,
			schedule_relationship, vehicle_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (trip_id, start_timestamp) DO NOTHING
		RETURNING id`,
		arg.TripID, arg.StaticTripID, arg.RouteID, arg.DirectionID, arg.StartDate, arg.StartTimestamp,
		arg.ScheduleRelationship, arg.VehicleID, arg.UpdatedAt,
	).Scan(&id)
	if IsNotFound(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (q *Queries) GetTripRun(ctx context.Context, id int64) (TripRun, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tripRunColumns+` FROM trip_run WHERE id = ?`, id)
	return scanTripRun(row)
}

func (q *Queries) GetTripRunByKey(ctx context.Context, tripID string, startTimestamp int64) (TripRun, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tripRunColumns+`
		FROM trip_run WHERE trip_id = ? AND start_timestamp = ?`, tripID, startTimestamp)
	return scanTripRun(row)
}

// FindTripRunByDate returns the most recently updated run of a trip on a
// service date.
func (q *Queries) FindTripRunByDate(ctx context.Context, tripID, startDate string) (TripRun, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tripRunColumns+`
		FROM trip_run WHERE trip_id = ? AND start_date = ?
		ORDER BY updated_at DESC, id DESC LIMIT 1`, tripID, startDate)
	return scanTripRun(row)
}

// FindLatestTripRun returns the most recently updated run of a trip on any day.
func (q *Queries) FindLatestTripRun(ctx context.Context, tripID string) (TripRun, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tripRunColumns+`
		FROM trip_run WHERE trip_id = ?
		ORDER BY updated_at DESC, id DESC LIMIT 1`, tripID)
	return scanTripRun(row)
}

type UpdateTripRunParams struct {
	ID                   int64
	ScheduleRelationship int64
	VehicleID            sql.NullString
	UpdatedAt            int64
}

func (q *Queries) UpdateTripRun(ctx context.Context, arg UpdateTripRunParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE trip_run
		SET schedule_relationship = ?, vehicle_id = COALESCE(?, vehicle_id), updated_at = ?
		WHERE id = ?`,
		arg.ScheduleRelationship, arg.VehicleID, arg.UpdatedAt, arg.ID,
	)
	return err
}

func (q *Queries) MarkTripRunAnomaly(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE trip_run SET schedule_anomaly = 1 WHERE id = ?`, id)
	return err
}

// AttachVehicle records the vehicle serving a run. The link is a lookup
// only; the run never owns the vehicle row.
func (q *Queries) AttachVehicle(ctx context.Context, tripID, startDate, vehicleID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE trip_run SET vehicle_id = ?
		WHERE trip_id = ? AND start_date = ? AND (vehicle_id IS NULL OR vehicle_id <> ?)`,
		vehicleID, tripID, startDate, vehicleID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) CountTripRuns(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trip_run`).Scan(&n)
	return n, err
}
