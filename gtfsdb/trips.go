package gtfsdb

import (
	"context"
	"database/sql"
)

type CreateTripParams struct {
	ID            string
	RouteID       string
	ServiceID     string
	TripHeadsign  sql.NullString
	TripShortName sql.NullString
	DirectionID   sql.NullInt64
	BlockID       sql.NullString
}

func (q *Queries) CreateTrip(ctx context.Context, arg CreateTripParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO trips (id, route_id, service_id, trip_headsign, trip_short_name, direction_id, block_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.RouteID, arg.ServiceID, arg.TripHeadsign,
		arg.TripShortName, arg.DirectionID, arg.BlockID,
	)
	return err
}

func (q *Queries) GetTrip(ctx context.Context, id string) (Trip, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, route_id, service_id, trip_headsign, trip_short_name, direction_id, block_id
		FROM trips WHERE id = ?`, id)
	var t Trip
	err := row.Scan(&t.ID, &t.RouteID, &t.ServiceID, &t.TripHeadsign,
		&t.TripShortName, &t.DirectionID, &t.BlockID)
	return t, err
}
