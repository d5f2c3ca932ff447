package gtfsdb

import (
	"context"
)

// UpsertVehicle stores the latest position report. An older report never
// overwrites a newer one.
func (q *Queries) UpsertVehicle(ctx context.Context, arg Vehicle) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO vehicle (
			id, label, trip_id, route_id, start_date, lat, lon, bearing, speed, occupancy_status, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			label = excluded.label,
			trip_id = excluded.trip_id,
			route_id = excluded.route_id,
			start_date = excluded.start_date,
			lat = excluded.lat,
			lon = excluded.lon,
			bearing = excluded.bearing,
			speed = excluded.speed,
			occupancy_status = excluded.occupancy_status,
			timestamp = excluded.timestamp
		WHERE excluded.timestamp >= vehicle.timestamp`,
		arg.ID, arg.Label, arg.TripID, arg.RouteID, arg.StartDate,
		arg.Lat, arg.Lon, arg.Bearing, arg.Speed, arg.OccupancyStatus, arg.Timestamp,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetVehicle(ctx context.Context, id string) (Vehicle, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, label, trip_id, route_id, start_date, lat, lon, bearing, speed, occupancy_status, timestamp
		FROM vehicle WHERE id = ?`, id)
	var v Vehicle
	err := row.Scan(&v.ID, &v.Label, &v.TripID, &v.RouteID, &v.StartDate,
		&v.Lat, &v.Lon, &v.Bearing, &v.Speed, &v.OccupancyStatus, &v.Timestamp)
	return v, err
}
