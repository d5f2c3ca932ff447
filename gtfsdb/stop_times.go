package gtfsdb

import (
	"context"
	"database/sql"
)

type CreateStopTimeParams struct {
	TripID        string
	ArrivalTime   int64
	DepartureTime int64
	StopID        string
	StopSequence  int64
	StopHeadsign  sql.NullString
	PickupType    sql.NullInt64
	DropOffType   sql.NullInt64
}

func (q *Queries) CreateStopTime(ctx context.Context, arg CreateStopTimeParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO stop_times (
			trip_id, arrival_time, departure_time, stop_id, stop_sequence,
			stop_headsign, pickup_type, drop_off_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.TripID, arg.ArrivalTime, arg.DepartureTime, arg.StopID, arg.StopSequence,
		arg.StopHeadsign, arg.PickupType, arg.DropOffType,
	)
	return err
}

// GetStopTimesForTrip returns the trip's stop times in sequence order.
func (q *Queries) GetStopTimesForTrip(ctx context.Context, tripID string) ([]StopTime, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT trip_id, arrival_time, departure_time, stop_id, stop_sequence,
			stop_headsign, pickup_type, drop_off_type
		FROM stop_times
		WHERE trip_id = ?
		ORDER BY stop_sequence`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var stopTimes []StopTime
	for rows.Next() {
		var st StopTime
		err := rows.Scan(&st.TripID, &st.ArrivalTime, &st.DepartureTime, &st.StopID, &st.StopSequence,
			&st.StopHeadsign, &st.PickupType, &st.DropOffType)
		if err != nil {
			return nil, err
		}
		stopTimes = append(stopTimes, st)
	}
	return stopTimes, rows.Err()
}

// ScheduledCall is a static stop time at one stop, joined with its trip and
// route. FirstDeparture is the trip's first departure offset, which locates
// the canonical run start on a service day.
type ScheduledCall struct {
	TripID         string
	StopSequence   int64
	ArrivalTime    int64
	DepartureTime  int64
	StopHeadsign   string
	ServiceID      string
	TripHeadsign   string
	RouteID        string
	RouteShortName string
	FirstDeparture int64
}

func (q *Queries) GetScheduledCallsForStop(ctx context.Context, stopID string) ([]ScheduledCall, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT st.trip_id, st.stop_sequence, st.arrival_time, st.departure_time,
			COALESCE(st.stop_headsign, ''), t.service_id, COALESCE(t.trip_headsign, ''),
			t.route_id, COALESCE(r.short_name, r.long_name, ''),
			(SELECT f.departure_time FROM stop_times f
				WHERE f.trip_id = st.trip_id ORDER BY f.stop_sequence LIMIT 1)
		FROM stop_times st
		JOIN trips t ON t.id = st.trip_id
		JOIN routes r ON r.id = t.route_id
		WHERE st.stop_id = ?
		ORDER BY st.arrival_time, st.trip_id`, stopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var calls []ScheduledCall
	for rows.Next() {
		var c ScheduledCall
		err := rows.Scan(&c.TripID, &c.StopSequence, &c.ArrivalTime, &c.DepartureTime,
			&c.StopHeadsign, &c.ServiceID, &c.TripHeadsign,
			&c.RouteID, &c.RouteShortName, &c.FirstDeparture)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
