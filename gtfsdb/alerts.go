package gtfsdb

import (
	"context"
)

type ReplaceAlertParams struct {
	Alert            Alert
	InformedEntities []AlertInformedEntity
	ActivePeriods    []AlertActivePeriod
}

// ReplaceAlert stores an alert with its informed entities and active
// periods, discarding whatever the previous version of the alert held.
func (q *Queries) ReplaceAlert(ctx context.Context, arg ReplaceAlertParams) error {
	a := arg.Alert
	if _, err := q.db.ExecContext(ctx, `DELETE FROM alert WHERE id = ?`, a.ID); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO alert (id, cause, effect, header_text, description_text, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Cause, a.Effect, a.HeaderText, a.DescriptionText, a.LastSeen,
	)
	if err != nil {
		return err
	}

	for _, e := range arg.InformedEntities {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO alert_informed_entity (alert_id, agency_id, route_id, route_type, stop_id, trip_id, trip_run_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, e.AgencyID, e.RouteID, e.RouteType, e.StopID, e.TripID, e.TripRunID,
		)
		if err != nil {
			return err
		}
	}

	for _, p := range arg.ActivePeriods {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO alert_active_period (alert_id, start_time, end_time)
			VALUES (?, ?, ?)`,
			a.ID, p.StartTime, p.EndTime,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListAlertsForStop returns alerts active at atMs that name the stop, a
// route serving it, or a run that calls at it.
func (q *Queries) ListAlertsForStop(ctx context.Context, stopID string, atMs int64) ([]Alert, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT a.id, a.cause, a.effect, a.header_text, a.description_text, a.last_seen
		FROM alert a
		WHERE EXISTS (
			SELECT 1 FROM alert_informed_entity e
			WHERE e.alert_id = a.id AND (
				e.stop_id = ?
				OR (e.stop_id IS NULL AND e.route_id IN (
					SELECT t.route_id FROM stop_times st JOIN trips t ON t.id = st.trip_id WHERE st.stop_id = ?))
				OR (e.stop_id IS NULL AND e.trip_run_id IN (
					SELECT sv.trip_run_id FROM stop_visit sv WHERE sv.stop_id = ?))
			)
		)
		AND (
			NOT EXISTS (SELECT 1 FROM alert_active_period p WHERE p.alert_id = a.id)
			OR EXISTS (
				SELECT 1 FROM alert_active_period p
				WHERE p.alert_id = a.id
					AND (p.start_time IS NULL OR p.start_time <= ?)
					AND (p.end_time IS NULL OR p.end_time > ?)
			)
		)
		ORDER BY a.id`,
		stopID, stopID, stopID, atMs, atMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Cause, &a.Effect, &a.HeaderText, &a.DescriptionText, &a.LastSeen); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
