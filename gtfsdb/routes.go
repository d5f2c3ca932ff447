package gtfsdb

import (
	"context"
	"database/sql"
)

type CreateRouteParams struct {
	ID        string
	AgencyID  string
	ShortName sql.NullString
	LongName  sql.NullString
	Type      int64
	Url       sql.NullString
	Color     sql.NullString
	TextColor sql.NullString
}

func (q *Queries) CreateRoute(ctx context.Context, arg CreateRouteParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO routes (id, agency_id, short_name, long_name, type, url, color, text_color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.AgencyID, arg.ShortName, arg.LongName,
		arg.Type, arg.Url, arg.Color, arg.TextColor,
	)
	return err
}

func (q *Queries) GetRoute(ctx context.Context, id string) (Route, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, agency_id, short_name, long_name, type, url, color, text_color
		FROM routes WHERE id = ?`, id)
	var r Route
	err := row.Scan(&r.ID, &r.AgencyID, &r.ShortName, &r.LongName, &r.Type, &r.Url, &r.Color, &r.TextColor)
	return r, err
}

// GetRoutesForStop returns the distinct routes with at least one scheduled
// trip calling at the stop.
func (q *Queries) GetRoutesForStop(ctx context.Context, stopID string) ([]Route, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT r.id, r.agency_id, r.short_name, r.long_name, r.type, r.url, r.color, r.text_color
		FROM stop_times st
		JOIN trips t ON t.id = st.trip_id
		JOIN routes r ON r.id = t.route_id
		WHERE st.stop_id = ?
		ORDER BY r.id`, stopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var routes []Route
	for rows.Next() {
		var r Route
		if err := rows.Scan(&r.ID, &r.AgencyID, &r.ShortName, &r.LongName, &r.Type, &r.Url, &r.Color, &r.TextColor); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}
