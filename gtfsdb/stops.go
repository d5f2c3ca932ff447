package gtfsdb

import (
	"context"
	"database/sql"
)

type CreateStopParams struct {
	ID            string
	Code          sql.NullString
	Name          sql.NullString
	Lat           float64
	Lon           float64
	LocationType  sql.NullInt64
	ParentStation sql.NullString
	Timezone      sql.NullString
	PlatformCode  sql.NullString
}

func (q *Queries) CreateStop(ctx context.Context, arg CreateStopParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO stops (id, code, name, lat, lon, location_type, parent_station, timezone, platform_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Code, arg.Name, arg.Lat, arg.Lon,
		arg.LocationType, arg.ParentStation, arg.Timezone, arg.PlatformCode,
	)
	return err
}

func (q *Queries) GetStop(ctx context.Context, id string) (Stop, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, code, name, lat, lon, location_type, parent_station, timezone, platform_code
		FROM stops WHERE id = ?`, id)
	var s Stop
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Lat, &s.Lon,
		&s.LocationType, &s.ParentStation, &s.Timezone, &s.PlatformCode)
	return s, err
}

func (q *Queries) StopExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM stops WHERE id = ?)`, id).Scan(&exists)
	return exists, err
}
