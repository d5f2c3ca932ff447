package gtfsdb

import (
	"context"
	"database/sql"
)

type CreateAgencyParams struct {
	ID       string
	Name     string
	Url      string
	Timezone string
	Lang     sql.NullString
	Phone    sql.NullString
	FareUrl  sql.NullString
	Email    sql.NullString
}

func (q *Queries) CreateAgency(ctx context.Context, arg CreateAgencyParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agencies (id, name, url, timezone, lang, phone, fare_url, email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Name, arg.Url, arg.Timezone,
		arg.Lang, arg.Phone, arg.FareUrl, arg.Email,
	)
	return err
}

// ListAgencies returns every agency ordered by id.
func (q *Queries) ListAgencies(ctx context.Context) ([]Agency, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, url, timezone, lang, phone, fare_url, email
		FROM agencies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var agencies []Agency
	for rows.Next() {
		var a Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.Url, &a.Timezone, &a.Lang, &a.Phone, &a.FareUrl, &a.Email); err != nil {
			return nil, err
		}
		agencies = append(agencies, a)
	}
	return agencies, rows.Err()
}
