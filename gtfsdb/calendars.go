package gtfsdb

import (
	"context"
)

type CreateCalendarParams struct {
	ID        string
	Monday    int64
	Tuesday   int64
	Wednesday int64
	Thursday  int64
	Friday    int64
	Saturday  int64
	Sunday    int64
	StartDate string
	EndDate   string
}

func (q *Queries) CreateCalendar(ctx context.Context, arg CreateCalendarParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO calendar (
			id, monday, tuesday, wednesday, thursday,
			friday, saturday, sunday, start_date, end_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Monday, arg.Tuesday, arg.Wednesday, arg.Thursday,
		arg.Friday, arg.Saturday, arg.Sunday, arg.StartDate, arg.EndDate,
	)
	return err
}

// CreateCalendarDate stores one exception. A duplicate row is ignored; a
// date listed as both added and removed keeps both rows so the resolver can
// flag the conflict.
func (q *Queries) CreateCalendarDate(ctx context.Context, arg CalendarDate) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO calendar_dates (service_id, date, exception_type)
		VALUES (?, ?, ?)
		ON CONFLICT (service_id, date, exception_type) DO NOTHING`,
		arg.ServiceID, arg.Date, arg.ExceptionType,
	)
	return err
}

func (q *Queries) ListCalendars(ctx context.Context) ([]Calendar, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date
		FROM calendar ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var calendars []Calendar
	for rows.Next() {
		var c Calendar
		err := rows.Scan(&c.ID, &c.Monday, &c.Tuesday, &c.Wednesday, &c.Thursday,
			&c.Friday, &c.Saturday, &c.Sunday, &c.StartDate, &c.EndDate)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, c)
	}
	return calendars, rows.Err()
}

func (q *Queries) ListCalendarDates(ctx context.Context) ([]CalendarDate, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT service_id, date, exception_type
		FROM calendar_dates ORDER BY service_id, date, exception_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var dates []CalendarDate
	for rows.Next() {
		var d CalendarDate
		if err := rows.Scan(&d.ServiceID, &d.Date, &d.ExceptionType); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
