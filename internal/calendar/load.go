package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nextstop.transit.org/gtfsdb"
)

// Load builds a Resolver from the calendar tables. Service days are
// anchored in the first agency's timezone; GTFS requires every agency of a
// feed to share one.
func Load(ctx context.Context, q *gtfsdb.Queries, logger *slog.Logger) (*Resolver, error) {
	agencies, err := q.ListAgencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading agencies: %w", err)
	}
	loc := time.UTC
	if len(agencies) > 0 && agencies[0].Timezone != "" {
		loc, err = time.LoadLocation(agencies[0].Timezone)
		if err != nil {
			return nil, fmt.Errorf("error loading agency timezone %q: %w", agencies[0].Timezone, err)
		}
	}

	calendars, err := q.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading calendar: %w", err)
	}
	dates, err := q.ListCalendarDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading calendar dates: %w", err)
	}

	services, err := FromRows(calendars, dates)
	if err != nil {
		return nil, err
	}
	return NewResolver(services, loc, logger), nil
}

// FromRows converts calendar.txt and calendar_dates.txt rows into services.
// A service that appears only in calendar_dates gets an empty weekly mask.
func FromRows(calendars []gtfsdb.Calendar, dates []gtfsdb.CalendarDate) ([]*Service, error) {
	byID := make(map[string]*Service, len(calendars))
	var services []*Service

	for _, c := range calendars {
		var start, end Date
		var err error
		if c.StartDate != "" {
			if start, err = ParseDate(c.StartDate); err != nil {
				return nil, err
			}
		}
		if c.EndDate != "" {
			if end, err = ParseDate(c.EndDate); err != nil {
				return nil, err
			}
		}
		days := weekdaysFromRow(c)
		svc := NewService(c.ID, days, start, end)
		byID[c.ID] = svc
		services = append(services, svc)
	}

	for _, cd := range dates {
		svc, ok := byID[cd.ServiceID]
		if !ok {
			svc = NewService(cd.ServiceID, 0, Date{}, Date{})
			byID[cd.ServiceID] = svc
			services = append(services, svc)
		}
		d, err := ParseDate(cd.Date)
		if err != nil {
			return nil, err
		}
		if err := svc.AddException(d, ExceptionType(cd.ExceptionType)); err != nil {
			return nil, err
		}
	}
	return services, nil
}

func weekdaysFromRow(c gtfsdb.Calendar) Weekdays {
	var w Weekdays
	flags := []struct {
		on  int64
		day time.Weekday
	}{
		{c.Sunday, time.Sunday},
		{c.Monday, time.Monday},
		{c.Tuesday, time.Tuesday},
		{c.Wednesday, time.Wednesday},
		{c.Thursday, time.Thursday},
		{c.Friday, time.Friday},
		{c.Saturday, time.Saturday},
	}
	for _, f := range flags {
		if f.on != 0 {
			w |= WeekdaysOf(f.day)
		}
	}
	return w
}
