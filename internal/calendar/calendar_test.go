package calendar

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nextstop.transit.org/gtfsdb"
	"nextstop.transit.org/internal/logging"
)

var weekdays = WeekdaysOf(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)

func weekdayService(t *testing.T) *Service {
	t.Helper()
	return NewService("WKDY", weekdays, MustParseDate("20240101"), MustParseDate("20241231"))
}

func TestDate(t *testing.T) {
	d, err := ParseDate("20240704")
	require.NoError(t, err)
	assert.Equal(t, "20240704", d.String())
	assert.Equal(t, time.Thursday, d.Weekday())
	assert.Equal(t, "20240801", MustParseDate("20240731").AddDays(1).String())
	assert.Equal(t, "20231231", MustParseDate("20240101").AddDays(-1).String())
	assert.True(t, MustParseDate("20240101").Before(MustParseDate("20240102")))

	_, err = ParseDate("2024-07-04")
	assert.Error(t, err)
}

func TestAnchor(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	t.Run("ordinary day anchors at local midnight", func(t *testing.T) {
		a := Anchor(MustParseDate("20240704"), ny)
		assert.Equal(t, time.Date(2024, 7, 4, 0, 0, 0, 0, ny), a)
	})

	t.Run("spring forward day anchors at noon minus twelve hours", func(t *testing.T) {
		a := Anchor(MustParseDate("20240310"), ny)
		noon := time.Date(2024, 3, 10, 12, 0, 0, 0, ny)
		assert.Equal(t, 12*time.Hour, noon.Sub(a))
		assert.Equal(t, 23, a.In(ny).Hour(), "anchor falls on the previous evening")
	})
}

func TestResolve(t *testing.T) {
	t.Run("removed exception on a weekday in range disables service", func(t *testing.T) {
		svc := weekdayService(t)
		require.NoError(t, svc.AddException(MustParseDate("20240704"), ExceptionRemoved))

		res := Resolve(svc, MustParseDate("20240704"))
		assert.False(t, res.Active)
		assert.Equal(t, SourceRemoved, res.Source)
	})

	t.Run("added exception overrides weekday mask and date range", func(t *testing.T) {
		svc := weekdayService(t)
		saturday := MustParseDate("20240706")
		outside := MustParseDate("20250301")
		require.NoError(t, svc.AddException(saturday, ExceptionAdded))
		require.NoError(t, svc.AddException(outside, ExceptionAdded))

		assert.True(t, Resolve(svc, saturday).Active)
		assert.True(t, Resolve(svc, outside).Active)
	})

	t.Run("removed exception wins whatever the mask says", func(t *testing.T) {
		all := WeekdaysOf(time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday)
		svc := NewService("ALL", all, MustParseDate("20240101"), MustParseDate("20241231"))
		for d := MustParseDate("20240701"); !d.After(MustParseDate("20240707")); d = d.AddDays(1) {
			require.NoError(t, svc.AddException(d, ExceptionRemoved))
			assert.False(t, Resolve(svc, d).Active, d.String())
		}
	})

	t.Run("weekly rule", func(t *testing.T) {
		svc := weekdayService(t)
		tests := []struct {
			date   string
			active bool
		}{
			{"20240703", true},
			{"20240706", false},
			{"20240101", true},
			{"20241231", true},
			{"20231229", false},
			{"20250102", false},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.active, Resolve(svc, MustParseDate(tt.date)).Active, tt.date)
		}
	})

	t.Run("conflicting exceptions resolve as removed and are ambiguous", func(t *testing.T) {
		svc := weekdayService(t)
		d := MustParseDate("20240705")
		require.NoError(t, svc.AddException(d, ExceptionAdded))
		require.NoError(t, svc.AddException(d, ExceptionRemoved))

		res := Resolve(svc, d)
		assert.False(t, res.Active)
		assert.True(t, res.Ambiguous)
	})

	t.Run("inverted range is inactive and ambiguous", func(t *testing.T) {
		svc := NewService("BAD", weekdays, MustParseDate("20241231"), MustParseDate("20240101"))
		res := Resolve(svc, MustParseDate("20240703"))
		assert.False(t, res.Active)
		assert.True(t, res.Ambiguous)
	})

	t.Run("nil service is inactive", func(t *testing.T) {
		assert.False(t, Resolve(nil, MustParseDate("20240703")).Active)
	})

	t.Run("unknown exception type is rejected", func(t *testing.T) {
		assert.Error(t, weekdayService(t).AddException(MustParseDate("20240703"), ExceptionType(3)))
	})
}

func TestResolver(t *testing.T) {
	svc := weekdayService(t)
	require.NoError(t, svc.AddException(MustParseDate("20240704"), ExceptionRemoved))
	sat := NewService("SAT", WeekdaysOf(time.Saturday), MustParseDate("20240101"), MustParseDate("20241231"))
	r := NewResolver([]*Service{svc, sat}, time.UTC, nil)

	t.Run("scenario WKDY on Independence Day", func(t *testing.T) {
		assert.False(t, r.Active("WKDY", MustParseDate("20240704")))
		assert.True(t, r.Active("WKDY", MustParseDate("20240703")))
	})

	t.Run("unknown service never runs", func(t *testing.T) {
		assert.False(t, r.Active("NOPE", MustParseDate("20240703")))
	})

	t.Run("service days cover the previous day", func(t *testing.T) {
		// Sunday 01:10; Saturday service is still relevant for overflow trips.
		instant := time.Date(2024, 7, 7, 1, 10, 0, 0, time.UTC)
		days := r.ServiceDays(instant)
		require.Len(t, days, 2)

		assert.Equal(t, "20240706", days[0].Date.String())
		assert.Equal(t, []string{"SAT"}, days[0].ServiceIDs)
		assert.Equal(t, 25*time.Hour+10*time.Minute, days[0].Offset)

		assert.Equal(t, "20240707", days[1].Date.String())
		assert.Empty(t, days[1].ServiceIDs)
		assert.Equal(t, 70*time.Minute, days[1].Offset)

		active := r.ActiveAt(instant)
		require.Len(t, active, 1)
		assert.Equal(t, ActiveService{ServiceID: "SAT", Date: MustParseDate("20240706"), Offset: 25*time.Hour + 10*time.Minute}, active[0])
	})

	t.Run("window spans every day between the bounds", func(t *testing.T) {
		from := time.Date(2024, 7, 3, 22, 0, 0, 0, time.UTC)
		to := from.Add(4 * time.Hour)
		days := r.ServiceDaysBetween(from, to)
		require.Len(t, days, 3)
		assert.Equal(t, "20240702", days[0].Date.String())
		assert.Equal(t, "20240704", days[2].Date.String())
		assert.Empty(t, days[2].ServiceIDs, "WKDY removed on 20240704")
	})
}

func TestResolverLogsAmbiguityOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewStructuredLogger(&buf, slog.LevelInfo)

	svc := weekdayService(t)
	d := MustParseDate("20240705")
	require.NoError(t, svc.AddException(d, ExceptionAdded))
	require.NoError(t, svc.AddException(d, ExceptionRemoved))
	r := NewResolver([]*Service{svc}, time.UTC, logger)

	assert.False(t, r.Active("WKDY", d))
	assert.False(t, r.Active("WKDY", d))

	output := buf.String()
	assert.Equal(t, 1, strings.Count(output, `"msg":"calendar_ambiguity"`))
	assert.Contains(t, output, `"service_id":"WKDY"`)
	assert.Contains(t, output, `"resolved_by":"removed"`)
}

func TestFromRows(t *testing.T) {
	calendars := []gtfsdb.Calendar{{
		ID: "WKDY", Monday: 1, Tuesday: 1, Wednesday: 1, Thursday: 1, Friday: 1,
		StartDate: "20240101", EndDate: "20241231",
	}}
	dates := []gtfsdb.CalendarDate{
		{ServiceID: "WKDY", Date: "20240704", ExceptionType: 2},
		{ServiceID: "HOLIDAY", Date: "20240704", ExceptionType: 1},
	}

	services, err := FromRows(calendars, dates)
	require.NoError(t, err)
	require.Len(t, services, 2)

	r := NewResolver(services, time.UTC, nil)
	assert.False(t, r.Active("WKDY", MustParseDate("20240704")))
	assert.True(t, r.Active("WKDY", MustParseDate("20240705")))
	assert.True(t, r.Active("HOLIDAY", MustParseDate("20240704")))
	assert.False(t, r.Active("HOLIDAY", MustParseDate("20240705")))

	_, err = FromRows(nil, []gtfsdb.CalendarDate{{ServiceID: "X", Date: "bad", ExceptionType: 1}})
	assert.Error(t, err)
}
