package arrivals

import (
	"context"
	"database/sql"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nextstop.transit.org/gtfsdb"
	"nextstop.transit.org/internal/appconf"
	"nextstop.transit.org/internal/calendar"
	"nextstop.transit.org/internal/realtime"
)

// The fixture network runs in UTC. 2024-07-03 is a Wednesday and WKDY is
// removed on 2024-07-04.
//
//	T1 (WKDY)  S1 08:00:00  S2 08:10:00-08:10:30  S3 08:20:00
//	T2 (WKDY)  S1 08:07:00  S2 08:17:00
//	N1 (DAILY) S1 24:50:00  S2 25:10:00
//
// S4 has no scheduled calls.
const serviceDate = "20240703"

func at(hour, min int) time.Time {
	return time.Date(2024, 7, 3, hour, min, 0, 0, time.UTC)
}

func clock(h, m, s int) int64 {
	return int64(h*3600 + m*60 + s)
}

func newTestClient(t *testing.T) *gtfsdb.Client {
	t.Helper()
	client, err := gtfsdb.NewClient(gtfsdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	seedNetwork(t, client.Queries)
	return client
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *gtfsdb.Client) {
	t.Helper()
	client := newTestClient(t)
	resolver, err := calendar.Load(context.Background(), client.Queries, nil)
	require.NoError(t, err)
	engine := NewEngine(client, resolver, Config{
		Lookbehind: 5 * time.Minute,
		Horizon:    3 * time.Hour,
		Now:        func() time.Time { return now },
	})
	return engine, client
}

func seedNetwork(t *testing.T, q *gtfsdb.Queries) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, q.CreateAgency(ctx, gtfsdb.CreateAgencyParams{
		ID: "A", Name: "Metro", Url: "https://metro.example", Timezone: "UTC",
	}))
	require.NoError(t, q.CreateRoute(ctx, gtfsdb.CreateRouteParams{
		ID: "R1", AgencyID: "A", ShortName: sql.NullString{String: "1", Valid: true}, Type: 3,
	}))
	for _, id := range []string{"S1", "S2", "S3", "S4"} {
		require.NoError(t, q.CreateStop(ctx, gtfsdb.CreateStopParams{
			ID: id, Name: sql.NullString{String: "Stop " + id, Valid: true}, Lat: 47.6, Lon: -122.3,
		}))
	}

	require.NoError(t, q.CreateCalendar(ctx, gtfsdb.CreateCalendarParams{
		ID: "WKDY", Monday: 1, Tuesday: 1, Wednesday: 1, Thursday: 1, Friday: 1,
		StartDate: "20240101", EndDate: "20241231",
	}))
	require.NoError(t, q.CreateCalendar(ctx, gtfsdb.CreateCalendarParams{
		ID: "DAILY", Monday: 1, Tuesday: 1, Wednesday: 1, Thursday: 1, Friday: 1, Saturday: 1, Sunday: 1,
		StartDate: "20240101", EndDate: "20241231",
	}))
	require.NoError(t, q.CreateCalendarDate(ctx, gtfsdb.CalendarDate{ServiceID: "WKDY", Date: "20240704", ExceptionType: 2}))

	trips := []struct {
		id, service, headsign string
		calls                 [][3]any // stop, arrival, departure
	}{
		{"T1", "WKDY", "Downtown", [][3]any{
			{"S1", clock(8, 0, 0), clock(8, 0, 0)},
			{"S2", clock(8, 10, 0), clock(8, 10, 30)},
			{"S3", clock(8, 20, 0), clock(8, 20, 0)},
		}},
		{"T2", "WKDY", "Downtown", [][3]any{
			{"S1", clock(8, 7, 0), clock(8, 7, 0)},
			{"S2", clock(8, 17, 0), clock(8, 17, 0)},
		}},
		{"N1", "DAILY", "Night Owl", [][3]any{
			{"S1", clock(24, 50, 0), clock(24, 50, 0)},
			{"S2", clock(25, 10, 0), clock(25, 10, 0)},
		}},
	}
	for _, tr := range trips {
		require.NoError(t, q.CreateTrip(ctx, gtfsdb.CreateTripParams{
			ID: tr.id, RouteID: "R1", ServiceID: tr.service,
			TripHeadsign: sql.NullString{String: tr.headsign, Valid: true},
			DirectionID:  sql.NullInt64{Int64: 0, Valid: true},
		}))
		for i, c := range tr.calls {
			require.NoError(t, q.CreateStopTime(ctx, gtfsdb.CreateStopTimeParams{
				TripID:        tr.id,
				StopID:        c[0].(string),
				StopSequence:  int64(i + 1),
				ArrivalTime:   c[1].(int64),
				DepartureTime: c[2].(int64),
			}))
		}
	}
}

func seqNo(n uint32) *uint32 {
	return &n
}

func delayAt(seq uint32, d time.Duration) realtime.StopTimeUpdate {
	return realtime.StopTimeUpdate{
		StopSequence: seqNo(seq),
		Arrival:      &realtime.StopTimeEvent{Delay: d, HasDelay: true},
	}
}

func arrivalAt(seq uint32, ts time.Time) realtime.StopTimeUpdate {
	return realtime.StopTimeUpdate{
		StopSequence: seqNo(seq),
		Arrival:      &realtime.StopTimeEvent{Time: ts},
	}
}

func tripUpdate(tripID, startDate string, rel realtime.TripRelationship, stus ...realtime.StopTimeUpdate) realtime.TripUpdate {
	return realtime.TripUpdate{
		EntityID:        "tu-" + tripID,
		Trip:            realtime.TripDescriptor{TripID: tripID, StartDate: startDate, Relationship: rel},
		StopTimeUpdates: stus,
	}
}

func snapshot(header time.Time, tus ...realtime.TripUpdate) *realtime.Snapshot {
	return &realtime.Snapshot{Feed: "metro", Timestamp: header, TripUpdates: tus}
}

func ingest(t *testing.T, e *Engine, snap *realtime.Snapshot) TickResult {
	t.Helper()
	res, err := e.Ingest(context.Background(), snap)
	require.NoError(t, err)
	return res
}

func collect(seq iter.Seq[Arrival]) []Arrival {
	var out []Arrival
	for a := range seq {
		out = append(out, a)
	}
	return out
}

func nextArrivals(t *testing.T, e *Engine, stopID string, from time.Time, limit int) []Arrival {
	t.Helper()
	seq, err := e.NextArrivals(context.Background(), stopID, from, limit)
	require.NoError(t, err)
	return collect(seq)
}

func runVisits(t *testing.T, client *gtfsdb.Client, tripID, startDate string) []gtfsdb.StopVisit {
	t.Helper()
	ctx := context.Background()
	run, err := client.Queries.FindTripRunByDate(ctx, tripID, startDate)
	require.NoError(t, err)
	visits, err := client.Queries.GetStopVisitsForRun(ctx, run.ID)
	require.NoError(t, err)
	return visits
}
