package arrivals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextstop.transit.org/gtfsdb"
	"nextstop.transit.org/internal/realtime"
)

const minute = int64(60_000)

func scheduledVisits(n int) []gtfsdb.StopVisit {
	visits := make([]gtfsdb.StopVisit, n)
	for i := range visits {
		t := int64(i) * 10 * minute
		visits[i] = gtfsdb.StopVisit{
			ID:                 int64(i + 1),
			StopSequence:       int64(i + 1),
			ScheduledArrival:   t,
			ScheduledDeparture: t + minute,
		}
	}
	return visits
}

func delayed(d time.Duration) *realtime.StopTimeEvent {
	return &realtime.StopTimeEvent{Delay: d, HasDelay: true}
}

func TestPropagatorApply(t *testing.T) {
	t.Run("explicit delay propagates downstream", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(4))
		out := p.Apply(Event{Index: 1, Arrival: delayed(2 * time.Minute), SourceTimestamp: 100})
		require.Equal(t, OutcomeApplied, out)

		v := p.Visits()
		assert.False(t, v[0].LiveArrival.Valid, "upstream untouched")
		assert.Equal(t, int64(SourceExplicit), v[1].UpdateSource)
		assert.Equal(t, 12*minute, v[1].LiveArrival.Int64)
		assert.Equal(t, 13*minute, v[1].LiveDeparture.Int64)
		for _, w := range v[2:] {
			assert.Equal(t, int64(SourcePropagated), w.UpdateSource)
			assert.Equal(t, w.ScheduledArrival+2*minute, w.LiveArrival.Int64)
			assert.Equal(t, int64(4), w.OriginRank)
		}
		assert.Len(t, p.Changed(), 3)
	})

	t.Run("absolute time implies its delay", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(3))
		p.Apply(Event{Index: 0, Departure: &realtime.StopTimeEvent{Time: time.UnixMilli(4 * minute)}, SourceTimestamp: 100})

		v := p.Visits()
		assert.Equal(t, 4*minute, v[0].LiveDeparture.Int64)
		assert.Equal(t, 3*minute, v[0].LiveArrival.Int64)
		assert.Equal(t, int64(3), v[0].OriginRank, "departure origin ranks one above arrival")
		assert.Equal(t, 13*minute, v[1].LiveArrival.Int64)
	})

	t.Run("nearer origin wins among same-timestamp updates", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(4))
		p.Apply(Event{Index: 1, Arrival: delayed(time.Minute), SourceTimestamp: 100})
		p.Apply(Event{Index: 0, Arrival: delayed(5 * time.Minute), SourceTimestamp: 100})

		v := p.Visits()
		assert.Equal(t, 11*minute, v[1].LiveArrival.Int64)
		assert.Equal(t, 21*minute, v[2].LiveArrival.Int64, "sequence 2 outranks sequence 1")
	})

	t.Run("propagated never overwrites explicit", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(3))
		p.Apply(Event{Index: 2, Arrival: delayed(time.Minute), SourceTimestamp: 100})
		p.Apply(Event{Index: 0, Arrival: delayed(5 * time.Minute), SourceTimestamp: 200})

		v := p.Visits()
		assert.Equal(t, int64(SourcePropagated), v[1].UpdateSource)
		assert.Equal(t, int64(SourceExplicit), v[2].UpdateSource)
		assert.Equal(t, 21*minute, v[2].LiveArrival.Int64)
	})

	t.Run("stale explicit is a no-op", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(2))
		p.Apply(Event{Index: 0, Arrival: delayed(time.Minute), SourceTimestamp: 200})
		out := p.Apply(Event{Index: 0, Arrival: delayed(9 * time.Minute), SourceTimestamp: 100})

		assert.Equal(t, OutcomeStale, out)
		assert.Equal(t, minute, p.Visits()[0].LiveArrival.Int64)
	})

	t.Run("older explicit does not replace a fresher propagated value", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(3))
		p.Apply(Event{Index: 0, Arrival: delayed(time.Minute), SourceTimestamp: 200})
		out := p.Apply(Event{Index: 1, Arrival: delayed(10 * time.Minute), SourceTimestamp: 100})

		assert.Equal(t, OutcomeStale, out)
		v := p.Visits()
		assert.Equal(t, int64(SourcePropagated), v[1].UpdateSource)
		assert.Equal(t, int64(200), v[1].SourceTimestamp)
		assert.Equal(t, 11*minute, v[1].LiveArrival.Int64)
		assert.Equal(t, 21*minute, v[2].LiveArrival.Int64, "downstream keeps the newer delay")
	})

	t.Run("explicit from the same message replaces propagated", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(3))
		p.Apply(Event{Index: 0, Arrival: delayed(time.Minute), SourceTimestamp: 200})
		out := p.Apply(Event{Index: 1, Arrival: delayed(3 * time.Minute), SourceTimestamp: 200})

		assert.Equal(t, OutcomeApplied, out)
		v := p.Visits()
		assert.Equal(t, int64(SourceExplicit), v[1].UpdateSource)
		assert.Equal(t, 13*minute, v[1].LiveArrival.Int64)
		assert.Equal(t, 23*minute, v[2].LiveArrival.Int64)
	})

	t.Run("redelivery is a no-op", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(2))
		ev := Event{Index: 0, Arrival: delayed(time.Minute), SourceTimestamp: 100}
		p.Apply(ev)
		before := append([]gtfsdb.StopVisit(nil), p.Visits()...)

		assert.Equal(t, OutcomeStale, p.Apply(ev))
		assert.Equal(t, before, p.Visits())
	})

	t.Run("skipped clears live times and does not propagate", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(3))
		p.Apply(Event{Index: 1, Skipped: true, SourceTimestamp: 100})

		v := p.Visits()
		assert.True(t, v[1].Skipped)
		assert.False(t, v[1].LiveArrival.Valid)
		assert.Equal(t, int64(SourceScheduled), v[2].UpdateSource)
	})

	t.Run("empty event is ignored", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(2))
		assert.Equal(t, OutcomeIgnored, p.Apply(Event{Index: 0, SourceTimestamp: 100}))
		assert.Equal(t, OutcomeIgnored, p.Apply(Event{Index: 5, Arrival: delayed(time.Minute)}))
		assert.Empty(t, p.Changed())
	})

	t.Run("trip delay covers every visit", func(t *testing.T) {
		p := NewPropagator(scheduledVisits(3))
		p.PropagateDelay(90*time.Second, 100)
		for _, v := range p.Visits() {
			assert.Equal(t, v.ScheduledArrival+90_000, v.LiveArrival.Int64)
			assert.Equal(t, int64(SourcePropagated), v.UpdateSource)
		}
	})
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"08:00:00", 8 * time.Hour, true},
		{"25:10:00", 25*time.Hour + 10*time.Minute, true},
		{"7:05:09", 7*time.Hour + 5*time.Minute + 9*time.Second, true},
		{"08:60:00", 0, false},
		{"08:00", 0, false},
		{"aa:00:00", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name     string
		current  realtime.TripRelationship
		incoming realtime.TripRelationship
		want     realtime.TripRelationship
		revived  bool
	}{
		{"cancel", realtime.TripScheduled, realtime.TripCanceled, realtime.TripCanceled, false},
		{"canceled is sticky", realtime.TripCanceled, realtime.TripAdded, realtime.TripCanceled, false},
		{"revival", realtime.TripCanceled, realtime.TripScheduled, realtime.TripScheduled, true},
		{"deleted revival", realtime.TripDeleted, realtime.TripScheduled, realtime.TripScheduled, true},
		{"added", realtime.TripScheduled, realtime.TripAdded, realtime.TripAdded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, revived := transition(tt.current, tt.incoming)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.revived, revived)
		})
	}
}
