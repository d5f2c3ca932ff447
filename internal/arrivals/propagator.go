package arrivals

import (
	"database/sql"
	"time"

	"nextstop.transit.org/gtfsdb"
	"nextstop.transit.org/internal/realtime"
)

// UpdateSource records how a visit's live times were produced. Higher
// values take precedence.
type UpdateSource int64

const (
	SourceScheduled  UpdateSource = 0
	SourcePropagated UpdateSource = 1
	SourceExplicit   UpdateSource = 2
)

func (s UpdateSource) String() string {
	switch s {
	case SourcePropagated:
		return "propagated"
	case SourceExplicit:
		return "explicit"
	default:
		return "scheduled"
	}
}

// freshness orders writes competing for one visit: source timestamp first,
// then origin rank, which is 2*stop_sequence plus one when the delay came
// from a departure.
type freshness struct {
	ts   int64
	rank int64
}

func (f freshness) newerThan(o freshness) bool {
	return f.ts > o.ts || (f.ts == o.ts && f.rank > o.rank)
}

func rowFreshness(v *gtfsdb.StopVisit) freshness {
	return freshness{ts: v.SourceTimestamp, rank: v.OriginRank}
}

// Event is a stop-time update already resolved to a visit of the run.
type Event struct {
	Index           int
	Arrival         *realtime.StopTimeEvent
	Departure       *realtime.StopTimeEvent
	Skipped         bool
	SourceTimestamp int64
}

type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeStale
	OutcomeIgnored
)

// Propagator applies updates to the visits of one run in memory. Changed
// returns the rows that must be written back.
type Propagator struct {
	visits []gtfsdb.StopVisit
	dirty  []bool
}

// NewPropagator takes the run's visits in stop_sequence order.
func NewPropagator(visits []gtfsdb.StopVisit) *Propagator {
	return &Propagator{visits: visits, dirty: make([]bool, len(visits))}
}

// Apply writes an explicit update to its visit and carries the implied
// delay to every later visit not holding an explicit or fresher value.
func (p *Propagator) Apply(ev Event) Outcome {
	if ev.Index < 0 || ev.Index >= len(p.visits) {
		return OutcomeIgnored
	}
	if !ev.Skipped && ev.Arrival.Empty() && ev.Departure.Empty() {
		return OutcomeIgnored
	}

	v := &p.visits[ev.Index]
	f := freshness{ts: ev.SourceTimestamp, rank: 2 * v.StopSequence}
	if !ev.Departure.Empty() {
		f.rank++
	}
	switch UpdateSource(v.UpdateSource) {
	case SourceExplicit:
		if !f.newerThan(rowFreshness(v)) {
			return OutcomeStale
		}
	case SourcePropagated:
		// A propagated value from the same message yields to the stop's own
		// update; one from a newer message does not.
		if ev.SourceTimestamp < v.SourceTimestamp {
			return OutcomeStale
		}
	}

	if ev.Skipped {
		v.LiveArrival = sql.NullInt64{}
		v.LiveDeparture = sql.NullInt64{}
		v.Skipped = true
		p.mark(ev.Index, SourceExplicit, f)
		return OutcomeApplied
	}

	arr, dep := liveTimes(v, ev)
	v.LiveArrival = gtfsdb.NullInt64(arr)
	v.LiveDeparture = gtfsdb.NullInt64(dep)
	v.Skipped = false
	p.mark(ev.Index, SourceExplicit, f)

	p.propagate(ev.Index+1, dep-v.ScheduledDeparture, f)
	return OutcomeApplied
}

// PropagateDelay spreads a trip-level delay over the whole run.
func (p *Propagator) PropagateDelay(delay time.Duration, sourceTimestamp int64) {
	p.propagate(0, delay.Milliseconds(), freshness{ts: sourceTimestamp})
}

func (p *Propagator) propagate(from int, delayMs int64, f freshness) {
	for i := from; i < len(p.visits); i++ {
		v := &p.visits[i]
		switch UpdateSource(v.UpdateSource) {
		case SourceExplicit:
			continue
		case SourcePropagated:
			if !f.newerThan(rowFreshness(v)) {
				continue
			}
		}
		v.LiveArrival = gtfsdb.NullInt64(v.ScheduledArrival + delayMs)
		v.LiveDeparture = gtfsdb.NullInt64(v.ScheduledDeparture + delayMs)
		p.mark(i, SourcePropagated, f)
	}
}

func (p *Propagator) mark(i int, src UpdateSource, f freshness) {
	v := &p.visits[i]
	v.UpdateSource = int64(src)
	v.SourceTimestamp = f.ts
	v.OriginRank = f.rank
	p.dirty[i] = true
}

func (p *Propagator) Visits() []gtfsdb.StopVisit {
	return p.visits
}

func (p *Propagator) Changed() []gtfsdb.StopVisit {
	var out []gtfsdb.StopVisit
	for i, d := range p.dirty {
		if d {
			out = append(out, p.visits[i])
		}
	}
	return out
}

// liveTimes derives both live times from whichever events are present. A
// lone arrival carries its delay to the departure and vice versa, without
// letting the departure precede the arrival.
func liveTimes(v *gtfsdb.StopVisit, ev Event) (arr, dep int64) {
	arr, arrOK := eventTime(ev.Arrival, v.ScheduledArrival)
	dep, depOK := eventTime(ev.Departure, v.ScheduledDeparture)
	switch {
	case arrOK && !depOK:
		dep = max(v.ScheduledDeparture+(arr-v.ScheduledArrival), arr)
	case depOK && !arrOK:
		arr = min(v.ScheduledArrival+(dep-v.ScheduledDeparture), dep)
	}
	return arr, dep
}

func eventTime(ev *realtime.StopTimeEvent, scheduledMs int64) (int64, bool) {
	switch {
	case ev.Empty():
		return 0, false
	case ev.HasTime():
		return ev.Time.UnixMilli(), true
	default:
		return scheduledMs + ev.Delay.Milliseconds(), true
	}
}
