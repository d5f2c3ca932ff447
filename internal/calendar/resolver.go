package calendar

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"nextstop.transit.org/internal/logging"
)

// Resolver answers service questions for one feed. It is immutable after
// construction apart from the set of ambiguities already reported, so it is
// safe for concurrent use.
type Resolver struct {
	services map[string]*Service
	loc      *time.Location
	logger   *slog.Logger
	reported sync.Map
}

func NewResolver(services []*Service, loc *time.Location, logger *slog.Logger) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	byID := make(map[string]*Service, len(services))
	for _, s := range services {
		byID[s.ID] = s
	}
	return &Resolver{
		services: byID,
		loc:      loc,
		logger:   logging.ForComponent(logger, "calendar"),
	}
}

// Location is the agency timezone service days are anchored in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

func (r *Resolver) Anchor(d Date) time.Time {
	return Anchor(d, r.loc)
}

// Active reports whether the service runs on the date. Unknown services
// never run.
func (r *Resolver) Active(serviceID string, d Date) bool {
	svc, ok := r.services[serviceID]
	if !ok {
		return false
	}
	res := Resolve(svc, d)
	if res.Ambiguous {
		r.reportAmbiguity(svc, d, res)
	}
	return res.Active
}

// ActiveOn returns the ids of every service running on the date, sorted.
func (r *Resolver) ActiveOn(d Date) []string {
	var ids []string
	for id := range r.services {
		if r.Active(id, d) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ServiceDay is one service day relevant to an instant. Offset is the
// instant measured from the day's anchor, directly comparable with
// stop_times offsets.
type ServiceDay struct {
	Date       Date
	Anchor     time.Time
	Offset     time.Duration
	ServiceIDs []string
}

// ServiceDays returns the service days whose trips can be running at the
// instant: the local calendar day D and D-1, whose overflow offsets
// (24:00:00 and later) land in the early hours of D.
func (r *Resolver) ServiceDays(instant time.Time) []ServiceDay {
	return r.ServiceDaysBetween(instant, instant)
}

// ServiceDaysBetween returns every service day from D(from)-1 through D(to)
// in date order, with offsets measured from from.
func (r *Resolver) ServiceDaysBetween(from, to time.Time) []ServiceDay {
	if to.Before(from) {
		from, to = to, from
	}
	first := DateOf(from.In(r.loc)).AddDays(-1)
	last := DateOf(to.In(r.loc))

	var days []ServiceDay
	for d := first; !d.After(last); d = d.AddDays(1) {
		anchor := r.Anchor(d)
		days = append(days, ServiceDay{
			Date:       d,
			Anchor:     anchor,
			Offset:     from.Sub(anchor),
			ServiceIDs: r.ActiveOn(d),
		})
	}
	return days
}

// ActiveService is one (service, service day, offset) triple.
type ActiveService struct {
	ServiceID string
	Date      Date
	Offset    time.Duration
}

// ActiveAt flattens ServiceDays into one entry per running service.
func (r *Resolver) ActiveAt(instant time.Time) []ActiveService {
	var out []ActiveService
	for _, day := range r.ServiceDays(instant) {
		for _, id := range day.ServiceIDs {
			out = append(out, ActiveService{ServiceID: id, Date: day.Date, Offset: day.Offset})
		}
	}
	return out
}

type ambiguityKey struct {
	service string
	date    Date
}

func (r *Resolver) reportAmbiguity(svc *Service, d Date, res Resolution) {
	if _, seen := r.reported.LoadOrStore(ambiguityKey{svc.ID, d}, struct{}{}); seen {
		return
	}
	r.logger.Warn("calendar_ambiguity",
		slog.String("service_id", svc.ID),
		slog.String("date", d.String()),
		slog.String("resolved_by", res.Source.String()),
		slog.Bool("active", res.Active))
}
