package calendar

import (
	"fmt"
	"time"
)

// Weekdays is a bitmask with bit n set when the service runs on
// time.Weekday(n).
type Weekdays uint8

func WeekdaysOf(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

func (w Weekdays) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

type ExceptionType int

const (
	ExceptionAdded   ExceptionType = 1
	ExceptionRemoved ExceptionType = 2
)

// Service is one operating pattern: a weekly mask over an inclusive date
// range, overridden per date by exceptions.
type Service struct {
	ID       string
	Weekdays Weekdays
	Start    Date
	End      Date

	added   map[Date]struct{}
	removed map[Date]struct{}
}

func NewService(id string, days Weekdays, start, end Date) *Service {
	return &Service{
		ID:       id,
		Weekdays: days,
		Start:    start,
		End:      end,
		added:    make(map[Date]struct{}),
		removed:  make(map[Date]struct{}),
	}
}

func (s *Service) AddException(d Date, t ExceptionType) error {
	switch t {
	case ExceptionAdded:
		s.added[d] = struct{}{}
	case ExceptionRemoved:
		s.removed[d] = struct{}{}
	default:
		return fmt.Errorf("service %s: unknown exception type %d", s.ID, t)
	}
	return nil
}

// Source names the rule that decided a Resolution.
type Source int

const (
	SourceNone Source = iota
	SourceWeekly
	SourceAdded
	SourceRemoved
)

func (s Source) String() string {
	switch s {
	case SourceWeekly:
		return "weekly"
	case SourceAdded:
		return "added"
	case SourceRemoved:
		return "removed"
	default:
		return "none"
	}
}

type Resolution struct {
	Active    bool
	Source    Source
	Ambiguous bool
}

// Resolve decides whether svc operates on date. An exception on the exact
// date is authoritative. Otherwise the weekday bit must be set and the date
// must fall inside [Start, End]. A date listed both as added and removed
// resolves as removed; it and an inverted date range are reported as
// ambiguous.
func Resolve(svc *Service, date Date) Resolution {
	if svc == nil {
		return Resolution{}
	}

	_, added := svc.added[date]
	_, removed := svc.removed[date]
	switch {
	case removed:
		return Resolution{Active: false, Source: SourceRemoved, Ambiguous: added}
	case added:
		return Resolution{Active: true, Source: SourceAdded}
	}

	if svc.Start.IsZero() || svc.End.IsZero() {
		return Resolution{Source: SourceNone}
	}
	if svc.Start.After(svc.End) {
		return Resolution{Source: SourceWeekly, Ambiguous: true}
	}

	inRange := !date.Before(svc.Start) && !date.After(svc.End)
	return Resolution{
		Active: inRange && svc.Weekdays.Has(date.Weekday()),
		Source: SourceWeekly,
	}
}
