// Package realtime decodes GTFS-Realtime feeds into plain values the
// arrivals engine can apply without touching protobuf types.
package realtime

import "time"

// TripRelationship mirrors TripDescriptor.ScheduleRelationship. Values
// match the wire enum so unknown future values survive decoding.
type TripRelationship int32

const (
	TripScheduled   TripRelationship = 0
	TripAdded       TripRelationship = 1
	TripUnscheduled TripRelationship = 2
	TripCanceled    TripRelationship = 3
	TripReplacement TripRelationship = 5
	TripDuplicated  TripRelationship = 6
	TripDeleted     TripRelationship = 7
)

func (r TripRelationship) String() string {
	switch r {
	case TripScheduled:
		return "SCHEDULED"
	case TripAdded:
		return "ADDED"
	case TripUnscheduled:
		return "UNSCHEDULED"
	case TripCanceled:
		return "CANCELED"
	case TripReplacement:
		return "REPLACEMENT"
	case TripDuplicated:
		return "DUPLICATED"
	case TripDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// StopRelationship mirrors StopTimeUpdate.ScheduleRelationship.
type StopRelationship int32

const (
	StopScheduled   StopRelationship = 0
	StopSkipped     StopRelationship = 1
	StopNoData      StopRelationship = 2
	StopUnscheduled StopRelationship = 3
)

// Snapshot is one decoded feed, or several merged into one tick.
type Snapshot struct {
	Feed        string
	Timestamp   time.Time
	TripUpdates []TripUpdate
	Vehicles    []VehiclePosition
	Alerts      []Alert
}

func (s *Snapshot) Empty() bool {
	return len(s.TripUpdates) == 0 && len(s.Vehicles) == 0 && len(s.Alerts) == 0
}

type TripDescriptor struct {
	TripID       string
	RouteID      string
	DirectionID  *uint32
	StartDate    string // YYYYMMDD, empty when absent
	StartTime    string // HH:MM:SS, hours may exceed 23
	Relationship TripRelationship
}

type TripUpdate struct {
	EntityID        string
	Trip            TripDescriptor
	VehicleID       string
	VehicleLabel    string
	Timestamp       time.Time
	Delay           *time.Duration
	StopTimeUpdates []StopTimeUpdate
}

type StopTimeUpdate struct {
	StopSequence *uint32
	StopID       string
	Arrival      *StopTimeEvent
	Departure    *StopTimeEvent
	Relationship StopRelationship
}

// StopTimeEvent carries an absolute time, a delay, or both. When both are
// present the absolute time wins.
type StopTimeEvent struct {
	Time     time.Time
	Delay    time.Duration
	HasDelay bool
}

func (e *StopTimeEvent) HasTime() bool {
	return e != nil && !e.Time.IsZero()
}

// Empty reports whether the event carries nothing usable.
func (e *StopTimeEvent) Empty() bool {
	return e == nil || (!e.HasTime() && !e.HasDelay)
}

type VehiclePosition struct {
	EntityID        string
	VehicleID       string
	Label           string
	Trip            *TripDescriptor
	Latitude        *float64
	Longitude       *float64
	Bearing         *float64
	Speed           *float64
	OccupancyStatus string
	Timestamp       time.Time
}

type AlertPeriod struct {
	Start time.Time
	End   time.Time
}

type InformedEntity struct {
	AgencyID  string
	RouteID   string
	RouteType *int32
	StopID    string
	Trip      *TripDescriptor
}

type Alert struct {
	ID               string
	Cause            string
	Effect           string
	HeaderText       string
	DescriptionText  string
	ActivePeriods    []AlertPeriod
	InformedEntities []InformedEntity
}
