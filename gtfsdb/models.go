package gtfsdb

import (
	"database/sql"
)

type Agency struct {
	ID       string
	Name     string
	Url      string
	Timezone string
	Lang     sql.NullString
	Phone    sql.NullString
	FareUrl  sql.NullString
	Email    sql.NullString
}

type Route struct {
	ID        string
	AgencyID  string
	ShortName sql.NullString
	LongName  sql.NullString
	Type      int64
	Url       sql.NullString
	Color     sql.NullString
	TextColor sql.NullString
}

type Stop struct {
	ID            string
	Code          sql.NullString
	Name          sql.NullString
	Lat           float64
	Lon           float64
	LocationType  sql.NullInt64
	ParentStation sql.NullString
	Timezone      sql.NullString
	PlatformCode  sql.NullString
}

// Calendar is one calendar.txt row. Dates are YYYYMMDD.
type Calendar struct {
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

// CalendarDate is one calendar_dates.txt row. ExceptionType 1 adds service,
// 2 removes it.
type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int64
}

type Trip struct {
	ID            string
	RouteID       string
	ServiceID     string
	TripHeadsign  sql.NullString
	TripShortName sql.NullString
	DirectionID   sql.NullInt64
	BlockID       sql.NullString
}

// StopTime offsets are whole seconds from the service-day anchor and may
// exceed 86400 for trips running past midnight.
type StopTime struct {
	TripID        string
	ArrivalTime   int64
	DepartureTime int64
	StopID        string
	StopSequence  int64
	StopHeadsign  sql.NullString
	PickupType    sql.NullInt64
	DropOffType   sql.NullInt64
}

// TripRun is one concrete occurrence of a trip on a service day.
// StartTimestamp is unix milliseconds.
type TripRun struct {
	ID                   int64
	TripID               string
	StaticTripID         sql.NullString
	RouteID              string
	DirectionID          sql.NullInt64
	StartDate            string
	StartTimestamp       int64
	ScheduleRelationship int64
	VehicleID            sql.NullString
	ScheduleAnomaly      bool
	UpdatedAt            int64
}

// StopVisit is one row of the arrival index. All times are unix milliseconds.
type StopVisit struct {
	ID                 int64
	TripRunID          int64
	StaticTripID       sql.NullString
	StopID             string
	StopSequence       int64
	ScheduledArrival   int64
	ScheduledDeparture int64
	LiveArrival        sql.NullInt64
	LiveDeparture      sql.NullInt64
	UpdateSource       int64
	SourceTimestamp    int64
	OriginRank         int64
	Skipped            bool
}

type Vehicle struct {
	ID              string
	Label           sql.NullString
	TripID          sql.NullString
	RouteID         sql.NullString
	StartDate       sql.NullString
	Lat             sql.NullFloat64
	Lon             sql.NullFloat64
	Bearing         sql.NullFloat64
	Speed           sql.NullFloat64
	OccupancyStatus sql.NullString
	Timestamp       int64
}

type Alert struct {
	ID              string
	Cause           string
	Effect          string
	HeaderText      sql.NullString
	DescriptionText sql.NullString
	LastSeen        int64
}

type AlertInformedEntity struct {
	AlertID   string
	AgencyID  sql.NullString
	RouteID   sql.NullString
	RouteType sql.NullInt64
	StopID    sql.NullString
	TripID    sql.NullString
	TripRunID sql.NullInt64
}

type AlertActivePeriod struct {
	AlertID   string
	StartTime sql.NullInt64
	EndTime   sql.NullInt64
}

type FeedTick struct {
	ID              string
	Feed            string
	HeaderTimestamp int64
	AppliedAt       int64
	TripUpdates     int64
	Vehicles        int64
	Alerts          int64
	SkippedEntities int64
}

type ImportMetadata struct {
	FileHash   string
	FileSource string
	ImportTime int64
}
