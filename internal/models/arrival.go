package models

import (
	"nextstop.transit.org/internal/arrivals"
)

// UnknownValue stands in for a status the feed did not report.
const UnknownValue = "UNKNOWN"

type TripReference struct {
	ID             string `json:"id"`
	RouteID        string `json:"routeId"`
	TripHeadsign   string `json:"tripHeadsign"`
	RouteShortName string `json:"routeShortName"`
}

// ArrivalAndDeparture is one upcoming call at a stop. Times are Unix
// milliseconds; predicted times are zero when no live data is known.
type ArrivalAndDeparture struct {
	TripID               string `json:"tripId"`
	TripRunID            int64  `json:"tripRunId"`
	RouteID              string `json:"routeId"`
	RouteShortName       string `json:"routeShortName"`
	TripHeadsign         string `json:"tripHeadsign"`
	StopID               string `json:"stopId"`
	StopSequence         int64  `json:"stopSequence"`
	ServiceDate          string `json:"serviceDate"`
	ScheduledArrivalTime int64  `json:"scheduledArrivalTime"`
	PredictedArrivalTime int64  `json:"predictedArrivalTime"`
	EffectiveArrivalTime int64  `json:"effectiveArrivalTime"`
	DepartureTime        int64  `json:"departureTime"`
	Predicted            bool   `json:"predicted"`
	ScheduleRelationship string `json:"scheduleRelationship"`
	VehicleID            string `json:"vehicleId"`
	OccupancyStatus      string `json:"occupancyStatus"`
}

// NewArrivalAndDeparture converts an engine arrival. An unknown occupancy is
// reported as UnknownValue.
func NewArrivalAndDeparture(a arrivals.Arrival) ArrivalAndDeparture {
	out := ArrivalAndDeparture{
		TripID:               a.TripID,
		TripRunID:            a.TripRunID,
		RouteID:              a.RouteID,
		RouteShortName:       a.RouteShortName,
		TripHeadsign:         a.Headsign,
		StopID:               a.StopID,
		StopSequence:         a.StopSequence,
		ServiceDate:          a.ServiceDate,
		ScheduledArrivalTime: a.ScheduledTime.UnixMilli(),
		EffectiveArrivalTime: a.EffectiveTime.UnixMilli(),
		DepartureTime:        a.DepartureTime.UnixMilli(),
		Predicted:            a.Realtime,
		ScheduleRelationship: a.Relationship.String(),
		VehicleID:            a.VehicleID,
		OccupancyStatus:      a.Occupancy,
	}
	if a.Realtime {
		out.PredictedArrivalTime = out.EffectiveArrivalTime
	}
	if out.OccupancyStatus == "" {
		out.OccupancyStatus = UnknownValue
	}
	return out
}

// NewTripReference describes the trip behind an arrival.
func NewTripReference(a arrivals.Arrival) TripReference {
	return TripReference{
		ID:             a.TripID,
		RouteID:        a.RouteID,
		TripHeadsign:   a.Headsign,
		RouteShortName: a.RouteShortName,
	}
}
