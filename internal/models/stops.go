package models

import "nextstop.transit.org/gtfsdb"

type Stop struct {
	Code         string   `json:"code"`
	ID           string   `json:"id"`
	Lat          float64  `json:"lat"`
	LocationType int      `json:"locationType"`
	Lon          float64  `json:"lon"`
	Name         string   `json:"name"`
	Parent       string   `json:"parent"`
	RouteIDs     []string `json:"routeIds"`
}

func NewStopFromDB(s gtfsdb.Stop, routeIDs []string) Stop {
	if routeIDs == nil {
		routeIDs = []string{}
	}
	return Stop{
		Code:         s.Code.String,
		ID:           s.ID,
		Lat:          s.Lat,
		LocationType: int(s.LocationType.Int64),
		Lon:          s.Lon,
		Name:         s.Name.String,
		Parent:       s.ParentStation.String,
		RouteIDs:     routeIDs,
	}
}
