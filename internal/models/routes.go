package models

import "nextstop.transit.org/gtfsdb"

type RouteType int

type Route struct {
	ID                string    `json:"id"`
	AgencyID          string    `json:"agencyId"`
	ShortName         string    `json:"shortName"`
	LongName          string    `json:"longName"`
	Type              RouteType `json:"type"`
	URL               string    `json:"url"`
	Color             string    `json:"color"`
	TextColor         string    `json:"textColor"`
	NullSafeShortName string    `json:"nullSafeShortName"`
}

// NewRouteFromDB converts a stored route. NullSafeShortName falls back to
// the long name and then the id.
func NewRouteFromDB(r gtfsdb.Route) Route {
	nullSafe := r.ShortName.String
	if nullSafe == "" {
		nullSafe = r.LongName.String
	}
	if nullSafe == "" {
		nullSafe = r.ID
	}
	return Route{
		ID:                r.ID,
		AgencyID:          r.AgencyID,
		ShortName:         r.ShortName.String,
		LongName:          r.LongName.String,
		Type:              RouteType(r.Type),
		URL:               r.Url.String,
		Color:             r.Color.String,
		TextColor:         r.TextColor.String,
		NullSafeShortName: nullSafe,
	}
}
