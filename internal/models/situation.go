package models

import "nextstop.transit.org/gtfsdb"

// Situation is a service alert as exposed by the API.
type Situation struct {
	ID          string `json:"id"`
	Reason      string `json:"reason"`
	Effect      string `json:"consequenceMessage"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

func NewSituationFromDB(a gtfsdb.Alert) Situation {
	return Situation{
		ID:          a.ID,
		Reason:      a.Cause,
		Effect:      a.Effect,
		Summary:     a.HeaderText.String,
		Description: a.DescriptionText.String,
	}
}
