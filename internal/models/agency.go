package models

import "nextstop.transit.org/gtfsdb"

type AgencyReference struct {
	Email    string `json:"email"`
	FareUrl  string `json:"fareUrl"`
	ID       string `json:"id"`
	Lang     string `json:"lang"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Timezone string `json:"timezone"`
	URL      string `json:"url"`
}

// NewAgencyReferenceFromDB converts a stored agency row.
func NewAgencyReferenceFromDB(a gtfsdb.Agency) AgencyReference {
	return AgencyReference{
		ID:       a.ID,
		Name:     a.Name,
		URL:      a.Url,
		Timezone: a.Timezone,
		Lang:     a.Lang.String,
		Phone:    a.Phone.String,
		Email:    a.Email.String,
		FareUrl:  a.FareUrl.String,
	}
}
