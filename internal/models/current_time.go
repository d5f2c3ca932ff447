package models

import "time"

type CurrentTime struct {
	ReadableTime string `json:"readableTime"`
	Time         int64  `json:"time"`
	Timezone     string `json:"timezone"`
}

// NewCurrentTimeEntry renders t in the feed's timezone. A nil loc renders
// in UTC.
func NewCurrentTimeEntry(t time.Time, loc *time.Location) CurrentTime {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return CurrentTime{
		ReadableTime: local.Format(time.RFC3339),
		Time:         t.UnixMilli(),
		Timezone:     loc.String(),
	}
}
