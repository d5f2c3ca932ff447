package restapi

import (
	"encoding/json"
	"net/http"
	"time"

	"nextstop.transit.org/internal/logging"
)

type tickHealth struct {
	Feed            string    `json:"feed"`
	HeaderTimestamp time.Time `json:"headerTimestamp"`
	FinishedAt      time.Time `json:"finishedAt"`
	Skipped         bool      `json:"skipped"`
	Error           string    `json:"error,omitempty"`
}

type health struct {
	Status   string      `json:"status"`
	Version  string      `json:"version,omitempty"`
	Realtime bool        `json:"realtime"`
	LastTick *tickHealth `json:"lastTick,omitempty"`
}

// healthHandler reports 200 while the last realtime poll succeeded, or
// before the first one finishes, and 503 after a failed poll.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	body := health{
		Status:   "ok",
		Version:  api.Version,
		Realtime: api.GtfsManager.RealTimeEnabled(),
	}
	status := http.StatusOK

	if last, ok := api.GtfsManager.LastTick(); ok {
		body.LastTick = &tickHealth{
			Feed:            last.Result.Feed,
			HeaderTimestamp: last.Result.HeaderTimestamp,
			FinishedAt:      last.FinishedAt,
			Skipped:         last.Result.Skipped,
		}
		if last.Err != nil {
			body.Status = "degraded"
			body.LastTick.Error = last.Err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	setJSONResponseType(w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to encode health response", err)
	}
}
