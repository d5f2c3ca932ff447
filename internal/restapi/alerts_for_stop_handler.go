package restapi

import (
	"errors"
	"net/http"
	"time"

	"nextstop.transit.org/internal/arrivals"
	"nextstop.transit.org/internal/models"
	"nextstop.transit.org/internal/utils"
)

// alertsForStopHandler lists the alerts in effect at the stop at the
// instant in the time parameter, or now.
func (api *RestAPI) alertsForStopHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stopID, err := utils.PathID(r, "id")
	if err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"id": {err.Error()}})
		return
	}
	at, fieldErrors := utils.ParseTimeParam(r.URL.Query(), "time", time.Now(), nil)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	alerts, err := api.GtfsManager.Engine().AlertsForStop(ctx, stopID, at)
	if errors.Is(err, arrivals.ErrUnknownStop) {
		api.sendNotFound(w, r)
		return
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	list := make([]models.Situation, 0, len(alerts))
	for _, a := range alerts {
		list = append(list, models.NewSituationFromDB(a))
	}
	api.sendResponse(w, r, models.NewListResponse(list, models.NewEmptyReferences(), false))
}
