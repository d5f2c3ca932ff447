package restapi

import (
	"errors"
	"net/http"

	"nextstop.transit.org/internal/arrivals"
	"nextstop.transit.org/internal/models"
	"nextstop.transit.org/internal/utils"
)

func (api *RestAPI) routesForStopHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stopID, err := utils.PathID(r, "id")
	if err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"id": {err.Error()}})
		return
	}

	routes, err := api.GtfsManager.Engine().RoutesForStop(ctx, stopID)
	if errors.Is(err, arrivals.ErrUnknownStop) {
		api.sendNotFound(w, r)
		return
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	list := make([]models.Route, 0, len(routes))
	agencyIDs := make(map[string]bool)
	for _, route := range routes {
		list = append(list, models.NewRouteFromDB(route))
		agencyIDs[route.AgencyID] = true
	}

	refs := models.NewEmptyReferences()
	if err := api.addAgencyReferences(ctx, &refs, agencyIDs); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewListResponse(list, refs, false))
}
