package restapi

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"nextstop.transit.org/internal/models"
	"nextstop.transit.org/internal/utils"
)

// arrivalsForStopHandler lists the next calls at a stop from the instant
// in the time parameter, or now.
func (api *RestAPI) arrivalsForStopHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stopID, err := utils.PathID(r, "id")
	if err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"id": {err.Error()}})
		return
	}

	query := r.URL.Query()
	from, fieldErrors := utils.ParseTimeParam(query, "time", time.Now(), nil)
	limit, fieldErrors := utils.ParseIntParam(query, "limit", api.Config.Arrivals.DefaultLimit, fieldErrors)
	if maxLimit := api.Config.Arrivals.MaxLimit; limit <= 0 || limit > maxLimit {
		fieldErrors["limit"] = append(fieldErrors["limit"], fmt.Sprintf("limit must be between 1 and %d", maxLimit))
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	queries := api.GtfsManager.GtfsDB.Queries
	stop, err := queries.GetStop(ctx, stopID)
	if errors.Is(err, sql.ErrNoRows) {
		api.sendNotFound(w, r)
		return
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	// One extra result tells whether the limit cut the list short.
	seq, err := api.GtfsManager.Engine().NextArrivals(ctx, stopID, from, limit+1)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	refs := models.NewEmptyReferences()
	list := make([]models.ArrivalAndDeparture, 0, limit)
	limitExceeded := false
	var routeIDs []string
	seen := make(map[string]bool)
	for a := range seq {
		if len(list) == limit {
			limitExceeded = true
			break
		}
		list = append(list, models.NewArrivalAndDeparture(a))
		refs.AddTrip(models.NewTripReference(a))
		if !seen[a.RouteID] {
			seen[a.RouteID] = true
			routeIDs = append(routeIDs, a.RouteID)
		}
	}

	stopRoutes, err := queries.GetRoutesForStop(ctx, stopID)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	stopRouteIDs := make([]string, 0, len(stopRoutes))
	for _, route := range stopRoutes {
		stopRouteIDs = append(stopRouteIDs, route.ID)
	}
	refs.AddStop(models.NewStopFromDB(stop, stopRouteIDs))

	if err := api.addRouteReferences(ctx, &refs, routeIDs); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewListResponse(list, refs, limitExceeded))
}
