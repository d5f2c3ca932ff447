package restapi

import (
	"context"
	"database/sql"
	"errors"

	"nextstop.transit.org/internal/models"
)

// addRouteReferences adds the routes with the given ids and the agencies
// that operate them. Ids with no static route, such as those of added
// trips, are skipped.
func (api *RestAPI) addRouteReferences(ctx context.Context, refs *models.ReferencesModel, routeIDs []string) error {
	queries := api.GtfsManager.GtfsDB.Queries
	agencyIDs := make(map[string]bool)
	for _, id := range routeIDs {
		route, err := queries.GetRoute(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		refs.AddRoute(models.NewRouteFromDB(route))
		agencyIDs[route.AgencyID] = true
	}
	return api.addAgencyReferences(ctx, refs, agencyIDs)
}

// addAgencyReferences adds the agencies whose ids are set in agencyIDs.
func (api *RestAPI) addAgencyReferences(ctx context.Context, refs *models.ReferencesModel, agencyIDs map[string]bool) error {
	if len(agencyIDs) == 0 {
		return nil
	}
	agencies, err := api.GtfsManager.GtfsDB.Queries.ListAgencies(ctx)
	if err != nil {
		return err
	}
	for _, a := range agencies {
		if agencyIDs[a.ID] {
			refs.AddAgency(models.NewAgencyReferenceFromDB(a))
		}
	}
	return nil
}
