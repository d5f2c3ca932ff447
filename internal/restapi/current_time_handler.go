package restapi

import (
	"net/http"
	"time"

	"nextstop.transit.org/internal/models"
)

// currentTimeHandler reports the server clock in the feed's timezone.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	loc := api.GtfsManager.Engine().Resolver().Location()
	entry := models.NewCurrentTimeEntry(time.Now(), loc)
	api.sendResponse(w, r, models.NewEntryResponse(entry, models.NewEmptyReferences()))
}
