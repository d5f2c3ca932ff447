package restapi

import (
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func validateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

// SetRoutes registers the API and operational endpoints on router. API
// endpoints require a key and are rate limited per key.
func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	protected := func(h handlerFunc) http.Handler {
		return api.rateLimiter.Handler(validateAPIKey(api, h))
	}

	router.Handler(http.MethodGet, "/api/where/current-time.json", protected(api.currentTimeHandler))
	router.Handler(http.MethodGet, "/api/where/arrivals-for-stop/:id", protected(api.arrivalsForStopHandler))
	router.Handler(http.MethodGet, "/api/where/routes-for-stop/:id", protected(api.routesForStopHandler))
	router.Handler(http.MethodGet, "/api/where/alerts-for-stop/:id", protected(api.alertsForStopHandler))

	router.HandlerFunc(http.MethodGet, "/healthz", api.healthHandler)
	if api.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics", api.Metrics.Handler())
	}
}

// Routes returns the full handler: the router behind security headers,
// request logging and compression.
func (api *RestAPI) Routes() http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(api.sendNotFound)
	api.SetRoutes(router)

	logger := api.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = router
	handler = gzipResponses(gzipMinSize)(handler)
	handler = NewRequestLoggingMiddleware(logger)(handler)
	return securityHeaders(handler)
}
