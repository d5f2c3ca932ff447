package app

import (
	"net/http"
	"slices"
)

func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	return app.IsInvalidAPIKey(APIKey(r))
}

func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}
	return !slices.Contains(app.Config.ApiKeys, key)
}

// APIKey reads the caller's key from the key query parameter.
func APIKey(r *http.Request) string {
	return r.URL.Query().Get("key")
}
