package utils

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// PathID returns the named route parameter with a trailing ".json"
// removed, after validating it with ValidateID.
func PathID(r *http.Request, name string) (string, error) {
	id := strings.TrimSuffix(httprouter.ParamsFromContext(r.Context()).ByName(name), ".json")
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}
