package app

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"nextstop.transit.org/internal/appconf"
)

func TestIsInvalidAPIKey(t *testing.T) {
	app := &Application{Config: appconf.Config{ApiKeys: []string{"key", "other"}}}

	tests := []struct {
		key     string
		invalid bool
	}{
		{"", true},
		{"key", false},
		{"other", false},
		{"KEY", true},
		{"nope", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.invalid, app.IsInvalidAPIKey(tt.key), tt.key)
	}
}

func TestRequestHasInvalidAPIKey(t *testing.T) {
	app := &Application{Config: appconf.Config{ApiKeys: []string{"TEST"}}}

	assert.False(t, app.RequestHasInvalidAPIKey(httptest.NewRequest("GET", "/api/where/current-time.json?key=TEST", nil)))
	assert.True(t, app.RequestHasInvalidAPIKey(httptest.NewRequest("GET", "/api/where/current-time.json", nil)))
}
