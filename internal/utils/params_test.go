package utils

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    int
		wantErr bool
	}{
		{name: "missing uses default", query: "", want: 10},
		{name: "valid", query: "limit=3", want: 3},
		{name: "negative is parsed", query: "limit=-1", want: -1},
		{name: "malformed", query: "limit=abc", want: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, _ := url.ParseQuery(tt.query)
			got, fieldErrors := ParseIntParam(params, "limit", 10, nil)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Contains(t, fieldErrors, "limit")
			} else {
				assert.Empty(t, fieldErrors)
			}
		})
	}
}

func TestParseTimeParam(t *testing.T) {
	def := time.Date(2024, 7, 3, 8, 0, 0, 0, time.UTC)

	params, _ := url.ParseQuery("time=1720000000000")
	got, fieldErrors := ParseTimeParam(params, "time", def, nil)
	assert.Empty(t, fieldErrors)
	assert.Equal(t, int64(1720000000000), got.UnixMilli())

	got, fieldErrors = ParseTimeParam(url.Values{}, "time", def, nil)
	assert.Empty(t, fieldErrors)
	assert.True(t, got.Equal(def))

	for _, bad := range []string{"time=yesterday", "time=-5"} {
		params, _ := url.ParseQuery(bad)
		got, fieldErrors := ParseTimeParam(params, "time", def, map[string][]string{})
		assert.Contains(t, fieldErrors, "time", bad)
		assert.True(t, got.Equal(def), bad)
	}
}
