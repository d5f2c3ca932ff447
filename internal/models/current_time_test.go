package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCurrentTimeEntry(t *testing.T) {
	instant := time.Date(2024, 7, 3, 15, 4, 5, 600_000_000, time.UTC)

	t.Run("renders in the feed timezone", func(t *testing.T) {
		loc, err := time.LoadLocation("America/Los_Angeles")
		require.NoError(t, err)

		entry := NewCurrentTimeEntry(instant, loc)
		assert.Equal(t, "2024-07-03T08:04:05-07:00", entry.ReadableTime)
		assert.Equal(t, instant.UnixMilli(), entry.Time)
		assert.Equal(t, "America/Los_Angeles", entry.Timezone)
	})

	t.Run("nil location is UTC", func(t *testing.T) {
		entry := NewCurrentTimeEntry(instant, nil)
		assert.Equal(t, "2024-07-03T15:04:05Z", entry.ReadableTime)
		assert.Equal(t, "UTC", entry.Timezone)
	})

	t.Run("entry response shape", func(t *testing.T) {
		body, err := json.Marshal(NewEntryResponse(NewCurrentTimeEntry(instant, nil), NewEmptyReferences()))
		require.NoError(t, err)

		var decoded struct {
			Code int `json:"code"`
			Data struct {
				Entry map[string]any `json:"entry"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, 200, decoded.Code)
		assert.Equal(t, float64(instant.UnixMilli()), decoded.Data.Entry["time"])
		assert.Equal(t, "UTC", decoded.Data.Entry["timezone"])
	})
}
