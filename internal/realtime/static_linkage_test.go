package realtime_test

import (
	"testing"
	"time"

	"github.com/jamespfennell/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextstop.transit.org/internal/gtfstest"
	"nextstop.transit.org/internal/realtime"
)

// The static parser and the realtime decoder share one binary in cmd/api.
func TestStaticAndRealtimeParseTogether(t *testing.T) {
	static, err := gtfs.ParseStatic(gtfstest.Zip(t, gtfstest.Metro), gtfs.ParseStaticOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, static.Trips)

	header := time.Date(2024, 7, 3, 7, 40, 0, 0, time.UTC)
	payload := gtfstest.TripUpdateFeed(t, header, "T1", "20240703", gtfstest.Delay{Seq: 2, Delay: 2 * time.Minute})

	snap, err := realtime.Decode(payload)
	require.NoError(t, err)
	require.Len(t, snap.TripUpdates, 1)
	assert.Equal(t, "T1", snap.TripUpdates[0].Trip.TripID)
	assert.True(t, snap.Timestamp.Equal(header))

	realtimeOnly, err := gtfs.ParseRealtime(payload, &gtfs.ParseRealtimeOptions{})
	require.NoError(t, err)
	assert.Len(t, realtimeOnly.Trips, 1)
}
