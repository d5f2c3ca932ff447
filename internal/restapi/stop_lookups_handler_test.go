package restapi

import (
	"net/http"
	"testing"
	"time"

	p "github.com/jamespfennell/gtfs/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"nextstop.transit.org/internal/gtfstest"
)

func TestRoutesForStopHandler(t *testing.T) {
	api := createTestApi(t)

	t.Run("served stop", func(t *testing.T) {
		resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/where/routes-for-stop/S2.json?key=TEST")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		list, refs, _ := listData(t, model)
		require.Len(t, list, 1)
		route := list[0].(map[string]interface{})
		assert.Equal(t, "R1", route["id"])
		assert.Equal(t, "1", route["shortName"])
		assert.Equal(t, "Crosstown", route["longName"])
		assert.Len(t, refs["agencies"], 1)
	})

	t.Run("stop without service", func(t *testing.T) {
		resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/where/routes-for-stop/S4.json?key=TEST")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list, _, _ := listData(t, model)
		assert.Empty(t, list)
	})

	t.Run("unknown stop", func(t *testing.T) {
		resp, _ := serveApiAndRetrieveEndpoint(t, api, "/api/where/routes-for-stop/NOPE.json?key=TEST")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing key", func(t *testing.T) {
		resp, _ := serveApiAndRetrieveEndpoint(t, api, "/api/where/routes-for-stop/S2.json")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAlertsForStopHandler(t *testing.T) {
	api := createTestApi(t)

	cause := p.Alert_CONSTRUCTION
	effect := p.Alert_STOP_MOVED
	start := morning.Add(-time.Hour)
	end := morning.Add(time.Hour)
	ingest(t, api, gtfstest.Feed(t, morning, &p.FeedEntity{
		Id: proto.String("alert-1"),
		Alert: &p.Alert{
			Cause:  &cause,
			Effect: &effect,
			HeaderText: &p.TranslatedString{Translation: []*p.TranslatedString_Translation{
				{Text: proto.String("Stop moved"), Language: proto.String("en")},
			}},
			ActivePeriod:   []*p.TimeRange{{Start: proto.Uint64(uint64(start.Unix())), End: proto.Uint64(uint64(end.Unix()))}},
			InformedEntity: []*p.EntitySelector{{StopId: proto.String("S1")}},
		},
	}))

	t.Run("active alert", func(t *testing.T) {
		resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/where/alerts-for-stop/S1.json?key=TEST&time="+millis(morning))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		list, _, _ := listData(t, model)
		require.Len(t, list, 1)
		situation := list[0].(map[string]interface{})
		assert.Equal(t, "alert-1", situation["id"])
		assert.Equal(t, "CONSTRUCTION", situation["reason"])
		assert.Equal(t, "STOP_MOVED", situation["consequenceMessage"])
		assert.Equal(t, "Stop moved", situation["summary"])
	})

	t.Run("outside the active period", func(t *testing.T) {
		resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/where/alerts-for-stop/S1.json?key=TEST&time="+millis(end.Add(time.Minute)))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list, _, _ := listData(t, model)
		assert.Empty(t, list)
	})

	t.Run("other stop", func(t *testing.T) {
		resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/where/alerts-for-stop/S4.json?key=TEST&time="+millis(morning))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list, _, _ := listData(t, model)
		assert.Empty(t, list)
	})

	t.Run("unknown stop", func(t *testing.T) {
		resp, _ := serveApiAndRetrieveEndpoint(t, api, "/api/where/alerts-for-stop/NOPE.json?key=TEST")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
