package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nextstop.transit.org/internal/app"
	"nextstop.transit.org/internal/appconf"
	"nextstop.transit.org/internal/gtfs"
	"nextstop.transit.org/internal/gtfstest"
	"nextstop.transit.org/internal/logging"
	"nextstop.transit.org/internal/metrics"
	"nextstop.transit.org/internal/models"
	"nextstop.transit.org/internal/realtime"
)

// morning is a Wednesday a few minutes before the first fixture departures.
var morning = time.Date(2024, 7, 3, 7, 55, 0, 0, time.UTC)

func testAppConfig() appconf.Config {
	cfg := appconf.Default()
	cfg.Env = appconf.Test
	cfg.ApiKeys = []string{"TEST"}
	return cfg
}

// createTestApi creates a new restAPI instance with a GTFS manager initialized for use in tests.
func createTestApi(t *testing.T) *RestAPI {
	return createTestApiWithConfig(t, testAppConfig())
}

func createTestApiWithConfig(t *testing.T, cfg appconf.Config) *RestAPI {
	t.Helper()
	collector := metrics.NewCollector()
	gtfsConfig := gtfs.Config{
		GtfsURL:      gtfstest.WriteZip(t, gtfstest.Metro),
		GTFSDataPath: ":memory:",
		Env:          appconf.Test,
		FeedName:     "metro",
	}
	gtfsConfig.Engine.Metrics = collector
	manager, err := gtfs.InitGTFSManager(gtfsConfig)
	require.NoError(t, err)
	t.Cleanup(manager.Shutdown)

	api := NewRestAPI(&app.Application{
		Config:      cfg,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		GtfsManager: manager,
		Metrics:     collector,
		Version:     "test",
	})
	t.Cleanup(api.Close)
	return api
}

// ingest applies a realtime feed to the API's engine.
func ingest(t *testing.T, api *RestAPI, feed []byte) {
	t.Helper()
	snap, err := realtime.Decode(feed)
	require.NoError(t, err)
	_, err = api.GtfsManager.Engine().Ingest(context.Background(), realtime.Merge("metro", snap))
	require.NoError(t, err)
}

func millis(t time.Time) string {
	return fmt.Sprint(t.UnixMilli())
}

// serveAndRetrieveEndpoint sets up a test server, makes a request to the specified endpoint, and returns the response
// and decoded model.
func serveAndRetrieveEndpoint(t *testing.T, endpoint string) (*RestAPI, *http.Response, models.ResponseModel) {
	api := createTestApi(t)
	resp, model := serveApiAndRetrieveEndpoint(t, api, endpoint)
	return api, resp, model
}

func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, endpoint string) (*http.Response, models.ResponseModel) {
	t.Helper()
	server := httptest.NewServer(api.Routes())
	defer server.Close()

	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "test")),
		"http_response_body")

	var response models.ResponseModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	return resp, response
}

// listData unpacks the list and references of a list response.
func listData(t *testing.T, model models.ResponseModel) (list []interface{}, refs map[string]interface{}, limitExceeded bool) {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data should be an object")
	list, ok = data["list"].([]interface{})
	require.True(t, ok, "list should be an array")
	refs, ok = data["references"].(map[string]interface{})
	require.True(t, ok, "references should be an object")
	limitExceeded, _ = data["limitExceeded"].(bool)
	return list, refs, limitExceeded
}
