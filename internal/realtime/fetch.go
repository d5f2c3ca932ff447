package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"nextstop.transit.org/internal/logging"
)

// Fetch downloads and decodes one feed. Headers are added verbatim, which
// is how API keys are passed to most agencies.
func Fetch(ctx context.Context, client *http.Client, url string, headers map[string]string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, logging.FromContext(ctx), "realtime_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return Decode(body)
}

// Merge folds the trip update, vehicle and alert feeds of one source into
// a single tick. The tick takes the newest header timestamp.
func Merge(feed string, snaps ...*Snapshot) *Snapshot {
	out := &Snapshot{Feed: feed}
	for _, s := range snaps {
		if s == nil {
			continue
		}
		if s.Timestamp.After(out.Timestamp) {
			out.Timestamp = s.Timestamp
		}
		out.TripUpdates = append(out.TripUpdates, s.TripUpdates...)
		out.Vehicles = append(out.Vehicles, s.Vehicles...)
		out.Alerts = append(out.Alerts, s.Alerts...)
	}
	return out
}
