package gtfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nextstop.transit.org/internal/arrivals"
	"nextstop.transit.org/internal/logging"
	"nextstop.transit.org/internal/realtime"
)

// fetchRealtime pulls every configured feed in parallel. A feed that fails
// is logged and left out of the returned snapshots; the error is returned
// only when every feed failed.
func (manager *Manager) fetchRealtime(ctx context.Context) ([]*realtime.Snapshot, error) {
	urls := manager.config.realTimeFeeds()
	headers := manager.config.realTimeHeaders()
	snaps := make([]*realtime.Snapshot, len(urls))
	errs := make([]error, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			snap, err := realtime.Fetch(ctx, manager.httpClient, url, headers)
			if err != nil {
				logging.LogError(manager.logger, "Error loading GTFS-RT feed", err,
					slog.String("url", url))
				errs[i] = err
				return
			}
			snaps[i] = snap
		}(i, url)
	}
	wg.Wait()

	var ok []*realtime.Snapshot
	for _, s := range snaps {
		if s != nil {
			ok = append(ok, s)
		}
	}
	if len(ok) == 0 && len(urls) > 0 {
		return nil, fmt.Errorf("all realtime feeds failed: %w", errors.Join(errs...))
	}
	return ok, nil
}

// updateGTFSRealtime runs one tick: fetch, merge, ingest.
func (manager *Manager) updateGTFSRealtime(ctx context.Context) (arrivals.TickResult, error) {
	snaps, err := manager.fetchRealtime(ctx)
	if err != nil {
		manager.setLastTick(arrivals.TickResult{Feed: manager.config.feedName()}, err)
		return arrivals.TickResult{}, err
	}

	snap := realtime.Merge(manager.config.feedName(), snaps...)
	res, err := manager.Engine().Ingest(ctx, snap)
	manager.setLastTick(res, err)
	return res, err
}

func (manager *Manager) updateGTFSRealtimePeriodically() {
	defer manager.wg.Done()

	ticker := time.NewTicker(manager.tickInterval())
	defer ticker.Stop()

	poll := func() {
		ctx, cancel := context.WithTimeout(context.Background(), manager.tickTimeout())
		defer cancel()
		ctx = logging.WithLogger(ctx, manager.logger)

		manager.logger.Debug("updating_gtfs_realtime_data",
			slog.String("feed", manager.config.feedName()))
		// Ingest logs its own failures.
		_, _ = manager.updateGTFSRealtime(ctx)
	}

	poll()
	for {
		select {
		case <-ticker.C:
			poll()
		case <-manager.shutdownChan:
			logging.LogOperation(manager.logger, "shutting_down_realtime_updates")
			return
		}
	}
}
