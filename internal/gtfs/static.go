package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"nextstop.transit.org/gtfsdb"
	"nextstop.transit.org/internal/arrivals"
	"nextstop.transit.org/internal/calendar"
	"nextstop.transit.org/internal/logging"
)

const staticImportTimeout = 60 * time.Second

func isLocalFile(source string) bool {
	_, err := os.Stat(source)
	return err == nil
}

func buildGtfsDB(ctx context.Context, config Config, localFile bool) (*gtfsdb.Client, error) {
	dbConfig := gtfsdb.NewConfig(config.GTFSDataPath, config.Env, config.Verbose)
	client, err := gtfsdb.NewClient(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GTFS database client: %w", err)
	}

	if err := importStatic(ctx, client, config.GtfsURL, localFile); err != nil {
		logging.SafeCloseWithLogging(client, slog.Default(), "gtfs_database")
		return nil, err
	}
	// Index state from a previous process refers to a schedule that may
	// have changed; each start begins with an empty index.
	if err := client.ResetDynamic(ctx); err != nil {
		logging.SafeCloseWithLogging(client, slog.Default(), "gtfs_database")
		return nil, fmt.Errorf("failed to reset realtime state: %w", err)
	}
	return client, nil
}

func importStatic(ctx context.Context, client *gtfsdb.Client, source string, localFile bool) error {
	if localFile {
		return client.ImportFromFile(ctx, source)
	}
	return client.DownloadAndStore(ctx, source)
}

// buildEngine loads the calendar from the store and wraps it in a fresh
// engine.
func buildEngine(ctx context.Context, client *gtfsdb.Client, cfg arrivals.Config) (*arrivals.Engine, error) {
	resolver, err := calendar.Load(ctx, client.Queries, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load service calendar: %w", err)
	}
	return arrivals.NewEngine(client, resolver, cfg), nil
}

// updateStaticGTFS re-imports a remote static feed on a regular schedule.
// A reload clears the arrival index, which the next realtime tick rebuilds.
func (manager *Manager) updateStaticGTFS() {
	defer manager.wg.Done()

	if manager.isLocalFile || manager.config.StaticRefreshInterval <= 0 {
		return
	}

	ticker := time.NewTicker(manager.config.StaticRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), staticImportTimeout)
			err := manager.reloadStatic(ctx)
			cancel()
			if err != nil {
				logging.LogError(manager.logger, "Error updating GTFS data", err,
					slog.String("source", manager.gtfsSource))
			}
		case <-manager.shutdownChan:
			logging.LogOperation(manager.logger, "shutting_down_static_gtfs_updates")
			return
		}
	}
}

func (manager *Manager) reloadStatic(ctx context.Context) error {
	if err := importStatic(ctx, manager.GtfsDB, manager.gtfsSource, false); err != nil {
		return err
	}
	engine, err := buildEngine(ctx, manager.GtfsDB, manager.config.Engine)
	if err != nil {
		return err
	}
	manager.setEngine(engine)

	if manager.config.Verbose {
		logging.LogOperation(manager.logger, "gtfs_static_updated",
			slog.String("source", manager.gtfsSource),
			slog.Duration("import_runtime", manager.GtfsDB.ImportRuntime()))
	}
	return nil
}
