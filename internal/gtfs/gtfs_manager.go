package gtfs

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nextstop.transit.org/gtfsdb"
	"nextstop.transit.org/internal/arrivals"
	"nextstop.transit.org/internal/logging"
)

// Manager owns the store and the arrival engine, and keeps them current:
// the static schedule is re-imported on a slow schedule and realtime feeds
// are polled on a fast one.
type Manager struct {
	gtfsSource  string
	GtfsDB      *gtfsdb.Client
	engine      atomic.Pointer[arrivals.Engine]
	isLocalFile bool
	config      Config
	logger      *slog.Logger
	httpClient  *http.Client

	realTimeMutex sync.RWMutex
	lastTick      *TickStatus

	shutdownChan chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// InitGTFSManager imports the static schedule, builds the engine and starts
// the background updaters.
func InitGTFSManager(config Config) (*Manager, error) {
	if config.Engine.Logger == nil {
		config.Engine.Logger = slog.Default()
	}
	localFile := isLocalFile(config.GtfsURL)
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), staticImportTimeout)
	defer cancel()

	client, err := buildGtfsDB(ctx, config, localFile)
	if err != nil {
		return nil, err
	}
	engine, err := buildEngine(ctx, client, config.Engine)
	if err != nil {
		logging.SafeCloseWithLogging(client, config.Engine.Logger, "gtfs_database")
		return nil, err
	}

	manager := &Manager{
		gtfsSource:   config.GtfsURL,
		GtfsDB:       client,
		isLocalFile:  localFile,
		config:       config,
		logger:       logging.ForComponent(config.Engine.Logger, "gtfs_manager"),
		httpClient:   httpClient,
		shutdownChan: make(chan struct{}),
	}
	manager.setEngine(engine)

	if config.Verbose {
		manager.logStatistics(ctx)
	}

	manager.wg.Add(1)
	go manager.updateStaticGTFS()

	if config.realTimeDataEnabled() {
		manager.wg.Add(1)
		go manager.updateGTFSRealtimePeriodically()
	}

	return manager, nil
}

// Engine returns the engine for the current static schedule.
func (manager *Manager) Engine() *arrivals.Engine {
	return manager.engine.Load()
}

func (manager *Manager) setEngine(engine *arrivals.Engine) {
	manager.engine.Store(engine)
}

// TickStatus is the outcome of one realtime poll.
type TickStatus struct {
	Result     arrivals.TickResult
	Err        error
	FinishedAt time.Time
}

// LastTick reports the most recent realtime poll. ok is false until the
// first poll has finished.
func (manager *Manager) LastTick() (status TickStatus, ok bool) {
	manager.realTimeMutex.RLock()
	defer manager.realTimeMutex.RUnlock()
	if manager.lastTick == nil {
		return TickStatus{}, false
	}
	return *manager.lastTick, true
}

func (manager *Manager) setLastTick(res arrivals.TickResult, err error) {
	manager.realTimeMutex.Lock()
	defer manager.realTimeMutex.Unlock()
	manager.lastTick = &TickStatus{Result: res, Err: err, FinishedAt: time.Now()}
}

// RealTimeEnabled reports whether any realtime feed is configured.
func (manager *Manager) RealTimeEnabled() bool {
	return manager.config.realTimeDataEnabled()
}

// Shutdown stops the updaters, waits for them and closes the store. It is
// safe to call more than once.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
		manager.wg.Wait()
		if manager.GtfsDB != nil {
			logging.SafeCloseWithLogging(manager.GtfsDB, manager.logger, "gtfs_database")
		}
	})
}

func (manager *Manager) logStatistics(ctx context.Context) {
	counts, err := manager.GtfsDB.TableCounts(ctx)
	if err != nil {
		logging.LogError(manager.logger, "failed to count tables", err)
		return
	}
	attrs := []slog.Attr{
		slog.String("source", manager.gtfsSource),
		slog.Bool("local_file", manager.isLocalFile),
		slog.Duration("import_runtime", manager.GtfsDB.ImportRuntime()),
	}
	for table, n := range counts {
		attrs = append(attrs, slog.Int(table, n))
	}
	logging.LogOperation(manager.logger, "gtfs_statistics", attrs...)
}

func (manager *Manager) tickTimeout() time.Duration {
	if manager.config.RealTimeTimeout > 0 {
		return manager.config.RealTimeTimeout
	}
	return 15 * time.Second
}

func (manager *Manager) tickInterval() time.Duration {
	if manager.config.RealTimeInterval > 0 {
		return manager.config.RealTimeInterval
	}
	return 30 * time.Second
}
