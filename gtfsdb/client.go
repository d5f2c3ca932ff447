package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"nextstop.transit.org/internal/logging"
)

// Client is the main entry point for the library
type Client struct {
	config        Config
	DB            *sql.DB
	Queries       *Queries
	logger        *slog.Logger
	writeMu       sync.Mutex
	importRuntime time.Duration
}

// NewClient creates a new Client with the provided configuration
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, err
	}

	logger := logging.ForComponent(nil, "gtfsdb")
	if config.verbose {
		logging.LogOperation(logger, "database_ready", slog.String("path", config.DBPath))
	}

	client := &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
		logger:  logger,
	}
	return client, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// LockWrite serializes writers. SQLite admits a single writer; every
// transaction that mutates the store runs between LockWrite and UnlockWrite.
func (c *Client) LockWrite() {
	c.writeMu.Lock()
}

func (c *Client) UnlockWrite() {
	c.writeMu.Unlock()
}

// ImportRuntime reports how long the last static import took.
func (c *Client) ImportRuntime() time.Duration {
	return c.importRuntime
}

// DownloadAndStore downloads GTFS data from the given URL and stores it in the database
func (c *Client) DownloadAndStore(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading GTFS data: unexpected status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading GTFS data: %w", err)
	}

	return c.processAndStoreGTFSData(ctx, b, url)
}

// ImportFromFile imports GTFS data from a local zip file into the database
func (c *Client) ImportFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading local GTFS file: %w", err)
	}

	return c.processAndStoreGTFSData(ctx, data, path)
}

// ImportFromBytes imports an in-memory GTFS zip archive. source names the
// archive in the import metadata.
func (c *Client) ImportFromBytes(ctx context.Context, data []byte, source string) error {
	return c.processAndStoreGTFSData(ctx, data, source)
}

// ResetDynamic empties every table the realtime engine owns. The arrival
// index starts empty on each process start.
func (c *Client) ResetDynamic(ctx context.Context) (err error) {
	c.LockWrite()
	defer c.UnlockWrite()

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "reset_dynamic")

	for _, table := range []string{"alert", "stop_visit", "trip_run", "vehicle", "feed_tick"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}

	return tx.Commit()
}
