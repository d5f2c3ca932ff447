package gtfsdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nextstop.transit.org/internal/appconf"
)

func newMemoryClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err, "NewClient should succeed")
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDatabaseConnectionPoolSettings(t *testing.T) {
	t.Run("in-memory store is pinned to one connection", func(t *testing.T) {
		client := newMemoryClient(t)
		assert.Equal(t, 1, client.DB.Stats().MaxOpenConnections)
	})

	t.Run("file store pools connections in WAL mode", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nextstop.db")
		client, err := NewClient(NewConfig(path, appconf.Development, false))
		require.NoError(t, err)
		defer func() { _ = client.Close() }()

		assert.Equal(t, 25, client.DB.Stats().MaxOpenConnections)

		var mode string
		require.NoError(t, client.DB.QueryRow("PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode)

		var fk int
		require.NoError(t, client.DB.QueryRow("PRAGMA foreign_keys").Scan(&fk))
		assert.Equal(t, 1, fk)
	})
}

func TestConnectionPoolBehavior(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var one int
			assert.NoError(t, client.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one))
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Concurrent queries timed out")
	}
}

func TestConnectionPoolConfiguration(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "Should open database")
	defer func() { _ = db.Close() }()

	configureConnectionPool(db, false)
	assert.Equal(t, 25, db.Stats().MaxOpenConnections)

	configureConnectionPool(db, true)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	assert.NoError(t, db.PingContext(context.Background()))
}
