package gtfsdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nextstop.transit.org/internal/appconf"
)

func TestUpsertVehicleReportsStoredRows(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	n, err := client.Queries.UpsertVehicle(ctx, Vehicle{ID: "bus-1", TripID: NullString("T1"), Timestamp: 200})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = client.Queries.UpsertVehicle(ctx, Vehicle{ID: "bus-1", TripID: NullString("T2"), Timestamp: 100})
	require.NoError(t, err)
	assert.Zero(t, n, "an older report is not stored")

	v, err := client.Queries.GetVehicle(ctx, "bus-1")
	require.NoError(t, err)
	assert.Equal(t, "T1", v.TripID.String)
	assert.Equal(t, int64(200), v.Timestamp)

	n, err = client.Queries.UpsertVehicle(ctx, Vehicle{ID: "bus-1", TripID: NullString("T3"), Timestamp: 300})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFileStoreReadsDuringWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nextstop.db")
	client, err := NewClient(NewConfig(path, appconf.Development, false))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()
	ctx := context.Background()

	client.LockWrite()
	tx, err := client.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = client.Queries.WithTx(tx).UpsertVehicle(ctx, Vehicle{ID: "bus-1", Timestamp: 100})
	require.NoError(t, err)

	read := make(chan error, 1)
	go func() {
		_, err := client.Queries.GetVehicle(ctx, "bus-1")
		read <- err
	}()
	select {
	case err := <-read:
		assert.True(t, IsNotFound(err), "reader sees the state before the open write")
	case <-time.After(5 * time.Second):
		t.Fatal("read blocked behind the write transaction")
	}

	require.NoError(t, tx.Commit())
	client.UnlockWrite()

	v, err := client.Queries.GetVehicle(ctx, "bus-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), v.Timestamp)
}
