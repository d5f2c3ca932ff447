package tracing

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextstop.transit.org/internal/appconf"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), appconf.TracingConfig{}, "test", slog.Default())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NotPanics(t, func() { shutdown(context.Background()) })
}

func TestInitTracingEnabled(t *testing.T) {
	cfg := appconf.TracingConfig{Enabled: true, Endpoint: "localhost:4318", ServiceName: "nextstop-test"}
	shutdown, err := InitTracing(context.Background(), cfg, "test", slog.Default())
	require.NoError(t, err, "the exporter connects lazily")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	shutdown(ctx)
}
