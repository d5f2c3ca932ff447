package profiling

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"nextstop.transit.org/internal/appconf"
)

func TestInitProfilingDisabled(t *testing.T) {
	stop := InitProfiling(appconf.ProfilingConfig{}, "nextstop", "test", slog.Default())
	assert.NotNil(t, stop)
	assert.NotPanics(t, stop)
}
