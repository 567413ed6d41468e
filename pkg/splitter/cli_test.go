package splitter

import (
	"testing"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFlagsDefaults(t *testing.T) {
	app := kingpin.New("mockApp", "Mock splitter app.")
	resolve := AddFlags(app)

	_, err := app.Parse([]string{})
	require.NoError(t, err)

	cfg := resolve()
	def := DefaultConfig()

	assert.Equal(t, def.RDMAWindowSize, cfg.RDMAWindowSize)
	assert.Equal(t, def.WindowSize, cfg.WindowSize)
	assert.Equal(t, def.MaxPatternSize, cfg.MaxPatternSize)
	assert.Equal(t, def.RDMAThreshold, cfg.RDMAThreshold)
	assert.Equal(t, def.WarmupPeriod, cfg.WarmupPeriod)
	assert.Equal(t, def.IODepth, cfg.IODepth)
	assert.Equal(t, def.NumJobs, cfg.NumJobs)
}

func TestAddFlagsOverrides(t *testing.T) {
	app := kingpin.New("mockApp", "Mock splitter app.")
	resolve := AddFlags(app)

	_, err := app.Parse([]string{
		"--splitter.io-depth=32",
		"--splitter.num-jobs=4",
		"--splitter.warmup-period=5s",
		"--splitter.rdma-threshold=250",
	})
	require.NoError(t, err)

	cfg := resolve()

	assert.Equal(t, uint32(32), cfg.IODepth)
	assert.Equal(t, uint32(4), cfg.NumJobs)
	assert.Equal(t, 5*time.Second, cfg.WarmupPeriod)
	assert.Equal(t, uint64(250), cfg.RDMAThreshold)
}
