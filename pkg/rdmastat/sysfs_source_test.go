package rdmastat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSysfsSourceNoInfiniBandDevice(t *testing.T) {
	dir := t.TempDir()

	_, err := NewSysfsSource(dir, dir+"/latency")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoInfiniBandDevice)
}
