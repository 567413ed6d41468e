package rdmastat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserverSampleAndReadings(t *testing.T) {
	o := NewObserver(20)

	o.Sample(500, 50000)
	assert.Equal(t, uint64(500), o.Latency())
	assert.Equal(t, uint64(50000), o.Throughput())
	assert.Equal(t, uint64(50000), o.Average())
	assert.Equal(t, uint64(50000), o.MaxAverage())
	assert.Equal(t, uint64(0), o.DropPermille())

	o.Sample(520, 40000)
	assert.Equal(t, uint64(45000), o.Average())
	assert.Equal(t, uint64(50000), o.MaxAverage())
	assert.Greater(t, o.DropPermille(), uint64(0))
}

func TestObserverReset(t *testing.T) {
	o := NewObserver(4)
	o.Sample(10, 1000)
	o.Sample(20, 2000)

	o.Reset()

	assert.Equal(t, uint64(0), o.Latency())
	assert.Equal(t, uint64(0), o.Throughput())
	assert.Equal(t, uint64(0), o.Average())
	assert.Equal(t, uint64(0), o.MaxAverage())
	assert.Equal(t, uint64(0), o.DropPermille())
}
