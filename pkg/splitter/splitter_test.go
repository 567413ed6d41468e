package splitter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netcas/splitter/pkg/bandwidth"
)

type fakeRDMASource struct {
	latency, throughput uint64
	err                 error
}

func (f *fakeRDMASource) Latency() (uint64, error)    { return f.latency, f.err }
func (f *fakeRDMASource) Throughput() (uint64, error) { return f.throughput, f.err }

func testProfile(t *testing.T) *bandwidth.Profile {
	t.Helper()

	p, err := bandwidth.Parse(strings.NewReader(`[
		{"io_depth":16,"num_jobs":1,"split_pct":100,"bandwidth_kib_s":77575},
		{"io_depth":16,"num_jobs":1,"split_pct":0,"bandwidth_kib_s":34698}
	]`))
	require.NoError(t, err)

	return p
}

func newTestCore(t *testing.T, rdma *fakeRDMASource) *Core {
	t.Helper()

	cfg := DefaultConfig()

	return NewCore(cfg, testProfile(t), Sources{RDMA: rdma}, nil)
}

// An idle boot holds Idle mode and the initial 100%-cache ratio.
func TestIdleBoot(t *testing.T) {
	rdma := &fakeRDMASource{}
	core := newTestCore(t, rdma)

	now := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		core.OnTick(now)
		now = now.Add(100 * time.Millisecond)
	}

	assert.Equal(t, uint32(10000), core.CurrentRatio())
}

// Full mode walk: Warmup -> Stable -> Congestion -> Stable.
func TestWarmupStableCongestionStable(t *testing.T) {
	rdma := &fakeRDMASource{latency: 100, throughput: 50000}
	core := newTestCore(t, rdma)

	start := time.Unix(0, 0)
	core.OnTick(start)
	core.OnTick(start.Add(3 * time.Second))

	stableRatio := core.CurrentRatio()
	assert.Equal(t, uint32(6909), stableRatio)

	// Drive RDMA throughput down and hold it there long enough for the
	// window (capacity 20) to fill with the lower value, so its average
	// settles 20% below the running maximum (a drop of 200 permille,
	// above the threshold of 90).
	rdma.throughput = 40000
	tick := start.Add(3100 * time.Millisecond)
	for i := 0; i < 25; i++ {
		core.OnTick(tick)
		tick = tick.Add(100 * time.Millisecond)
	}

	congestionRatio := core.CurrentRatio()
	assert.Greater(t, congestionRatio, stableRatio)

	// Recover: push throughput back up; once enough samples land, the
	// average rises back toward the running maximum and the drop falls
	// below the threshold, returning to Stable.
	rdma.throughput = 50000
	for i := 0; i < 25; i++ {
		core.OnTick(tick)
		tick = tick.Add(100 * time.Millisecond)
	}

	assert.LessOrEqual(t, core.CurrentRatio(), congestionRatio)
}

// Reset returns Core to its post-NewCore state.
func TestCoreResetIsIdempotent(t *testing.T) {
	rdma := &fakeRDMASource{latency: 100, throughput: 50000}
	core := newTestCore(t, rdma)

	now := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		core.OnTick(now)
		now = now.Add(time.Second)
	}

	require.NotEqual(t, uint32(0), core.CurrentRatio())

	core.Reset()

	fresh := newTestCore(t, &fakeRDMASource{})

	assert.Equal(t, fresh.CurrentRatio(), core.CurrentRatio())
	assert.Equal(t, fresh.sched.Snapshot(), core.sched.Snapshot())
}

// The ratio stays within [0, 10000] across random-ish tick sequences.
func TestCoreRatioAlwaysClamped(t *testing.T) {
	rdma := &fakeRDMASource{}
	core := newTestCore(t, rdma)

	now := time.Unix(0, 0)
	for i := 0; i < 100; i++ {
		rdma.throughput = uint64(i * 731 % 90000)
		now = now.Add(250 * time.Millisecond)
		core.OnTick(now)

		r := core.CurrentRatio()
		assert.GreaterOrEqual(t, r, uint32(0))
		assert.LessOrEqual(t, r, uint32(10000))
	}
}

// Scheduler fairness at a held ratio: every request gets a decision.
func TestDispatchFairness(t *testing.T) {
	rdma := &fakeRDMASource{latency: 100, throughput: 50000}
	core := newTestCore(t, rdma)

	now := time.Unix(0, 0)
	core.OnTick(now)
	core.OnTick(now.Add(3 * time.Second))

	toBackend := 0
	toCache := 0

	for i := 0; i < 100; i++ {
		if core.ShouldSendToBackend(Request{ID: uint64(i)}, nil) {
			toBackend++
		} else {
			toCache++
		}
	}

	assert.Equal(t, 100, toBackend+toCache)
}

// Misses always route to backend regardless of ratio.
func TestDispatchWithMisses(t *testing.T) {
	rdma := &fakeRDMASource{latency: 100, throughput: 50000}
	core := newTestCore(t, rdma)

	now := time.Unix(0, 0)
	core.OnTick(now)
	core.OnTick(now.Add(3 * time.Second))

	miss := MissPredicateFunc(func(r Request) bool { return r.ID%5 == 0 })

	missCount := 0

	for i := 0; i < 100; i++ {
		req := Request{ID: uint64(i)}
		toBackend := core.ShouldSendToBackend(req, miss)

		if miss.IsMiss(req) {
			missCount++
			assert.True(t, toBackend)
		}
	}

	assert.Equal(t, 20, missCount)
}

// A non-positive elapsed interval between ticks must not panic and must
// skip the IOPS computation.
func TestClockAnomalyDoesNotPanic(t *testing.T) {
	rdma := &fakeRDMASource{latency: 100, throughput: 50000}
	core := newTestCore(t, rdma)

	now := time.Unix(10, 0)
	core.OnTick(now)

	assert.NotPanics(t, func() {
		core.OnTick(now) // same timestamp -> elapsed == 0
	})
}

// An erroring RDMA source must not propagate and the estimator must still
// make progress (toward Idle).
func TestRDMASourceUnavailableFallsBackGracefully(t *testing.T) {
	rdma := &fakeRDMASource{err: errors.New("source unavailable")}
	core := newTestCore(t, rdma)

	assert.NotPanics(t, func() {
		core.OnTick(time.Unix(0, 0))
	})

	// With no signal the estimator enters Idle, whose first entry writes
	// the 100%-cache ratio.
	assert.Equal(t, uint32(10000), core.CurrentRatio())
}
