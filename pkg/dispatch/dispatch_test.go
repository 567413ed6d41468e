package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netcas/splitter/internal/common"
)

func noMiss(Request) bool { return false }

func TestGCD(t *testing.T) {
	assert.Equal(t, uint32(50), common.GCD(50, 50))
	assert.Equal(t, uint32(1), common.GCD(7, 100))
	assert.Equal(t, uint32(10), common.GCD(70, 30))
}

// For 100 consecutive hit requests at a held ratio, the cache count lands
// within one request of the ratio and every request gets a decision.
func TestWindowClosureFairness(t *testing.T) {
	for _, pct := range []uint32{0, 1, 5, 17, 33, 50, 67, 83, 95, 99, 100} {
		s := New(100, 10)
		ratio := func() uint32 { return pct }

		cache, backend := 0, 0
		for i := 0; i < 100; i++ {
			if s.ShouldSendToBackend(nil, MissPredicateFunc(noMiss), ratio) {
				backend++
			} else {
				cache++
			}
		}

		assert.Equal(t, 100, cache+backend, "pct=%d", pct)

		expected := int(pct)
		diff := cache - expected
		if diff < 0 {
			diff = -diff
		}

		assert.LessOrEqualf(t, diff, 1, "pct=%d cache=%d expected=%d", pct, cache, expected)
	}
}

// At 50%, 100 non-miss requests split exactly 50/50 and the interleave
// pattern reduces to [cache, backend] (gcd(50,50)=50, 100/50=2).
func TestFiftyFiftySplit(t *testing.T) {
	s := New(100, 10)
	ratio := func() uint32 { return 50 }

	cache, backend := 0, 0
	for i := 0; i < 100; i++ {
		if s.ShouldSendToBackend(nil, MissPredicateFunc(noMiss), ratio) {
			backend++
		} else {
			cache++
		}
	}

	assert.Equal(t, 50, cache)
	assert.Equal(t, 50, backend)
	assert.Equal(t, uint32(2), s.patternSize)
}

// At 70%, 100 requests with 20 misses at known indices: all misses go to
// backend and the remaining 80 hits split 56:24 within one request.
func TestSeventyPercentWithMisses(t *testing.T) {
	missIndex := map[int]bool{}
	for i := 0; i < 100; i += 5 { // 20 evenly spaced misses
		missIndex[i] = true
	}

	require.Equal(t, 20, len(missIndex))

	s := New(100, 10)
	ratio := func() uint32 { return 70 }

	cache, backend, missesSeen := 0, 0, 0

	for i := 0; i < 100; i++ {
		idx := i
		pred := MissPredicateFunc(func(Request) bool { return missIndex[idx] })

		toBackend := s.ShouldSendToBackend(nil, pred, ratio)
		if missIndex[i] {
			missesSeen++
			assert.True(t, toBackend, "miss at index %d must go to backend", i)

			continue
		}

		if toBackend {
			backend++
		} else {
			cache++
		}
	}

	assert.Equal(t, 20, missesSeen)
	assert.Equal(t, 80, cache+backend)

	diff := cache - 56
	if diff < 0 {
		diff = -diff
	}

	assert.LessOrEqualf(t, diff, 1, "cache=%d backend=%d", cache, backend)
}

// A miss always routes to backend, regardless of ratio or quota state,
// even mid-window with exhausted quotas.
func TestMissAlwaysBackend(t *testing.T) {
	s := New(10, 10)
	ratio := func() uint32 { return 100 } // cache_quota will be fully consumed

	for i := 0; i < 5; i++ {
		s.ShouldSendToBackend(nil, MissPredicateFunc(noMiss), ratio)
	}

	miss := MissPredicateFunc(func(Request) bool { return true })
	assert.True(t, s.ShouldSendToBackend(nil, miss, ratio))
}

// After Reset, state equals post-New state.
func TestResetIsIdempotent(t *testing.T) {
	s := New(100, 10)
	ratio := func() uint32 { return 42 }

	for i := 0; i < 37; i++ {
		s.ShouldSendToBackend(nil, MissPredicateFunc(noMiss), ratio)
	}

	s.Reset()

	fresh := New(100, 10)
	assert.Equal(t, fresh.Snapshot(), s.Snapshot())
	assert.Equal(t, fresh.patternSize, s.patternSize)
	assert.Equal(t, fresh.requestCounter, s.requestCounter)
}

// Lifetime tallies keep counting across window boundaries while the
// window-scoped counters reset.
func TestCumulativeTalliesSurviveWindowBoundaries(t *testing.T) {
	s := New(10, 10)
	ratio := func() uint32 { return 50 }

	for i := 0; i < 35; i++ {
		s.ShouldSendToBackend(nil, MissPredicateFunc(noMiss), ratio)
	}

	snap := s.Snapshot()
	assert.Equal(t, uint64(35), snap.CacheTotal+snap.BackendTotal)
	assert.Less(t, snap.TotalRequests, uint64(10))
}

func TestGCDEdgeCasesProduceSinglePattern(t *testing.T) {
	for _, pct := range []uint32{0, 100} {
		s := New(100, 10)
		ratio := func() uint32 { return pct }

		// First call forces the initial window (the pattern starts empty).
		s.ShouldSendToBackend(nil, MissPredicateFunc(noMiss), ratio)

		assert.Equal(t, uint32(1), s.patternSize)
	}
}
