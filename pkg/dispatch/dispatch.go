// Package dispatch implements the per-request hot-path routing decision:
// given a held split ratio, route each request to the local cache or the
// RDMA backend so that, across a 100-request window, the cache share
// converges on the ratio within one request, while misses always go to
// backend.
package dispatch

import (
	"sync"

	"github.com/netcas/splitter/internal/common"
)

// DefaultWindowSize is the ratio-enforcement window, in requests.
const DefaultWindowSize = 100

// DefaultMaxPatternSize caps the short repeating interleave pattern.
const DefaultMaxPatternSize = 10

// Request is an opaque handle passed through to the miss predicate. The
// scheduler never inspects it.
type Request any

// MissPredicate reports whether a request must bypass the cache
// entirely.
type MissPredicate interface {
	IsMiss(req Request) bool
}

// MissPredicateFunc adapts a plain function to a MissPredicate.
type MissPredicateFunc func(req Request) bool

// IsMiss implements MissPredicate.
func (f MissPredicateFunc) IsMiss(req Request) bool { return f(req) }

// Scheduler holds the ratio-enforcement accounting: the window counters,
// the short interleave pattern, and the per-window quotas. The window and
// pattern state form a single logical sequence, so a short mutex guards
// them rather than per-field atomics; all exported methods take it
// internally.
type Scheduler struct {
	mu sync.Mutex

	windowSize     uint32
	maxPatternSize uint32

	requestCounter  uint64
	totalRequests   uint64
	cacheRequests   uint64
	backendRequests uint64

	// Lifetime tallies, unaffected by window boundaries. The window-scoped
	// counters above enforce the ratio; these feed observability.
	cacheTotal   uint64
	backendTotal uint64

	patternSize     uint32
	patternCache    uint32
	patternBackend  uint32
	patternPosition uint32

	// Quotas are signed so a decrement past zero cannot underflow;
	// ShouldSendToBackend only ever treats <= 0 as exhausted.
	cacheQuota   int64
	backendQuota int64

	lastRequestToCache bool

	ratioPercent uint32 // snapshotted at the last window boundary
}

// New returns a Scheduler with the given window and pattern-cap sizes. A
// zero windowSize or maxPatternSize falls back to the default.
func New(windowSize, maxPatternSize uint32) *Scheduler {
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}

	if maxPatternSize == 0 {
		maxPatternSize = DefaultMaxPatternSize
	}

	return &Scheduler{windowSize: windowSize, maxPatternSize: maxPatternSize}
}

// Reset returns the Scheduler to its post-New state.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Field by field: the mutex is held here and must not be overwritten;
	// the sizes fixed by New are kept.
	s.requestCounter, s.totalRequests, s.cacheRequests, s.backendRequests = 0, 0, 0, 0
	s.cacheTotal, s.backendTotal = 0, 0
	s.patternSize, s.patternCache, s.patternBackend, s.patternPosition = 0, 0, 0, 0
	s.cacheQuota, s.backendQuota = 0, 0
	s.lastRequestToCache = false
	s.ratioPercent = 0
}

// Counters is a snapshot of the accounting state, for observability/tests.
// The window-scoped counters reset at each window boundary; the lifetime
// tallies only reset on Reset.
type Counters struct {
	TotalRequests   uint64
	CacheRequests   uint64
	BackendRequests uint64

	CacheTotal   uint64
	BackendTotal uint64
}

// Snapshot returns the current accounting counters.
func (s *Scheduler) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Counters{
		TotalRequests:   s.totalRequests,
		CacheRequests:   s.cacheRequests,
		BackendRequests: s.backendRequests,
		CacheTotal:      s.cacheTotal,
		BackendTotal:    s.backendTotal,
	}
}

// ShouldSendToBackend is the single hot-path entry point. The ratio is
// read lazily, only at window boundaries, via snapshotRatioPercent, which
// the caller must make O(1) and non-blocking (a reader-lock read of the
// held ratio, divided to percent).
func (s *Scheduler) ShouldSendToBackend(req Request, miss MissPredicate, snapshotRatioPercent func() uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requestCounter++

	if miss != nil && miss.IsMiss(req) {
		// requestCounter already advanced for window bookkeeping; the
		// cache/backend balance is untouched, and the pattern recompute is
		// skipped even if this miss lands on a window boundary; clearing the
		// pattern defers that boundary to the next non-miss request.
		if s.requestCounter%uint64(s.windowSize) == 0 {
			s.patternSize = 0
		}

		return true
	}

	if s.requestCounter%uint64(s.windowSize) == 0 || s.patternSize == 0 {
		s.newWindow(snapshotRatioPercent())
	}

	toCache := s.decide()

	s.totalRequests++
	s.lastRequestToCache = toCache

	if toCache {
		s.cacheRequests++
		s.cacheTotal++
		s.cacheQuota--
	} else {
		s.backendRequests++
		s.backendTotal++
		s.backendQuota--
	}

	return !toCache
}

// decide picks a side for one non-miss request, holding the lock. Expected
// counts keep the running balance on the ratio; the pattern interleaves
// the remainder; quotas and the last-side tiebreak settle what is left.
func (s *Scheduler) decide() bool {
	expectedCache := (s.totalRequests * uint64(s.ratioPercent)) / uint64(s.windowSize)
	expectedBackend := s.totalRequests - expectedCache

	switch {
	case s.cacheRequests < expectedCache:
		return true

	case s.backendRequests < expectedBackend:
		return false

	case s.patternPosition < s.patternSize:
		toCache := s.patternPosition < s.patternCache
		s.patternPosition = (s.patternPosition + 1) % s.patternSize

		return toCache

	case s.cacheQuota <= 0:
		return false

	case s.backendQuota <= 0:
		return true

	default:
		return !s.lastRequestToCache
	}
}

// newWindow rebuilds the interleave pattern for ratioPercent and resets
// the quotas and window counters, holding the lock.
func (s *Scheduler) newWindow(ratioPercent uint32) {
	if ratioPercent > 100 {
		ratioPercent = 100
	}

	s.ratioPercent = ratioPercent

	a := ratioPercent
	b := 100 - ratioPercent

	// A ratio of 0 or 100 fixes the pattern size at 1 rather than
	// deriving it from a gcd against a zero side.
	var patternSize uint32 = 1
	if a > 0 && b > 0 {
		g := common.GCD(a, b)
		patternSize = 100 / g

		if patternSize > s.maxPatternSize {
			patternSize = s.maxPatternSize
		}

		if patternSize == 0 {
			patternSize = 1
		}
	}

	s.patternSize = patternSize
	s.patternCache = (a * patternSize) / 100
	s.patternBackend = patternSize - s.patternCache
	s.patternPosition = 0

	s.cacheQuota = int64(a)
	s.backendQuota = int64(b)

	s.cacheRequests = 0
	s.backendRequests = 0
	s.totalRequests = 0
}
