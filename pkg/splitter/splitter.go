// Package splitter wires the five core components (bandwidth profile, RDMA
// observer, IOPS observer, mode/ratio estimator, dispatch scheduler)
// behind a single Core with NewCore, Reset, OnTick, ShouldSendToBackend,
// and CurrentRatio.
package splitter

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/netcas/splitter/pkg/bandwidth"
	"github.com/netcas/splitter/pkg/dispatch"
	"github.com/netcas/splitter/pkg/estimator"
	"github.com/netcas/splitter/pkg/iopsstat"
	"github.com/netcas/splitter/pkg/rdmastat"
)

// DefaultRDMAWindowSize is the RDMA moving-average window length, in samples.
const DefaultRDMAWindowSize = 20

// DefaultCacheBlockSize is the fixed block size used to turn a cache-stats
// byte delta into a request count, when no override is configured.
const DefaultCacheBlockSize = 4096

const (
	dispatchDefaultWindowSize     = dispatch.DefaultWindowSize
	dispatchDefaultMaxPatternSize = dispatch.DefaultMaxPatternSize
)

// Core owns all process state of the splitter: the estimator (mode, RDMA
// window, IOPS snapshots; control-path only, unlocked) and the dispatch
// scheduler (its own mutex), publishing a single ratio behind a
// reader/writer lock.
type Core struct {
	logger *slog.Logger

	rdmaSource RDMASource
	rdma       *rdmastat.Observer
	cache      *iopsstat.CacheSource
	disk       *iopsstat.DiskSource

	est *estimator.Estimator

	sched *dispatch.Scheduler

	ratioMu sync.RWMutex
	ratio   uint32

	lastTick time.Time

	// Observability-only state, written from the control-path goroutine
	// and read from Collect on the scrape goroutine; atomics avoid adding
	// a lock solely for metrics. Collect must never touch the estimator
	// or the RDMA window directly: those are control-path-private.
	lastMode          atomic.Int64
	lastDropPermille  atomic.Uint64
	lastAvgThroughput atomic.Uint64
	lastCacheIOPS     atomic.Uint64
	lastDiskIOPS      atomic.Uint64
	missCount         atomic.Uint64
}

// Sources bundles the external data sources a Core needs.
// Any of RDMA/Cache/Disk may be nil if that signal is not wired up; the
// corresponding observation is then always treated as "unavailable".
type Sources struct {
	RDMA  RDMASource
	Cache CacheStatsReader
	Disk  DiskStatsReader
}

// NewCore builds a Core from a Config, a bandwidth profile, and the
// external data sources. profile may be nil, in which case
// every ratio computation is a profile-miss and the ratio never leaves its
// initial value outside Idle.
func NewCore(cfg Config, profile *bandwidth.Profile, sources Sources, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Core{
		logger: logger,
		est:    estimator.New(cfg.estimatorConfig(), profile),
		sched:  dispatch.New(cfg.WindowSize, cfg.MaxPatternSize),
	}

	windowSize := cfg.RDMAWindowSize
	if windowSize == 0 {
		windowSize = DefaultRDMAWindowSize
	}

	c.rdma = rdmastat.NewObserver(int(windowSize))

	if sources.Cache != nil {
		blockSize := cfg.CacheBlockSize
		if blockSize == 0 {
			blockSize = DefaultCacheBlockSize
		}

		c.cache = &iopsstat.CacheSource{Reader: sources.Cache, BlockSize: blockSize}
	}

	if sources.Disk != nil {
		c.disk = &iopsstat.DiskSource{Reader: sources.Disk}
	}

	c.rdmaSource = sources.RDMA

	return c
}

// Reset returns the Core to its post-NewCore state, modulo lock
// internals.
func (c *Core) Reset() {
	c.est.Reset()
	c.rdma.Reset()
	c.sched.Reset()

	if c.cache != nil {
		c.cache.Reset()
	}

	if c.disk != nil {
		c.disk.Reset()
	}

	c.ratioMu.Lock()
	c.ratio = 0
	c.ratioMu.Unlock()

	c.lastTick = time.Time{}

	c.lastMode.Store(0)
	c.lastDropPermille.Store(0)
	c.lastAvgThroughput.Store(0)
	c.lastCacheIOPS.Store(0)
	c.lastDiskIOPS.Store(0)
	c.missCount.Store(0)
}

// CurrentRatio returns the currently held split ratio, in [0, 10000]. It
// takes only a reader lock and never blocks on I/O.
func (c *Core) CurrentRatio() uint32 {
	c.ratioMu.RLock()
	defer c.ratioMu.RUnlock()

	return c.ratio
}

// OnTick is the control-path entry point. It samples the RDMA/IOPS
// sources, runs the estimator's state machine and ratio policy, and,
// only on an actual change, takes the writer lock to publish the new
// ratio.
func (c *Core) OnTick(now time.Time) {
	elapsedMs := int64(0)
	if !c.lastTick.IsZero() {
		elapsedMs = now.Sub(c.lastTick).Milliseconds()
	}

	c.lastTick = now

	latency, throughput, rdmaAvailable := c.sampleRDMA()
	c.rdma.Sample(latency, throughput)

	iops, statsAvailable := c.sampleIOPS(elapsedMs)

	sourcesAvailable := rdmaAvailable || statsAvailable

	// The idle/warmup gate works on the interval's sampled throughput;
	// the window average feeds only the drop fraction.
	drop := c.rdma.DropPermille()
	changed, ratio := c.est.Tick(now, throughput, iops, drop, sourcesAvailable)

	c.lastMode.Store(int64(c.est.Mode()))
	c.lastDropPermille.Store(drop)
	c.lastAvgThroughput.Store(c.rdma.Average())

	if !changed {
		return
	}

	c.ratioMu.Lock()
	c.ratio = ratio
	c.ratioMu.Unlock()
}

// sampleRDMA reads the RDMA source; a read failure yields a 0 sample and
// is logged, never propagated.
func (c *Core) sampleRDMA() (latency, throughput uint64, available bool) {
	if c.rdmaSource == nil {
		return 0, 0, false
	}

	lat, latErr := c.rdmaSource.Latency()
	thr, thrErr := c.rdmaSource.Throughput()

	if latErr != nil {
		c.logger.Debug("rdma latency source unavailable", "err", fmt.Errorf("%w: %w", ErrMetricSourceUnavailable, latErr))
	}

	if thrErr != nil {
		c.logger.Debug("rdma throughput source unavailable", "err", fmt.Errorf("%w: %w", ErrMetricSourceUnavailable, thrErr))
	}

	if latErr != nil || thrErr != nil {
		return 0, 0, false
	}

	return lat, thr, true
}

// sampleIOPS observes both IOPS sources for the interval and returns their
// sum as the estimator's single iops signal. A non-positive interval is a
// clock anomaly: skip the computation entirely, leaving the
// previous-sample snapshots untouched. Otherwise any wired IOPS source
// makes the result available, even when its read fails: Observe reports a
// failed read as 0 IOPS, the same as no activity.
func (c *Core) sampleIOPS(elapsedMs int64) (iops uint64, available bool) {
	if elapsedMs <= 0 {
		c.logger.Debug("skipping IOPS computation", "elapsed_ms", elapsedMs, "err", ErrClockAnomaly)

		return 0, false
	}

	if c.cache != nil {
		cacheIOPS := c.cache.Observe(elapsedMs)
		c.lastCacheIOPS.Store(cacheIOPS)
		iops += cacheIOPS
		available = true
	}

	if c.disk != nil {
		diskIOPS := c.disk.Observe(elapsedMs)
		c.lastDiskIOPS.Store(diskIOPS)
		iops += diskIOPS
		available = true
	}

	return iops, available
}

// ShouldSendToBackend is the hot-path entry point. It never blocks on
// I/O: the only lock it takes is the scheduler's fine-grained mutex and,
// at a window boundary, a reader lock on the ratio.
func (c *Core) ShouldSendToBackend(req Request, miss MissPredicate) bool {
	var predicate dispatch.MissPredicate
	if miss != nil {
		predicate = dispatch.MissPredicateFunc(func(r dispatch.Request) bool {
			isMiss := miss.IsMiss(r.(Request))
			if isMiss {
				c.missCount.Add(1)
			}

			return isMiss
		})
	}

	return c.sched.ShouldSendToBackend(dispatchRequest(req), predicate, c.ratioPercent)
}

// ratioPercent snapshots the held ratio (x100 percent) and rescales it to a
// plain [0,100] percent for the dispatch scheduler's pattern construction.
func (c *Core) ratioPercent() uint32 {
	return c.CurrentRatio() / 100
}
