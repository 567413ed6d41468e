// Package iopsstat derives current IOPS from cumulative counters: two
// read-delta sources with an identical Observe(elapsed) contract, one
// backed by the cache engine's read counters and one backed by the backend
// block device's stat file.
package iopsstat

import "github.com/netcas/splitter/internal/common"

// CacheStats is a snapshot of the cache engine's cumulative read counters.
type CacheStats struct {
	CacheReads uint64
	CoreReads  uint64
}

// CacheStatsReader returns the current cumulative cache-engine read
// counters. The cache engine provides the implementation.
type CacheStatsReader interface {
	ReadCacheStats() (CacheStats, error)
}

// CacheSource derives IOPS from the delta, in bytes, of
// (cache_reads + core_reads) over an interval, divided by a fixed block
// size (giving a request count) and the elapsed time.
type CacheSource struct {
	Reader    CacheStatsReader
	BlockSize uint64 // bytes per block; must be > 0 for a meaningful result.

	initialized bool
	prevTotal   uint64
}

// Observe returns the IOPS derived from the counter delta over elapsedMs.
// The first call only establishes the previous-sample snapshot and returns
// 0. Any read failure or non-positive interval also yields 0 without
// disturbing the snapshot's validity for next time.
func (c *CacheSource) Observe(elapsedMs int64) uint64 {
	if c.BlockSize == 0 || elapsedMs <= 0 {
		return 0
	}

	stats, err := c.Reader.ReadCacheStats()
	if err != nil {
		return 0
	}

	total := stats.CacheReads + stats.CoreReads

	if !c.initialized {
		c.initialized = true
		c.prevTotal = total

		return 0
	}

	delta := common.SaturatingSub(total, c.prevTotal)

	c.prevTotal = total

	requests := delta / c.BlockSize

	return (requests * 1000) / uint64(elapsedMs)
}

// Reset clears the lazily-initialized previous-sample snapshot.
func (c *CacheSource) Reset() {
	c.initialized = false
	c.prevTotal = 0
}
