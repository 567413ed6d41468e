package splitter

import (
	"github.com/netcas/splitter/pkg/dispatch"
	"github.com/netcas/splitter/pkg/iopsstat"
	"github.com/netcas/splitter/pkg/rdmastat"
)

// Request is the opaque handle passed to MissPredicate. The core never
// reads ID itself; it exists so callers (and tests) have something to
// correlate decisions against.
type Request struct {
	ID uint64
}

// MissPredicate reports whether a request must bypass the cache. The
// cache engine's hit/miss detection provides the implementation.
type MissPredicate interface {
	IsMiss(req Request) bool
}

// MissPredicateFunc adapts a plain function to a MissPredicate.
type MissPredicateFunc func(req Request) bool

// IsMiss implements MissPredicate.
func (f MissPredicateFunc) IsMiss(req Request) bool { return f(req) }

// CacheStatsReader is the cache-stats source, re-exported at the splitter
// boundary.
type CacheStatsReader = iopsstat.CacheStatsReader

// CacheStats mirrors the cache engine's { cache_reads, core_reads } counters.
type CacheStats = iopsstat.CacheStats

// DiskStatsReader is the block-device stats source, re-exported at the
// splitter boundary.
type DiskStatsReader = iopsstat.DiskStatsReader

// RDMASource is the RDMA latency/throughput source, re-exported at the
// splitter boundary.
type RDMASource = rdmastat.Source

// dispatchRequest adapts a splitter.Request through to dispatch.Request
// without the dispatch package needing to know about splitter.
type dispatchRequest = dispatch.Request
