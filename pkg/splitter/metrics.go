package splitter

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the common prefix for all metrics this package exposes.
const Namespace = "netcas"

var (
	ratioDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "splitter", "ratio"),
		"Current split ratio, in [0,10000] (x100 percent) routed to the local cache.",
		nil, nil,
	)
	modeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "splitter", "mode"),
		"Current estimator mode (0=idle,1=warmup,2=stable,3=congestion,4=failure).",
		nil, nil,
	)
	rdmaDropPermilleDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "rdma", "drop_permille"),
		"Instantaneous RDMA throughput drop relative to its all-time moving-average maximum, in parts per thousand.",
		nil, nil,
	)
	rdmaAverageThroughputDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "rdma", "average_throughput"),
		"RDMA moving-average throughput over the configured window.",
		nil, nil,
	)
	iopsCacheDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "iops", "cache"),
		"Last computed cache IOPS, derived from the cache-stats source.",
		nil, nil,
	)
	iopsDiskDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "iops", "disk"),
		"Last computed disk IOPS, derived from the block-device stats source.",
		nil, nil,
	)
	dispatchCacheRequestsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "dispatch", "cache_requests_total"),
		"Total requests dispatched to the local cache since the last reset.",
		nil, nil,
	)
	dispatchBackendRequestsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "dispatch", "backend_requests_total"),
		"Total requests dispatched to the RDMA backend since the last reset, excluding misses.",
		nil, nil,
	)
	dispatchMissRequestsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "dispatch", "miss_requests_total"),
		"Total requests routed to backend via the miss short-circuit since the last reset.",
		nil, nil,
	)
)

// Describe implements prometheus.Collector.
func (c *Core) Describe(ch chan<- *prometheus.Desc) {
	ch <- ratioDesc
	ch <- modeDesc
	ch <- rdmaDropPermilleDesc
	ch <- rdmaAverageThroughputDesc
	ch <- iopsCacheDesc
	ch <- iopsDiskDesc
	ch <- dispatchCacheRequestsDesc
	ch <- dispatchBackendRequestsDesc
	ch <- dispatchMissRequestsDesc
}

// Collect implements prometheus.Collector. It runs on the scrape
// goroutine, so it only reads the ratio lock, the scheduler's own
// snapshot, and the atomics OnTick publishes; the estimator and RDMA
// window themselves stay control-path-private.
func (c *Core) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(ratioDesc, prometheus.GaugeValue, float64(c.CurrentRatio()))
	ch <- prometheus.MustNewConstMetric(modeDesc, prometheus.GaugeValue, float64(c.lastMode.Load()))
	ch <- prometheus.MustNewConstMetric(rdmaDropPermilleDesc, prometheus.GaugeValue, float64(c.lastDropPermille.Load()))
	ch <- prometheus.MustNewConstMetric(rdmaAverageThroughputDesc, prometheus.GaugeValue, float64(c.lastAvgThroughput.Load()))

	snap := c.sched.Snapshot()
	ch <- prometheus.MustNewConstMetric(dispatchCacheRequestsDesc, prometheus.CounterValue, float64(snap.CacheTotal))
	ch <- prometheus.MustNewConstMetric(dispatchBackendRequestsDesc, prometheus.CounterValue, float64(snap.BackendTotal))
	ch <- prometheus.MustNewConstMetric(dispatchMissRequestsDesc, prometheus.CounterValue, float64(c.missCount.Load()))

	if c.cache != nil {
		ch <- prometheus.MustNewConstMetric(iopsCacheDesc, prometheus.GaugeValue, float64(c.lastCacheIOPS.Load()))
	}

	if c.disk != nil {
		ch <- prometheus.MustNewConstMetric(iopsDiskDesc, prometheus.GaugeValue, float64(c.lastDiskIOPS.Load()))
	}
}
