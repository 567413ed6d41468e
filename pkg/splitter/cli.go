package splitter

import (
	"strconv"

	"github.com/alecthomas/kingpin/v2"
)

// AddFlags registers the splitter's configuration surface as kingpin
// flags on app, returning a function that resolves the parsed flags into
// a Config once app.Parse has run.
func AddFlags(app *kingpin.Application) func() Config {
	def := DefaultConfig()

	rdmaWindowSize := app.Flag(
		"splitter.rdma-window-size",
		"Moving-average window length, in samples.",
	).Default(strconv.FormatUint(uint64(def.RDMAWindowSize), 10)).Uint32()

	windowSize := app.Flag(
		"splitter.window-size",
		"Ratio-enforcement window, in requests.",
	).Default(strconv.FormatUint(uint64(def.WindowSize), 10)).Uint32()

	maxPatternSize := app.Flag(
		"splitter.max-pattern-size",
		"Cap on the short interleave pattern period.",
	).Default(strconv.FormatUint(uint64(def.MaxPatternSize), 10)).Uint32()

	rdmaThreshold := app.Flag(
		"splitter.rdma-threshold",
		"RDMA throughput below this value is an Idle candidate.",
	).Default(strconv.FormatUint(def.RDMAThreshold, 10)).Uint64()

	iopsThreshold := app.Flag(
		"splitter.iops-threshold",
		"IOPS below this value, with RDMA also low, means Idle.",
	).Default(strconv.FormatUint(def.IOPSThreshold, 10)).Uint64()

	congestionThreshold := app.Flag(
		"splitter.congestion-threshold",
		"Drop-permille threshold gating Stable<->Congestion.",
	).Default(strconv.FormatUint(def.CongestionThreshold, 10)).Uint64()

	warmupPeriod := app.Flag(
		"splitter.warmup-period",
		"Duration of the Warmup mode after activity resumes.",
	).Default(def.WarmupPeriod.String()).Duration()

	failureGracePeriod := app.Flag(
		"splitter.failure-grace-period",
		"Duration both sources must stay unavailable before transitioning to Failure.",
	).Default(def.FailureGracePeriod.String()).Duration()

	ioDepth := app.Flag(
		"splitter.io-depth",
		"Workload fingerprint IO depth for the bandwidth-profile lookup.",
	).Default(strconv.FormatUint(uint64(def.IODepth), 10)).Uint32()

	numJobs := app.Flag(
		"splitter.num-jobs",
		"Workload fingerprint job count for the bandwidth-profile lookup.",
	).Default(strconv.FormatUint(uint64(def.NumJobs), 10)).Uint32()

	bandwidthProfileFile := app.Flag(
		"splitter.bandwidth-profile-file",
		"Path to a JSON bandwidth-profile table; empty uses the embedded default.",
	).Default("").String()

	rdmaLatencyFile := app.Flag(
		"splitter.rdma-latency-file",
		"Path to the RDMA latency file source (nanoseconds, single line).",
	).Default("").String()

	rdmaThroughputFile := app.Flag(
		"splitter.rdma-throughput-file",
		"Path to the RDMA throughput file source, when not using the sysfs InfiniBand source.",
	).Default("").String()

	diskStatsFile := app.Flag(
		"splitter.disk-stats-file",
		"Path to the block-device stats line source.",
	).Default("/proc/diskstats").String()

	cacheBlockSize := app.Flag(
		"splitter.cache-block-size",
		"Fixed block size used to turn a cache-stats byte delta into a request count.",
	).Default(strconv.FormatUint(def.CacheBlockSize, 10)).Uint64()

	return func() Config {
		return Config{
			RDMAWindowSize:       *rdmaWindowSize,
			WindowSize:           *windowSize,
			MaxPatternSize:       *maxPatternSize,
			RDMAThreshold:        *rdmaThreshold,
			IOPSThreshold:        *iopsThreshold,
			CongestionThreshold:  *congestionThreshold,
			WarmupPeriod:         *warmupPeriod,
			FailureGracePeriod:   *failureGracePeriod,
			IODepth:              *ioDepth,
			NumJobs:              *numJobs,
			BandwidthProfileFile: *bandwidthProfileFile,
			RDMALatencyFile:      *rdmaLatencyFile,
			RDMAThroughputFile:   *rdmaThroughputFile,
			DiskStatsFile:        *diskStatsFile,
			CacheBlockSize:       *cacheBlockSize,
		}
	}
}
