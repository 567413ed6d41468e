package splitter

import "errors"

// Sentinel errors for the four recoverable failure categories the control
// path can encounter. None of these ever reaches the hot path. Core.OnTick
// logs ErrMetricSourceUnavailable and ErrClockAnomaly at Debug and falls
// back to the local recovery; the daemon logs ErrProfileMiss at Warn when
// its startup check finds no profile data for the workload fingerprint;
// ErrStatsSourceUnavailable wraps cache-stats read failures, which
// CacheSource.Observe reports as 0 IOPS without logging.
var (
	// ErrProfileMiss indicates the bandwidth table returned 0 for both A and B.
	ErrProfileMiss = errors.New("bandwidth profile: degenerate lookup (A+B'=0)")

	// ErrMetricSourceUnavailable indicates the RDMA latency/throughput source
	// could not be read or parsed.
	ErrMetricSourceUnavailable = errors.New("rdma metric source unavailable")

	// ErrStatsSourceUnavailable indicates the cache/disk stats source could
	// not be read or parsed.
	ErrStatsSourceUnavailable = errors.New("iops stats source unavailable")

	// ErrClockAnomaly indicates a zero or negative elapsed interval between
	// two IOPS samples.
	ErrClockAnomaly = errors.New("clock anomaly: non-positive elapsed interval")
)

// IsProfileMissError reports whether err is ErrProfileMiss.
func IsProfileMissError(err error) bool { return errors.Is(err, ErrProfileMiss) }

// IsMetricSourceUnavailableError reports whether err is ErrMetricSourceUnavailable.
func IsMetricSourceUnavailableError(err error) bool {
	return errors.Is(err, ErrMetricSourceUnavailable)
}

// IsStatsSourceUnavailableError reports whether err is ErrStatsSourceUnavailable.
func IsStatsSourceUnavailableError(err error) bool {
	return errors.Is(err, ErrStatsSourceUnavailable)
}

// IsClockAnomalyError reports whether err is ErrClockAnomaly.
func IsClockAnomalyError(err error) bool { return errors.Is(err, ErrClockAnomaly) }
