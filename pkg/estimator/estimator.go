package estimator

import (
	"time"

	"github.com/netcas/splitter/internal/common"
	"github.com/netcas/splitter/pkg/bandwidth"
)

// Estimator is the mode state machine and ratio policy. It owns no locks:
// the owning splitter.Core serializes ticks on a single control-path
// goroutine and publishes the resulting ratio under its own reader/writer
// lock.
type Estimator struct {
	cfg     Config
	profile *bandwidth.Profile

	mode             Mode
	warmupStartedAt  time.Time
	initialized      bool
	stableCalculated bool

	ratio uint32 // [0, 10000]

	unavailableSince time.Time
	haveUnavailable  bool
}

// New returns an Estimator in Idle mode with ratio 0 (no ratio has been
// written yet; Idle's first-entry policy writes 10000 on the first tick
// that observes idle conditions).
func New(cfg Config, profile *bandwidth.Profile) *Estimator {
	return &Estimator{cfg: cfg, profile: profile, mode: Idle}
}

// Reset returns the Estimator to its post-New state.
func (e *Estimator) Reset() {
	cfg, profile := e.cfg, e.profile
	*e = Estimator{cfg: cfg, profile: profile, mode: Idle}
}

// Mode returns the current operating mode.
func (e *Estimator) Mode() Mode { return e.mode }

// Ratio returns the last computed split ratio, in [0, 10000].
func (e *Estimator) Ratio() uint32 { return e.ratio }

// Tick transitions the mode and applies the active mode's ratio policy,
// given this interval's already-sampled signals; sampling IOPS and feeding
// the RDMA window are the caller's responsibility (see
// splitter.Core.OnTick). sourcesAvailable reports whether the IOPS/RDMA
// sources returned live data this tick; a sustained outage past the
// configured grace period transitions to Failure.
//
// It returns whether the stored ratio changed, and the ratio after this
// tick's policy has run.
func (e *Estimator) Tick(now time.Time, rdmaThroughput, iops, dropPermille uint64, sourcesAvailable bool) (bool, uint32) {
	e.trackAvailability(now, sourcesAvailable)
	e.transition(now, rdmaThroughput, iops, dropPermille)

	before := e.ratio
	e.applyRatioPolicy(dropPermille)

	return e.ratio != before, e.ratio
}

func (e *Estimator) trackAvailability(now time.Time, available bool) {
	if available {
		e.haveUnavailable = false
		return
	}

	if !e.haveUnavailable {
		e.haveUnavailable = true
		e.unavailableSince = now
	}
}

func (e *Estimator) transition(now time.Time, rdmaThroughput, iops, dropPermille uint64) {
	switch {
	case e.haveUnavailable && e.cfg.FailureGracePeriod > 0 &&
		now.Sub(e.unavailableSince) >= e.cfg.FailureGracePeriod:
		e.mode = Failure

	case rdmaThroughput <= e.cfg.RDMAThreshold && iops <= e.cfg.IOPSThreshold:
		e.mode = Idle
		e.warmupStartedAt = time.Time{}

	case e.mode == Idle || e.mode == Failure:
		// Activity while Idle starts a warmup. A recovered Failure
		// (sources available again, real activity observed) restarts the
		// same way rather than staying latched forever.
		e.mode = Warmup
		e.warmupStartedAt = now
		e.initialized = false

	case e.mode == Warmup && !e.warmupStartedAt.IsZero() && now.Sub(e.warmupStartedAt) >= e.cfg.WarmupPeriod:
		e.mode = Stable
		e.stableCalculated = false

	case e.mode == Stable && dropPermille > e.cfg.CongestionThreshold:
		e.mode = Congestion
		e.stableCalculated = true

	case e.mode == Congestion && dropPermille < e.cfg.CongestionThreshold:
		e.mode = Stable
		e.stableCalculated = false
	}
}

func (e *Estimator) applyRatioPolicy(dropPermille uint64) {
	switch e.mode {
	case Idle:
		if !e.initialized {
			e.ratio = 10000
			e.initialized = true
		}

	case Warmup:
		e.setRatioIfComputable(0)

	case Stable:
		if !e.stableCalculated {
			e.setRatioIfComputable(dropPermille)
			e.stableCalculated = true
		}

	case Congestion:
		e.setRatioIfComputable(dropPermille)

	case Failure:
		// retain the last ratio.
	}
}

// setRatioIfComputable recomputes the ratio from the bandwidth profile and
// stores it, unless the profile is degenerate (A+B' == 0), in which case
// the prior ratio is retained.
func (e *Estimator) setRatioIfComputable(dropPermille uint64) {
	ratio, ok := computeRatio(e.profile, e.cfg.IODepth, e.cfg.NumJobs, dropPermille)
	if ok {
		e.ratio = ratio
	}
}

// computeRatio derives the cache share that maximizes combined throughput
// at the configured workload fingerprint:
//
//	A  = bandwidth(ioDepth, numJobs, 100)
//	B  = bandwidth(ioDepth, numJobs, 0)
//	B' = B * (1000 - dropPermille) / 1000   (only when dropPermille > 0)
//	ratio = clamp(floor(A * 10000 / (A + B')), 0, 10000)
//
// It returns ok=false when A+B' == 0 (profile-miss / degenerate profile),
// in which case the caller must leave the ratio unchanged.
func computeRatio(profile *bandwidth.Profile, ioDepth, numJobs uint32, dropPermille uint64) (uint32, bool) {
	a := uint64(profile.Bandwidth(ioDepth, numJobs, 100))
	b := uint64(profile.Bandwidth(ioDepth, numJobs, 0))

	if dropPermille > 1000 {
		dropPermille = 1000
	}

	if dropPermille > 0 {
		b = (b * (1000 - dropPermille)) / 1000
	}

	if a+b == 0 {
		return 0, false
	}

	ratio := (a * 10000) / (a + b)

	return common.Clamp(uint32(ratio), 0, 10000), true
}
