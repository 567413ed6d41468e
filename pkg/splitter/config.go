package splitter

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netcas/splitter/pkg/estimator"
)

// Config is the YAML structured-configuration surface, loaded by the
// daemon's --config.file flag. It mirrors the estimator and dispatch
// tunables so an operator can check in one file instead of a long flag
// list.
type Config struct {
	RDMAWindowSize      uint32        `yaml:"rdma_window_size"`
	WindowSize          uint32        `yaml:"window_size"`
	MaxPatternSize      uint32        `yaml:"max_pattern_size"`
	RDMAThreshold       uint64        `yaml:"rdma_threshold"`
	IOPSThreshold       uint64        `yaml:"iops_threshold"`
	CongestionThreshold uint64        `yaml:"congestion_threshold"`
	WarmupPeriod        time.Duration `yaml:"warmup_period"`
	FailureGracePeriod  time.Duration `yaml:"failure_grace_period"`
	IODepth             uint32        `yaml:"io_depth"`
	NumJobs             uint32        `yaml:"num_jobs"`

	BandwidthProfileFile string `yaml:"bandwidth_profile_file"`
	RDMALatencyFile      string `yaml:"rdma_latency_file"`
	RDMAThroughputFile   string `yaml:"rdma_throughput_file"`
	DiskStatsFile        string `yaml:"disk_stats_file"`
	CacheBlockSize       uint64 `yaml:"cache_block_size"`
}

// DefaultConfig returns a Config populated with the default tunables.
func DefaultConfig() Config {
	ec := estimator.DefaultConfig()

	return Config{
		RDMAWindowSize:      DefaultRDMAWindowSize,
		WindowSize:          dispatchDefaultWindowSize,
		MaxPatternSize:      dispatchDefaultMaxPatternSize,
		RDMAThreshold:       ec.RDMAThreshold,
		IOPSThreshold:       ec.IOPSThreshold,
		CongestionThreshold: ec.CongestionThreshold,
		WarmupPeriod:        ec.WarmupPeriod,
		FailureGracePeriod:  ec.FailureGracePeriod,
		IODepth:             ec.IODepth,
		NumJobs:             ec.NumJobs,
		CacheBlockSize:      DefaultCacheBlockSize,
	}
}

// LoadConfig reads and parses a YAML config file at filePath, overlaying it
// onto DefaultConfig() for any field the file omits being the zero value is
// indistinguishable from "use the default"; callers that need an explicit
// override should set every field they care about.
func LoadConfig(filePath string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
	}

	return &config, nil
}

// estimatorConfig projects the estimator-relevant fields of Config into an
// estimator.Config.
func (c Config) estimatorConfig() estimator.Config {
	return estimator.Config{
		RDMAThreshold:       c.RDMAThreshold,
		IOPSThreshold:       c.IOPSThreshold,
		CongestionThreshold: c.CongestionThreshold,
		WarmupPeriod:        c.WarmupPeriod,
		FailureGracePeriod:  c.FailureGracePeriod,
		IODepth:             c.IODepth,
		NumJobs:             c.NumJobs,
	}
}
