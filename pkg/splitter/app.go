package splitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/common/promslog"
	promslogflag "github.com/prometheus/common/promslog/flag"
	"github.com/prometheus/common/version"

	"github.com/netcas/splitter/pkg/bandwidth"
	"github.com/netcas/splitter/pkg/iopsstat"
	"github.com/netcas/splitter/pkg/rdmastat"
)

// AppName is the daemon's kingpin app name.
const AppName = "netcas-splitterd"

// DefaultTickInterval is how often OnTick samples the RDMA/IOPS sources and
// re-runs the estimator's state machine, absent a --splitter.tick-interval
// override.
const DefaultTickInterval = 100 * time.Millisecond

// App is the `netcas-splitterd` cli.
type App struct {
	appName string
	App     *kingpin.Application
}

// NewApp returns a new App instance.
func NewApp() (*App, error) {
	return &App{
		appName: AppName,
		App:     kingpin.New(AppName, "Adaptive cache/RDMA-backend request splitter daemon."),
	}, nil
}

// Main is the entry point of the `netcas-splitterd` command.
func (a *App) Main() error {
	resolveConfig := AddFlags(a.App)

	configFile := a.App.Flag(
		"config.file",
		"Path to a YAML config file overlaying the splitter.* flag defaults.",
	).Default("").String()

	tickInterval := a.App.Flag(
		"splitter.tick-interval",
		"How often to sample sources and re-run the estimator.",
	).Default(DefaultTickInterval.String()).Duration()

	webListenAddresses := a.App.Flag(
		"web.listen-address",
		"Addresses on which to expose metrics.",
	).Default(":9110").Strings()

	webSystemdSocket := a.App.Flag(
		"web.systemd-socket",
		"Use systemd socket activation listeners instead of port listeners (Linux only).",
	).Default("false").Bool()

	webConfigFile := a.App.Flag(
		"web.config.file",
		"Path to configuration file that can enable TLS or authentication.",
	).Default("").String()

	metricsPath := a.App.Flag(
		"web.telemetry-path",
		"Path under which to expose metrics.",
	).Default("/metrics").String()

	maxRequests := a.App.Flag(
		"web.max-requests",
		"Maximum number of parallel scrape requests. Use 0 to disable.",
	).Default("40").Int()

	disableExporterMetrics := a.App.Flag(
		"web.disable-exporter-metrics",
		"Exclude metrics about the daemon process itself (process_*, go_*).",
	).Default("false").Bool()

	cacheStatsFile := a.App.Flag(
		"splitter.cache-stats-file",
		"Path to a JSON cache-stats file ({\"cache_reads\":N,\"core_reads\":N}); empty disables the cache IOPS source.",
	).Default("").String()

	promslogConfig := &promslog.Config{}
	promslogflag.AddFlags(a.App, promslogConfig)
	a.App.Version(version.Print(a.appName))
	a.App.UsageWriter(os.Stdout)
	a.App.HelpFlag.Short('h')

	if _, err := a.App.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("failed to parse CLI flags: %w", err)
	}

	logger := promslog.New(promslogConfig)
	logger.Info("starting "+a.appName, "version", version.Info())

	cfg := resolveConfig()
	if *configFile != "" {
		fileCfg, err := LoadConfig(*configFile)
		if err != nil {
			logger.Error("failed to load config file", "err", err)

			return err
		}

		cfg = *fileCfg
	}

	profile, err := loadProfile(cfg.BandwidthProfileFile)
	if err != nil {
		logger.Error("failed to load bandwidth profile", "err", err)

		return err
	}

	if profile.Bandwidth(cfg.IODepth, cfg.NumJobs, 100)+profile.Bandwidth(cfg.IODepth, cfg.NumJobs, 0) == 0 {
		logger.Warn(
			"bandwidth profile has no data for the configured workload fingerprint, ratio will stay at its initial value",
			"io_depth", cfg.IODepth, "num_jobs", cfg.NumJobs, "err", ErrProfileMiss,
		)
	}

	sources := buildSources(cfg, *cacheStatsFile, logger)

	core := NewCore(cfg, profile, sources, logger)

	server, err := NewServer(ServerConfig{
		Addresses:              *webListenAddresses,
		WebSystemdSocket:       *webSystemdSocket,
		WebConfigFile:          *webConfigFile,
		MetricsPath:            *metricsPath,
		MaxRequests:            *maxRequests,
		IncludeExporterMetrics: !*disableExporterMetrics,
	}, core, logger)
	if err != nil {
		logger.Error("failed to create metrics server", "err", err)

		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*tickInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case now := <-ticker.C:
				core.OnTick(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("failed to start server", "err", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to gracefully shutdown server", "err", err)
	}

	logger.Info("server exiting")

	return nil
}

// loadProfile reads the bandwidth profile from path, or falls back to the
// embedded default when path is empty.
func loadProfile(path string) (*bandwidth.Profile, error) {
	if path == "" {
		return bandwidth.Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bandwidth profile file %s: %w", path, err)
	}
	defer f.Close()

	return bandwidth.Parse(f)
}

// buildSources wires the real-world default data sources from cfg: the
// file-based RDMA source when an RDMA throughput file is configured, else
// the sysfs InfiniBand source (RDMA stays unwired if that cannot be
// opened); the block-device disk-stats source; and the JSON cache-stats
// source when a cache-stats file is given.
func buildSources(cfg Config, cacheStatsFile string, logger *slog.Logger) Sources {
	var rdmaSource RDMASource

	if cfg.RDMAThroughputFile == "" {
		sysfsSource, err := rdmastat.NewSysfsSource("/sys", cfg.RDMALatencyFile)
		if err != nil {
			logger.Warn("sysfs InfiniBand source unavailable, RDMA signal disabled", "err", err)
		} else {
			rdmaSource = sysfsSource
		}
	} else {
		rdmaSource = &rdmastat.FileSource{
			LatencyPath:    cfg.RDMALatencyFile,
			ThroughputPath: cfg.RDMAThroughputFile,
		}
	}

	var cacheReader CacheStatsReader
	if cacheStatsFile != "" {
		cacheReader = &jsonCacheStatsReader{path: cacheStatsFile}
	}

	return Sources{
		RDMA:  rdmaSource,
		Cache: cacheReader,
		Disk: &iopsstat.FileDiskStatsReader{
			Path: cfg.DiskStatsFile,
		},
	}
}

// jsonCacheStatsReader reads a CacheStats snapshot from a JSON file of the
// shape {"cache_reads":N,"core_reads":N}, opened fresh on every call per the
// scoped-acquisition discipline of the other file-backed sources.
type jsonCacheStatsReader struct {
	path string
}

func (r *jsonCacheStatsReader) ReadCacheStats() (CacheStats, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return CacheStats{}, fmt.Errorf("%w: reading cache stats file %s: %w", ErrStatsSourceUnavailable, r.path, err)
	}

	var stats struct {
		CacheReads uint64 `json:"cache_reads"`
		CoreReads  uint64 `json:"core_reads"`
	}

	if err := json.Unmarshal(data, &stats); err != nil {
		return CacheStats{}, fmt.Errorf("%w: parsing cache stats file %s: %w", ErrStatsSourceUnavailable, r.path, err)
	}

	return CacheStats{CacheReads: stats.CacheReads, CoreReads: stats.CoreReads}, nil
}
