package splitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	promcollectors "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/exporter-toolkit/web"
)

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	Addresses              []string
	WebSystemdSocket       bool
	WebConfigFile          string
	MetricsPath            string
	IncludeExporterMetrics bool
	MaxRequests            int
}

// Server serves the Core's metrics over HTTP.
type Server struct {
	logger    *slog.Logger
	server    *http.Server
	webConfig *web.FlagConfig
	registry  *prometheus.Registry
}

// NewServer builds a Server exposing core at cfg.MetricsPath (default
// "/metrics" if empty).
func NewServer(cfg ServerConfig, core *Core, logger *slog.Logger) (*Server, error) {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	registry := prometheus.NewRegistry()

	if cfg.IncludeExporterMetrics {
		registry.MustRegister(
			promcollectors.NewProcessCollector(promcollectors.ProcessCollectorOpts{}),
			promcollectors.NewGoCollector(),
		)
	}

	if err := registry.Register(core); err != nil {
		return nil, fmt.Errorf("registering splitter collector: %w", err)
	}

	router := mux.NewRouter()
	router.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog:            slog.NewLogLogger(logger.Handler(), slog.LevelError),
		ErrorHandling:       promhttp.ContinueOnError,
		MaxRequestsInFlight: cfg.MaxRequests,
	}))

	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("netcas-splitterd is healthy"))
	})

	addr := ":9110"
	if len(cfg.Addresses) > 0 {
		addr = cfg.Addresses[0]
	}

	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			ReadHeaderTimeout: 2 * time.Second,
		},
		webConfig: &web.FlagConfig{
			WebListenAddresses: &cfg.Addresses,
			WebSystemdSocket:   &cfg.WebSystemdSocket,
			WebConfigFile:      &cfg.WebConfigFile,
		},
		registry: registry,
	}, nil
}

// Start launches the HTTP server; it blocks until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting netcas-splitterd metrics server", "addr", s.server.Addr)

	if err := web.ListenAndServe(s.server, s.webConfig, s.logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("metrics server failed", "err", err)

		return err
	}

	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping netcas-splitterd metrics server")

	return s.server.Shutdown(ctx)
}
