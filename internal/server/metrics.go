package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/workspace-mcp/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is used when no metrics address is given.
	DefaultMetricsAddr = ":9090"

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP servers.
	DefaultShutdownTimeout = 30 * time.Second

	metricsTimeout     = 10 * time.Second
	metricsIdleTimeout = 60 * time.Second
)

// MetricsServer exposes the Prometheus registry on its own listener, away
// from the MCP endpoint.
type MetricsServer struct {
	addr     string
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server
}

// NewMetricsServer returns a server for the metrics of provider, which must
// export to Prometheus. An empty addr selects DefaultMetricsAddr.
func NewMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*MetricsServer, error) {
	switch {
	case provider == nil:
		return nil, errors.New("instrumentation provider is required for the metrics server")
	case !provider.Enabled():
		return nil, errors.New("instrumentation is disabled")
	case !provider.PrometheusEnabled():
		return nil, errors.New("metrics are not exported to prometheus")
	}
	if addr == "" {
		addr = DefaultMetricsAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsServer{
		addr:     addr,
		gatherer: prometheus.DefaultGatherer,
		logger:   logger,
	}, nil
}

// Handler serves /metrics and a trivial /healthz.
func (s *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Listen binds the configured address so that bind errors surface before
// Serve runs in the background.
func (s *MetricsServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("metrics server is already listening")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: metricsTimeout,
		WriteTimeout:      metricsTimeout,
		IdleTimeout:       metricsIdleTimeout,
	}
	return nil
}

// Serve blocks serving on the listener bound by Listen. It returns
// http.ErrServerClosed after Shutdown.
func (s *MetricsServer) Serve() error {
	s.mu.Lock()
	ln, srv := s.listener, s.srv
	s.mu.Unlock()
	if ln == nil {
		return errors.New("metrics server is not listening")
	}

	s.logger.Info("Metrics server listening", slog.String("addr", ln.Addr().String()))
	return srv.Serve(ln)
}

// Shutdown stops the server. It is a no-op before Listen.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, ln := s.srv, s.listener
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	// Shutdown does not close a listener Serve never accepted on.
	_ = ln.Close()
	return err
}

// Addr returns the bound address once listening and the configured one
// before that.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
