package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workspace-mcp/internal/instrumentation"
)

// MCPEndpointPath is where the streamable HTTP transport is mounted.
const MCPEndpointPath = "/mcp"

// HTTPServer serves the MCP streamable HTTP endpoint and the health probes.
// The endpoint has no authentication layer of its own: every caller acts
// with this installation's Google session.
type HTTPServer struct {
	mcpServer        *mcpserver.MCPServer
	disableStreaming bool
	healthChecker    *HealthChecker
	metrics          *instrumentation.Metrics
	rateLimiter      *RateLimiter

	mu         sync.Mutex
	httpServer *http.Server
}

// NewHTTPServer creates an HTTP server for mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, disableStreaming bool) (*HTTPServer, error) {
	if mcpServer == nil {
		return nil, fmt.Errorf("MCP server is required")
	}
	return &HTTPServer{
		mcpServer:        mcpServer,
		disableStreaming: disableStreaming,
	}, nil
}

// SetHealthChecker mounts /healthz, /readyz and /healthz/detailed.
func (s *HTTPServer) SetHealthChecker(h *HealthChecker) {
	s.healthChecker = h
}

// SetMetrics enables request metrics on the MCP endpoint.
func (s *HTTPServer) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// SetRateLimiter limits requests to the MCP endpoint. Health probes are not
// limited.
func (s *HTTPServer) SetRateLimiter(rl *RateLimiter) {
	s.rateLimiter = rl
}

// Handler builds the request router.
func (s *HTTPServer) Handler() http.Handler {
	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath(MCPEndpointPath),
	}
	if s.disableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...)

	var mcpHandler http.Handler = streamable
	if s.rateLimiter != nil {
		mcpHandler = s.rateLimiter.Middleware(mcpHandler)
	}

	mux := http.NewServeMux()
	mux.Handle(MCPEndpointPath, s.instrument(MCPEndpointPath, mcpHandler))
	if s.healthChecker != nil {
		s.healthChecker.RegisterHealthEndpoints(mux)
	}
	return mux
}

// Start listens on addr and serves until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown.
func (s *HTTPServer) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: google_authenticate holds its request open for
		// the whole consent callback window.
		IdleTimeout: 120 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	return srv.Serve(ln)
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (s *HTTPServer) instrument(path string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// ValidateListenAddr rejects non-loopback listen addresses unless
// allowRemote is set. An empty host listens on every interface.
func ValidateListenAddr(addr string, allowRemote bool) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if allowRemote {
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("listen address %q is not a loopback address; the MCP endpoint acts with your Google session "+
		"and has no authentication, pass --allow-remote to expose it anyway", addr)
}
