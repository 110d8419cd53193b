package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workspace-mcp/internal/google"
	"github.com/teemow/workspace-mcp/internal/instrumentation"
	"github.com/teemow/workspace-mcp/internal/logging"
	"github.com/teemow/workspace-mcp/internal/resources"
	"github.com/teemow/workspace-mcp/internal/server"
	"github.com/teemow/workspace-mcp/internal/session"
	"github.com/teemow/workspace-mcp/internal/tools/auth_tools"
	"github.com/teemow/workspace-mcp/internal/tools/calendar_tools"
	"github.com/teemow/workspace-mcp/internal/tools/drive_tools"
	"github.com/teemow/workspace-mcp/internal/tools/gmail_tools"
)

// Transport names accepted by --transport.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

const (
	defaultHTTPAddr    = "127.0.0.1:8080"
	defaultMetricsAddr = ":9090"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveOptions collects the serve command's flags.
type serveOptions struct {
	transport        string
	httpAddr         string
	allowRemote      bool
	disableStreaming bool
	watchCredentials bool
	rateLimit        float64
	rateLimitBurst   int
	metrics          MetricsConfig
	session          sessionOptions
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing Google Workspace
tools (Drive, Calendar, Gmail) to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Authentication:
  The server acts on behalf of a single Google account. Place an OAuth client
  file ("Desktop app" client from the Google Cloud Console) at the path shown by
  "workspace-mcp auth paths", then sign in with "workspace-mcp auth login" or
  the google_authenticate tool. A stored session is resumed silently on startup.

  The HTTP transport has no authentication of its own. It only binds to
  loopback addresses unless --allow-remote is given.

Configuration:
  Flag defaults can be kept in config.yaml next to the OAuth client file
  (keys are flag names). Command-line flags win over the environment, which
  wins over the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit := changedFlags(cmd)
			if err := applyConfigFile(cmd, configFile, explicit("config"), explicit); err != nil {
				return err
			}
			loadMetricsEnv(explicit, &opts.metrics, os.Getenv)
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", defaultConfigFile(), "YAML file with default flag values (keys are flag names)")

	cmd.Flags().StringVar(&opts.transport, "transport", TransportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", defaultHTTPAddr, "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.allowRemote, "allow-remote", false, "WARNING: Allow the HTTP transport to listen on non-loopback addresses. The MCP endpoint is unauthenticated.")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().BoolVar(&opts.watchCredentials, "watch-credentials", true, "Reload the session when the credential files change on disk (e.g. after \"workspace-mcp auth login\")")
	cmd.Flags().Float64Var(&opts.rateLimit, "rate-limit", 10, "Requests per second allowed per client on the MCP HTTP endpoint (0 disables)")
	cmd.Flags().IntVar(&opts.rateLimitBurst, "rate-limit-burst", 20, "Burst size for --rate-limit")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", defaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	addSessionFlags(cmd, &opts.session)

	return cmd
}

// loadMetricsEnv applies METRICS_ENABLED and METRICS_ADDR when the matching
// flag was not given on the command line. The environment wins over the
// config file.
func loadMetricsEnv(explicit func(string) bool, cfg *MetricsConfig, getenv func(string) string) {
	if !explicit("metrics-enabled") {
		if v := getenv("METRICS_ENABLED"); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				cfg.Enabled = enabled
			} else {
				slog.Warn("Ignoring invalid METRICS_ENABLED value", "value", v)
			}
		}
	}
	if !explicit("metrics-addr") {
		if addr := getenv("METRICS_ADDR"); addr != "" {
			cfg.Addr = addr
		}
	}
}

// validateServeOptions rejects combinations that cannot work before any
// listener is opened.
func validateServeOptions(opts serveOptions, instrConfig instrumentation.Config) error {
	switch opts.transport {
	case TransportStdio:
		// stdout carries the protocol.
		if instrConfig.WritesStdout() {
			return errors.New("the stdout metrics/tracing exporter cannot be used with the stdio transport")
		}
	case TransportStreamableHTTP:
		if err := server.ValidateListenAddr(opts.httpAddr, opts.allowRemote); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", opts.transport, TransportStdio, TransportStreamableHTTP)
	}
	return nil
}

func runServe(opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := setupLogging(opts.session)
	if err != nil {
		return err
	}

	// Initialize instrumentation provider
	instrConfig, err := instrumentation.LoadConfig(os.Getenv)
	if err != nil {
		return fmt.Errorf("invalid instrumentation configuration: %w", err)
	}
	instrConfig.ServiceVersion = version

	if err := validateServeOptions(opts, instrConfig); err != nil {
		return err
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if opts.transport != TransportStdio && opts.metrics.Enabled && provider.PrometheusEnabled() {
		metricsServer, err = startMetricsServer(opts.metrics, provider, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("Error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	var metrics *instrumentation.Metrics
	var audit *instrumentation.AuditLogger
	if provider.Enabled() {
		metrics = provider.Metrics()
		audit = instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
	}

	manager, err := newSessionManager(opts.session, logger, metrics, audit)
	if err != nil {
		return err
	}

	serverContext, err := server.NewServerContext(shutdownCtx, manager)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	serverContext.SetMetrics(metrics)
	serverContext.SetAuditLogger(audit)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("Error during server context shutdown", logging.Err(err))
		}
	}()

	// Resume a stored session without any user interaction.
	if manager.Initialize(shutdownCtx) {
		logger.Info("Resumed Google session", logging.State(manager.State().String()))
	} else {
		logger.Info("No active Google session; use the google_authenticate tool to sign in",
			logging.State(manager.State().String()),
			logging.Path(manager.IdentityPath()))
	}

	if opts.watchCredentials {
		watcher, err := session.Watch(shutdownCtx, manager, 0)
		if err != nil {
			logger.Warn("Credential file watching unavailable", logging.Err(err))
		} else {
			defer func() { _ = watcher.Close() }()
		}
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("workspace-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	// Register all tools and resources
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	// Start the appropriate server based on transport type
	switch opts.transport {
	case TransportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, opts, metrics, logger)
	}
}

// startMetricsServer starts the Prometheus endpoint and waits until it is
// listening.
func startMetricsServer(cfg MetricsConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(cfg.Addr, provider, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}
	if err := metricsServer.Listen(); err != nil {
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	}

	go func() {
		if err := metricsServer.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", logging.Err(err))
		}
	}()
	return metricsServer, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Auth",
			register: func() error {
				return auth_tools.RegisterAuthTools(mcpSrv, ctx)
			},
		},
		{
			name: "Drive",
			register: func() error {
				return drive_tools.RegisterDriveTools(mcpSrv, ctx)
			},
		},
		{
			name: "Calendar",
			register: func() error {
				return calendar_tools.RegisterCalendarTools(mcpSrv, ctx)
			},
		},
		{
			name: "Gmail",
			register: func() error {
				return gmail_tools.RegisterGmailTools(mcpSrv, ctx)
			},
		},
		{
			name: "User Resources",
			register: func() error {
				return resources.RegisterUserResources(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts serveOptions, metrics *instrumentation.Metrics, logger *slog.Logger) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, opts.disableStreaming)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	health := server.NewHealthChecker(sc)
	httpServer.SetHealthChecker(health)
	httpServer.SetMetrics(metrics)
	if opts.rateLimit > 0 {
		rl := server.NewRateLimiter(opts.rateLimit, opts.rateLimitBurst, server.DefaultRateLimitCleanup)
		defer rl.Close()
		httpServer.SetRateLimiter(rl)
	}

	if opts.allowRemote {
		logger.Warn("HTTP transport accepts remote connections; the MCP endpoint has no authentication",
			"addr", opts.httpAddr)
	}
	logger.Info("Starting workspace-mcp MCP server",
		"transport", opts.transport,
		"addr", opts.httpAddr,
		"endpoint", server.MCPEndpointPath,
		"health", "/healthz, /readyz")

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(opts.httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		health.Drain()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server stopped")
	return nil
}

// sessionOptions are the flags shared by every command that builds a
// session manager.
type sessionOptions struct {
	debug           bool
	logFormat       string
	callbackTimeout time.Duration
	noBrowser       bool
}

func addSessionFlags(cmd *cobra.Command, opts *sessionOptions) {
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", logging.FormatText, "Log output format: text or json (logs always go to stderr)")
	cmd.Flags().DurationVar(&opts.callbackTimeout, "callback-timeout", session.DefaultCallbackTimeout, "How long to wait for the browser sign-in to complete")
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Do not open a browser for sign-in; log the consent URL instead")
}

func setupLogging(opts sessionOptions) (*slog.Logger, error) {
	format, err := logging.ParseFormat(opts.logFormat)
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	return logging.Setup(logging.Options{Level: level, Format: format}), nil
}

// newSessionManager builds the manager over the platform credential paths.
func newSessionManager(opts sessionOptions, logger *slog.Logger, metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger) (*session.Manager, error) {
	store := google.NewCredentialStore(google.DefaultPaths(), logging.NewSlogAdapter(logger))
	manager, err := session.NewManager(session.Config{
		Store:           store,
		CallbackTimeout: opts.callbackTimeout,
		DisableBrowser:  opts.noBrowser,
		Logger:          logger,
		Metrics:         metrics,
		AuditLogger:     audit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}
	return manager, nil
}
