package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/api/option"

	"github.com/teemow/workspace-mcp/internal/calendar"
	"github.com/teemow/workspace-mcp/internal/drive"
	"github.com/teemow/workspace-mcp/internal/gmail"
	"github.com/teemow/workspace-mcp/internal/instrumentation"
	"github.com/teemow/workspace-mcp/internal/session"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	session *session.Manager

	metrics       *instrumentation.Metrics
	auditLogger   *instrumentation.AuditLogger
	clientOptions []option.ClientOption

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context owning the given session manager.
func NewServerContext(ctx context.Context, manager *session.Manager) (*ServerContext, error) {
	if manager == nil {
		return nil, errors.New("session manager is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		session: manager,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Session returns the session manager shared by all handlers.
func (sc *ServerContext) Session() *session.Manager {
	return sc.session
}

// SetMetrics sets the metrics recorder used by tool handlers.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger used by tool handlers.
func (sc *ServerContext) SetAuditLogger(l *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = l
}

// AuditLogger returns the audit logger, or nil when auditing is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetClientOptions sets extra options applied to every Google API client,
// for example an alternative endpoint.
func (sc *ServerContext) SetClientOptions(opts ...option.ClientOption) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.clientOptions = opts
}

func (sc *ServerContext) options() []option.ClientOption {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return append([]option.ClientOption(nil), sc.clientOptions...)
}

// Clients are built per call so that a re-authentication is picked up
// immediately.

// DriveClient returns a Drive client bound to the live session.
func (sc *ServerContext) DriveClient(ctx context.Context) (*drive.Client, error) {
	client, err := drive.NewClient(ctx, sc.session, sc.options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}
	return client, nil
}

// CalendarClient returns a Calendar client bound to the live session.
func (sc *ServerContext) CalendarClient(ctx context.Context) (*calendar.Client, error) {
	client, err := calendar.NewClient(ctx, sc.session, sc.options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar client: %w", err)
	}
	return client, nil
}

// GmailClient returns a Gmail client bound to the live session.
func (sc *ServerContext) GmailClient(ctx context.Context) (*gmail.Client, error) {
	client, err := gmail.NewClient(ctx, sc.session, sc.options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}
	return client, nil
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
