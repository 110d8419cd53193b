package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/workspace-mcp/internal/logging"
)

// ToolCall is the audit record of one MCP tool call. User is PII and is
// hashed unless the logger was built with IncludePII.
type ToolCall struct {
	Tool      string
	Service   string
	Operation string
	User      string
	Duration  time.Duration
	// Failed is set for tool-level errors that carry no Go error, such as
	// results flagged IsError.
	Failed bool
	Err    error
}

// Status reports the call as StatusSuccess or StatusError.
func (c ToolCall) Status() string {
	if c.Failed || c.Err != nil {
		return StatusError
	}
	return StatusSuccess
}

// AuthEvent records the end of a sign-in flow or a logout.
type AuthEvent struct {
	Flow    string
	Outcome string
	User    string
	Err     error
}

// AuditLogger writes audit records. A nil or disabled AuditLogger drops
// everything.
type AuditLogger struct {
	logger     *slog.Logger
	enabled    bool
	includePII bool
}

// NewAuditLogger returns an enabled logger that hashes users.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		enabled:    config.Enabled,
		includePII: config.IncludePII,
	}
}

func (al *AuditLogger) active() bool {
	return al != nil && al.enabled
}

// ToolCall logs c, attaching the trace and span IDs found in ctx.
func (al *AuditLogger) ToolCall(ctx context.Context, c ToolCall) {
	if !al.active() {
		return
	}

	attrs := []any{
		slog.String(logging.KeyTool, c.Tool),
		slog.String(logging.KeyStatus, c.Status()),
		slog.Duration("duration", c.Duration),
	}
	if c.Service != "" {
		attrs = append(attrs,
			slog.String(logging.KeyService, c.Service),
			slog.String(logging.KeyOperation, c.Operation))
	}
	attrs = append(attrs, al.user(c.User)...)
	if traceID := GetTraceID(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID), slog.String("span_id", GetSpanID(ctx)))
	}
	if c.Err != nil {
		attrs = append(attrs, logging.Err(c.Err))
	}

	level := slog.LevelInfo
	if c.Status() == StatusError {
		level = slog.LevelWarn
	}
	al.logger.Log(ctx, level, "tool_call", attrs...)
}

// Auth logs ev at warning level when it carries an error.
func (al *AuditLogger) Auth(ctx context.Context, ev AuthEvent) {
	if !al.active() {
		return
	}

	attrs := []any{
		slog.String(logging.KeyFlow, ev.Flow),
		logging.Outcome(ev.Outcome),
	}
	attrs = append(attrs, al.user(ev.User)...)

	level := slog.LevelInfo
	if ev.Err != nil {
		attrs = append(attrs, logging.Err(ev.Err))
		level = slog.LevelWarn
	}
	al.logger.Log(ctx, level, "auth_event", attrs...)
}

func (al *AuditLogger) user(email string) []any {
	switch {
	case email == "":
		return nil
	case al.includePII:
		return []any{slog.String("user", email)}
	default:
		return []any{logging.UserHash(email), slog.String("user_domain", UserDomain(email))}
	}
}
