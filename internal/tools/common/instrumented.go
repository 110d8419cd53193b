package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/workspace-mcp/internal/instrumentation"
	"github.com/teemow/workspace-mcp/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrument(toolName, "", "", sc, handler)
}

// InstrumentedToolHandlerWithService is like InstrumentedToolHandler but also
// records the Google service and operation the tool calls, feeding
// google_api_operations_total alongside the tool metrics.
func InstrumentedToolHandlerWithService(toolName, serviceName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrument(toolName, serviceName, operation, sc, handler)
}

func instrument(toolName, serviceName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		result, err := handler(ctx, request)

		call := instrumentation.ToolCall{
			Tool:      toolName,
			Service:   serviceName,
			Operation: operation,
			Duration:  time.Since(start),
			Failed:    result != nil && result.IsError,
			Err:       err,
		}
		// The user is only known once a session has been used.
		if user := sc.Session().CachedUser(); user != nil {
			call.User = user.Email
		}

		switch {
		case err != nil:
			instrumentation.SetSpanError(span, err)
		case !call.Failed:
			instrumentation.SetSpanSuccess(span)
		}

		metrics := sc.Metrics()
		metrics.RecordToolInvocation(ctx, toolName, call.Status(), call.User, call.Duration)
		if serviceName != "" {
			metrics.RecordGoogleAPIOperation(ctx, serviceName, operation, call.Status(), call.Duration)
		}
		sc.AuditLogger().ToolCall(ctx, call)

		return result, err
	}
}
