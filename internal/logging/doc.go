// Package logging provides structured logging utilities for workspace-mcp.
//
// All logging goes through the standard library's slog package. The helpers
// here keep attribute names consistent across the session manager, the MCP
// tool handlers and the HTTP transport.
//
// # Usage Patterns
//
// Install the process-wide handler once at startup. Output always goes to
// stderr because stdout carries the MCP stdio protocol:
//
//	logger := logging.Setup(logging.Options{Level: slog.LevelDebug})
//
// Attach standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "session.watch")
//	logger.Info("Credential files changed", logging.Path(path), logging.State("session_active"))
//
// # Security Considerations
//
//   - Tokens and authorization codes are never logged
//   - User emails are hashed via UserHash unless audit PII is explicitly enabled
package logging
