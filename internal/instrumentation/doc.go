// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the workspace-mcp server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total, http_request_duration_seconds: streamable HTTP transport
//
// Google API Metrics:
//   - google_api_operations_total, google_api_operation_duration_seconds
//
// Session Metrics:
//   - oauth_auth_total: authentication attempts by flow (browser, code) and result
//   - oauth_callback_total: browser consent flows by outcome
//   - oauth_token_refresh_total: token refresh attempts by result
//   - session_transitions_total: session manager state changes
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// # Configuration
//
// LoadConfig reads the environment:
//   - INSTRUMENTATION_ENABLED (default true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default 0.1)
//   - OTEL_SERVICE_NAME, OTEL_SERVICE_INSTANCE_ID
//   - METRICS_DETAILED_LABELS, AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// A variable that is set but unparsable is an error.
//
// # Example Usage
//
//	config, err := instrumentation.LoadConfig(os.Getenv)
//	if err != nil {
//		return err
//	}
//	provider, err := instrumentation.NewProvider(ctx, config)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordOAuthAuth(ctx, instrumentation.FlowBrowser, instrumentation.OAuthResultSuccess)
package instrumentation
