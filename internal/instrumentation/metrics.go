package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrOperation  = "operation"
	attrService    = "service"
	attrResult     = "result"
	attrFlow       = "flow"
	attrOutcome    = "outcome"
	attrState      = "state"
	attrTool       = "tool"
	attrUserDomain = "user_domain"
)

// Metrics provides methods for recording observability metrics.
// A nil *Metrics, or one returned for disabled instrumentation, records nothing.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// OAuth and session metrics
	oauthAuthTotal          metric.Int64Counter
	oauthTokenRefreshTotal  metric.Int64Counter
	oauthCallbackTotal      metric.Int64Counter
	sessionTransitionsTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

type counterSpec struct {
	dst  *metric.Int64Counter
	name string
	desc string
	unit string
}

type histogramSpec struct {
	dst     *metric.Float64Histogram
	name    string
	desc    string
	buckets []float64
}

// NewMetrics creates a new Metrics instance with all instruments registered on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	counters := []counterSpec{
		{&m.httpRequestsTotal, "http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.googleAPIOperationsTotal, "google_api_operations_total", "Total number of Google API operations", "{operation}"},
		{&m.oauthAuthTotal, "oauth_auth_total", "Total number of OAuth authentication attempts", "{attempt}"},
		{&m.oauthTokenRefreshTotal, "oauth_token_refresh_total", "Total number of OAuth token refresh attempts", "{attempt}"},
		{&m.oauthCallbackTotal, "oauth_callback_total", "Total number of consent flows resolved, by outcome", "{flow}"},
		{&m.sessionTransitionsTotal, "session_transitions_total", "Total number of session state transitions", "{transition}"},
		{&m.toolInvocationsTotal, "mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	apiBuckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
	histograms := []histogramSpec{
		{&m.httpRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds",
			[]float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}},
		{&m.googleAPIOperationDuration, "google_api_operation_duration_seconds", "Google API operation duration in seconds", apiBuckets},
		{&m.toolDuration, "mcp_tool_duration_seconds", "MCP tool execution duration in seconds", apiBuckets},
	}
	for _, h := range histograms {
		histogram, err := meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = histogram
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Google service name (drive, calendar, gmail, oauth2)
//   - operation: Operation type (list, get, revoke, etc.)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthAuth records an authentication attempt. flow is one of the
// Flow* constants and result one of the OAuthResult* constants.
func (m *Metrics) RecordOAuthAuth(ctx context.Context, flow, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}
	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrFlow, flow),
		attribute.String(attrResult, result),
	))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}
	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordCallbackOutcome records how a browser consent flow ended
// (authorized, denied, rejected, failed, timeout).
func (m *Metrics) RecordCallbackOutcome(ctx context.Context, outcome string) {
	if m == nil || m.oauthCallbackTotal == nil {
		return
	}
	m.oauthCallbackTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RecordSessionTransition records the session manager entering state.
func (m *Metrics) RecordSessionTransition(ctx context.Context, state string) {
	if m == nil || m.sessionTransitionsTotal == nil {
		return
	}
	m.sessionTransitionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrState, state)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "google_authenticate", "drive_list_files")
//   - status: Result status ("success" or "error")
//   - userEmail: signed-in user, reduced to its domain and only attached with detailed labels
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, userEmail string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && userEmail != "" {
		attrs = append(attrs, attribute.String(attrUserDomain, UserDomain(userEmail)))
	}

	opt := metric.WithAttributes(attrs...)
	m.toolInvocationsTotal.Add(ctx, 1, opt)
	m.toolDuration.Record(ctx, duration.Seconds(), opt)
}
