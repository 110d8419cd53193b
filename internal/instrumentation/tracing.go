package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for all spans emitted by the server.
const TracerName = "github.com/teemow/workspace-mcp"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"
	SpanAttrFlow      = "auth.flow"
	SpanAttrOutcome   = "auth.outcome"
	SpanAttrState     = "session.state"
)

// The global provider is looked up per span so that spans follow a provider
// installed after package init.
func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a server span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts a client span for a Google API operation.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartAuthSpan starts a span covering one authentication flow.
func StartAuthSpan(ctx context.Context, flow string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "auth."+flow,
		trace.WithAttributes(attribute.String(SpanAttrFlow, flow)),
	)
}

// SetSpanError records err on span. A nil error is ignored.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID of the span in ctx, or "".
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
