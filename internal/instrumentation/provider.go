package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the meter and tracer providers of the process.
type Provider struct {
	config         Config
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *Metrics
	prometheus     bool
}

// NewProvider builds the exporters selected by config and installs the
// resulting providers as the otel globals. A disabled config yields a
// provider whose Metrics records nothing.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if !config.Enabled {
		return &Provider{config: config, metrics: &Metrics{}}, nil
	}

	res, err := newResource(ctx, config)
	if err != nil {
		return nil, err
	}

	reader, err := newMetricReader(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics exporter: %w", err)
	}

	tp, err := newTracerProvider(ctx, config, res)
	if err != nil {
		_ = reader.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize tracing exporter: %w", err)
	}

	p := &Provider{
		config:         config,
		meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader)),
		tracerProvider: tp,
		prometheus:     config.MetricsExporter == ExporterPrometheus,
	}

	p.metrics, err = NewMetrics(p.meterProvider.Meter(config.ServiceName), config.DetailedLabels)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create metrics recorder: %w", err), p.Shutdown(ctx))
	}

	otel.SetMeterProvider(p.meterProvider)
	otel.SetTracerProvider(p.tracerProvider)
	return p, nil
}

func newResource(ctx context.Context, config Config) (*resource.Resource, error) {
	instance := config.ServiceInstanceID
	if instance == "" {
		instance, _ = os.Hostname()
	}

	attrs := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	}
	if instance != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceInstanceID(instance)))
	}

	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// newMetricReader returns the reader for the configured exporter. The
// Prometheus exporter registers with the default registry, which the
// metrics server serves.
func newMetricReader(ctx context.Context, config Config) (sdkmetric.Reader, error) {
	switch config.MetricsExporter {
	case ExporterPrometheus, "":
		exp, err := prometheus.New()
		if err != nil {
			return nil, err
		}
		return exp, nil

	case ExporterOTLP:
		if config.OTLPEndpoint == "" {
			return nil, fmt.Errorf("%s is required for the otlp metrics exporter", EnvOTLPEndpoint)
		}
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.OTLPEndpoint)}
		if config.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case ExporterStdout:
		slog.Warn("stdout metrics exporter is meant for debugging", slog.String("exporter", ExporterStdout))
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(DefaultMetricInterval)), nil
	}
	return nil, fmt.Errorf("unsupported metrics exporter: %s", config.MetricsExporter)
}

// newTracerProvider returns a never-sampling provider when tracing is off so
// that spans stay cheap.
func newTracerProvider(ctx context.Context, config Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var exp sdktrace.SpanExporter
	var err error

	switch config.TracingExporter {
	case ExporterNone, "":
		return sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		), nil

	case ExporterOTLP:
		if config.OTLPEndpoint == "" {
			return nil, fmt.Errorf("%s is required for the otlp tracing exporter", EnvOTLPEndpoint)
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.OTLPEndpoint)}
		if config.OTLPInsecure {
			slog.Warn("OTLP traces are sent without TLS", slog.String("endpoint", config.OTLPEndpoint))
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err = otlptracehttp.New(ctx, opts...)

	case ExporterStdout:
		slog.Warn("stdout trace exporter is meant for debugging", slog.String("exporter", ExporterStdout))
		exp, err = stdouttrace.New()

	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", config.TracingExporter)
	}
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.TraceSamplingRate))),
	), nil
}

// Metrics returns the recorder handed to the session manager and tools.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Tracer returns a named tracer, or a no-op tracer when disabled.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tracerProvider.Tracer(name)
}

// PrometheusEnabled reports whether metrics go to the Prometheus default
// registry.
func (p *Provider) PrometheusEnabled() bool {
	return p.prometheus
}

// Enabled reports whether instrumentation is on.
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
