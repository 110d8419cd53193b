package instrumentation

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config controls metrics, tracing and audit logging.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// ServiceInstanceID defaults to the hostname when empty.
	ServiceInstanceID string

	// Enabled turns the whole provider on or off. Disabled providers hand
	// out a Metrics value whose recorders do nothing.
	Enabled bool

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string
	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port without a scheme. TLS is used unless
	// OTLPInsecure is set.
	OTLPEndpoint string
	OTLPInsecure bool

	TraceSamplingRate float64

	// DetailedLabels attaches the signed-in user's email domain to auth
	// metrics. Leave it off unless the installation serves few domains.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the audit trail of tool calls and sign-ins.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs full email addresses instead of a hash and domain.
	IncludePII bool
}

// Environment variables read by LoadConfig.
const (
	EnvEnabled           = "INSTRUMENTATION_ENABLED"
	EnvServiceName       = "OTEL_SERVICE_NAME"
	EnvServiceInstanceID = "OTEL_SERVICE_INSTANCE_ID"
	EnvMetricsExporter   = "METRICS_EXPORTER"
	EnvTracingExporter   = "TRACING_EXPORTER"
	EnvOTLPEndpoint      = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure      = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvSamplingRate      = "OTEL_TRACES_SAMPLER_ARG"
	EnvDetailedLabels    = "METRICS_DETAILED_LABELS"
	EnvAuditEnabled      = "AUDIT_LOGGING_ENABLED"
	EnvAuditIncludePII   = "AUDIT_LOGGING_INCLUDE_PII"
)

// DefaultConfig returns the built-in configuration without looking at the
// environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:       "workspace-mcp",
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
		AuditLogging: AuditLoggingConfig{
			Enabled: true,
		},
	}
}

// LoadConfig overlays the environment onto DefaultConfig. Unlike a silent
// fallback, a variable that is set but cannot be parsed is an error naming
// the variable. The result is validated.
func LoadConfig(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	env := envReader{getenv: getenv}

	env.str(EnvServiceName, &cfg.ServiceName)
	env.str(EnvServiceInstanceID, &cfg.ServiceInstanceID)
	env.boolean(EnvEnabled, &cfg.Enabled)
	env.str(EnvMetricsExporter, &cfg.MetricsExporter)
	env.str(EnvTracingExporter, &cfg.TracingExporter)
	env.str(EnvOTLPEndpoint, &cfg.OTLPEndpoint)
	env.boolean(EnvOTLPInsecure, &cfg.OTLPInsecure)
	env.float(EnvSamplingRate, &cfg.TraceSamplingRate)
	env.boolean(EnvDetailedLabels, &cfg.DetailedLabels)
	env.boolean(EnvAuditEnabled, &cfg.AuditLogging.Enabled)
	env.boolean(EnvAuditIncludePII, &cfg.AuditLogging.IncludePII)

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}
	cfg.MetricsExporter = strings.ToLower(cfg.MetricsExporter)
	cfg.TracingExporter = strings.ToLower(cfg.TracingExporter)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

// Validate checks exporter names, the sampling rate and that an OTLP
// endpoint is present when an OTLP exporter is selected.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate)
	}
	if c.MetricsExporter != "" && !slices.Contains(metricsExporters, c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: %s", c.MetricsExporter, strings.Join(metricsExporters, ", "))
	}
	if c.TracingExporter != "" && !slices.Contains(tracingExporters, c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: %s", c.TracingExporter, strings.Join(tracingExporters, ", "))
	}
	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		return fmt.Errorf("%s is required when an otlp exporter is selected", EnvOTLPEndpoint)
	}
	return nil
}

// WritesStdout reports whether an enabled exporter prints to stdout.
func (c *Config) WritesStdout() bool {
	return c.Enabled && (c.MetricsExporter == ExporterStdout || c.TracingExporter == ExporterStdout)
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) str(key string, dst *string) {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		*dst = v
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: expected true or false", key, v))
		return
	}
	*dst = parsed
}

func (e *envReader) float(key string, dst *float64) {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: expected a number", key, v))
		return
	}
	*dst = parsed
}

// Metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	OAuthResultSuccess  = "success"
	OAuthResultFailure  = "failure"
	OAuthResultDenied   = "denied"
	OAuthResultRejected = "rejected"
	OAuthResultTimeout  = "timeout"

	FlowBrowser = "browser"
	FlowCode    = "code"
	FlowLogout  = "logout"

	ServiceOAuth2   = "oauth2"
	ServiceDrive    = "drive"
	ServiceCalendar = "calendar"
	ServiceGmail    = "gmail"
)

// Exporter names.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the push interval of the periodic exporters.
const DefaultMetricInterval = 10 * time.Second
