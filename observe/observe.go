package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/tariffops/observe/exporters"
)

// Config holds all configuration for the Observer.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// TracingConfig configures the tracing subsystem.
type TracingConfig struct {
	Enabled   bool    `envconfig:"ENABLED" default:"false"`
	Exporter  string  `envconfig:"EXPORTER" default:"none"` // otlp|stdout|none
	Endpoint  string  `envconfig:"ENDPOINT"`
	SamplePct float64 `envconfig:"SAMPLE_PCT" default:"1.0"`
}

// MetricsConfig configures the metrics subsystem.
type MetricsConfig struct {
	Enabled  bool   `envconfig:"ENABLED" default:"true"`
	Exporter string `envconfig:"EXPORTER" default:"prometheus"` // otlp|prometheus|stdout|none
	Endpoint string `envconfig:"ENDPOINT"`
}

// LoggingConfig configures the logging subsystem.
type LoggingConfig struct {
	Enabled bool   `envconfig:"ENABLED" default:"true"`
	Level   string `envconfig:"LEVEL" default:"info"`   // debug|info|warn|error
	Format  string `envconfig:"FORMAT" default:"json"`  // json|console
	Output  string `envconfig:"OUTPUT" default:"stderr"` // stdout|stderr
}

var (
	validTracingExporters = []string{"otlp", "stdout", "none", ""}
	validMetricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}
	validLogLevels        = []string{"debug", "info", "warn", "error", ""}
	validLogFormats       = []string{"json", "console", ""}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	if c.Tracing.Enabled {
		if !slices.Contains(validTracingExporters, c.Tracing.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, c.Tracing.Exporter)
		}
		if c.Tracing.SamplePct < MinSamplePct || c.Tracing.SamplePct > MaxSamplePct {
			return fmt.Errorf("%w: got %f", ErrInvalidSamplePct, c.Tracing.SamplePct)
		}
	}

	if c.Metrics.Enabled && !slices.Contains(validMetricsExporters, c.Metrics.Exporter) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, c.Metrics.Exporter)
	}

	if c.Logging.Enabled {
		if !slices.Contains(validLogLevels, c.Logging.Level) {
			return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
		}
		if !slices.Contains(validLogFormats, c.Logging.Format) {
			return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
		}
	}

	return nil
}

// Observer provides access to telemetry primitives.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown should be idempotent and return the first error encountered.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
	Shutdown(ctx context.Context) error
}

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	WithOp(meta OpMeta) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for constructing a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type observer struct {
	tracer         trace.Tracer
	meter          metric.Meter
	logger         Logger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// NewObserver creates a new Observer with the given configuration.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	obs := &observer{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observe: create resource: %w", err)
	}

	if cfg.Tracing.Enabled {
		tp, err := setupTracing(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("observe: setup tracing: %w", err)
		}
		obs.tracerProvider = tp
		obs.tracer = tp.Tracer(cfg.ServiceName)
	} else {
		obs.tracer = tracenoop.NewTracerProvider().Tracer("noop")
	}

	if cfg.Metrics.Enabled {
		mp, err := setupMetrics(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("observe: setup metrics: %w", err)
		}
		obs.meterProvider = mp
		obs.meter = mp.Meter(cfg.ServiceName)
	} else {
		obs.meter = noop.NewMeterProvider().Meter("noop")
	}

	if cfg.Logging.Enabled {
		obs.logger = NewLoggerWithOptions(cfg.Logging.Level, cfg.Logging.Format, logOutput(cfg.Logging.Output))
	} else {
		obs.logger = NewNopLogger()
	}

	return obs, nil
}

func logOutput(name string) io.Writer {
	if name == "stdout" {
		return os.Stdout
	}
	return os.Stderr
}

func setupTracing(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter, exporters.Options{
		Endpoint: cfg.Tracing.Endpoint,
		Writer:   os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.Tracing.SamplePct >= MaxSamplePct:
		sampler = sdktrace.AlwaysSample()
	case cfg.Tracing.SamplePct <= MinSamplePct:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.Tracing.SamplePct)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func setupMetrics(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter, exporters.Options{
		Endpoint: cfg.Metrics.Endpoint,
		Writer:   os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	var errs []error

	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	if sync, ok := o.logger.(interface{ Sync() error }); ok {
		_ = sync.Sync()
	}

	return errors.Join(errs...)
}
