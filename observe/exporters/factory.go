// Package exporters provides factory functions for creating OpenTelemetry exporters.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrEndpointNotConfigured indicates an OTLP exporter was requested without an endpoint.
var ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")

// Options tune exporter construction.
type Options struct {
	// Endpoint is the OTLP collector address (host:port). When empty the
	// standard OTEL_EXPORTER_OTLP_* environment variables are consulted.
	Endpoint string

	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer
}

func (o Options) writer() io.Writer {
	if o.Writer == nil {
		return os.Stdout
	}
	return o.Writer
}

func otlpEndpoint(explicit, signalEnv string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		return v
	}
	return os.Getenv(signalEnv)
}

// NewTracingExporter creates a span exporter by name: stdout, otlp, none.
func NewTracingExporter(ctx context.Context, name string, opts Options) (sdktrace.SpanExporter, error) {
	switch name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(opts.writer()))

	case "otlp":
		endpoint := otlpEndpoint(opts.Endpoint, "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or the tracing endpoint", ErrEndpointNotConfigured)
		}
		if opts.Endpoint != "" {
			return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(opts.Endpoint), otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx)

	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("exporters: unknown tracing exporter %q", name)
	}
}

// NewMetricsReader creates a metrics reader by name: stdout, otlp, prometheus, none.
//
// The prometheus reader registers with the default Prometheus registerer, so
// promhttp.Handler serves its collected instruments.
func NewMetricsReader(ctx context.Context, name string, opts Options) (sdkmetric.Reader, error) {
	switch name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(opts.writer()))
		if err != nil {
			return nil, fmt.Errorf("exporters: stdout metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "otlp":
		endpoint := otlpEndpoint(opts.Endpoint, "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or the metrics endpoint", ErrEndpointNotConfigured)
		}
		var grpcOpts []otlpmetricgrpc.Option
		if opts.Endpoint != "" {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithEndpoint(opts.Endpoint), otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("exporters: otlp metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "prometheus":
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("exporters: prometheus: %w", err)
		}
		return exp, nil

	case "none", "":
		return sdkmetric.NewManualReader(), nil

	default:
		return nil, fmt.Errorf("exporters: unknown metrics exporter %q", name)
	}
}
