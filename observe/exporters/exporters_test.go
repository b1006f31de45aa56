package exporters

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTracingExporter_Names(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"stdout", "none", ""} {
		exp, err := NewTracingExporter(ctx, name, Options{Writer: &bytes.Buffer{}})
		if err != nil {
			t.Fatalf("NewTracingExporter(%q): %v", name, err)
		}
		if exp == nil {
			t.Fatalf("NewTracingExporter(%q) returned nil exporter", name)
		}
	}

	if _, err := NewTracingExporter(ctx, "jaeger", Options{}); err == nil ||
		!strings.Contains(err.Error(), "unknown tracing exporter") {
		t.Fatalf("expected unknown exporter error, got %v", err)
	}
}

func TestTracingExporter_OtlpRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	_, err := NewTracingExporter(context.Background(), "otlp", Options{})
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("err = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestTracingExporter_OtlpExplicitEndpoint(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "otlp", Options{Endpoint: "localhost:4317"})
	if err != nil {
		t.Fatalf("NewTracingExporter: %v", err)
	}
	_ = exp.Shutdown(context.Background())
}

func TestMetricsReader_Names(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"stdout", "none", ""} {
		r, err := NewMetricsReader(ctx, name, Options{Writer: &bytes.Buffer{}})
		if err != nil {
			t.Fatalf("NewMetricsReader(%q): %v", name, err)
		}
		if r == nil {
			t.Fatalf("NewMetricsReader(%q) returned nil reader", name)
		}
	}

	if _, err := NewMetricsReader(ctx, "statsd", Options{}); err == nil {
		t.Fatal("expected error for unknown metrics exporter")
	}
}

func TestMetricsReader_OtlpRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	_, err := NewMetricsReader(context.Background(), "otlp", Options{})
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("err = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestMetricsReader_Prometheus(t *testing.T) {
	r, err := NewMetricsReader(context.Background(), "prometheus", Options{})
	if err != nil {
		t.Fatalf("NewMetricsReader(prometheus): %v", err)
	}
	if r == nil {
		t.Fatal("expected non-nil reader")
	}
}
