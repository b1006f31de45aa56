package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}
	return entry
}

func TestLogger_IncludesOpFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.WithOp(OpMeta{Component: "tariff", Name: "resolve_bom"}).
		Info(context.Background(), "resolved")

	entry := decodeLine(t, &buf)
	if entry["op.id"] != "tariff.resolve_bom" {
		t.Errorf("op.id = %v, want tariff.resolve_bom", entry["op.id"])
	}
	if entry["op.component"] != "tariff" {
		t.Errorf("op.component = %v, want tariff", entry["op.component"])
	}
	if entry["msg"] != "resolved" {
		t.Errorf("msg = %v, want resolved", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestLogger_FieldsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "lookup failed",
		F("entity_id", "COMP-9"),
		F("duration_ms", 50.5),
		F("error", errors.New("connection refused")),
	)

	entry := decodeLine(t, &buf)
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
	if entry["entity_id"] != "COMP-9" {
		t.Errorf("entity_id = %v", entry["entity_id"])
	}
	if v, ok := entry["duration_ms"].(float64); !ok || v != 50.5 {
		t.Errorf("duration_ms = %v, want 50.5", entry["duration_ms"])
	}
	if entry["error"] != "connection refused" {
		t.Errorf("error = %v, want connection refused", entry["error"])
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Info(context.Background(), "connecting",
		F("password", "hunter2"),
		F("dsn", "postgres://u:p@h/db"),
		F("host", "db.internal"),
	)

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "u:p@h") {
		t.Fatalf("sensitive value leaked: %s", out)
	}
	entry := decodeLine(t, &buf)
	if entry["password"] != "[REDACTED]" {
		t.Errorf("password = %v, want [REDACTED]", entry["password"])
	}
	if entry["host"] != "db.internal" {
		t.Errorf("host = %v, want db.internal", entry["host"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		logFn   func(Logger)
		written bool
	}{
		{"info", func(l Logger) { l.Debug(context.Background(), "d") }, false},
		{"info", func(l Logger) { l.Info(context.Background(), "i") }, true},
		{"warn", func(l Logger) { l.Info(context.Background(), "i") }, false},
		{"warn", func(l Logger) { l.Warn(context.Background(), "w") }, true},
		{"error", func(l Logger) { l.Warn(context.Background(), "w") }, false},
		{"debug", func(l Logger) { l.Debug(context.Background(), "d") }, true},
		{"bogus", func(l Logger) { l.Info(context.Background(), "i") }, true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		tt.logFn(NewLoggerWithWriter(tt.level, &buf))
		if got := buf.Len() > 0; got != tt.written {
			t.Errorf("level %q: written = %v, want %v", tt.level, got, tt.written)
		}
	}
}

func TestLogger_IncludesTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Info(ctx, "traced")

	entry := decodeLine(t, &buf)
	if entry["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", entry["trace_id"], span.SpanContext().TraceID())
	}
}

func TestLogger_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithOptions("info", "console", &buf).Warn(context.Background(), "cache degraded")

	out := buf.String()
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "cache degraded") {
		t.Fatalf("unexpected console output: %q", out)
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info(context.Background(), "ignored")
	l.WithOp(OpMeta{Name: "x"}).Error(context.Background(), "ignored")
}
