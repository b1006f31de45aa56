package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OpMeta describes an instrumented operation.
type OpMeta struct {
	Component string // owning component, e.g. "tariff" or "cache"
	Name      string // operation name, e.g. "calculate_total_tariff"

	// Attributes are attached to the span only; they may carry request
	// identifiers that would blow up metric cardinality.
	Attributes map[string]string
}

// OpID returns the fully qualified operation identifier.
func (m OpMeta) OpID() string {
	if m.Component != "" {
		return m.Component + "." + m.Name
	}
	return m.Name
}

// SpanName returns the deterministic span name for this operation.
// Format: tariffops.<component>.<name>
func (m OpMeta) SpanName() string {
	return "tariffops." + m.OpID()
}

// Tracer wraps OpenTelemetry tracing with operation-specific span management.
type Tracer interface {
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer backed by t. A nil t yields a no-op tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(meta.Attributes)+3)
	attrs = append(attrs,
		attribute.String("op.id", meta.OpID()),
		attribute.String("op.name", meta.Name),
		attribute.Bool("op.error", false),
	)
	for k, v := range meta.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("op.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
