package observe

import (
	"context"
	"time"
)

// Middleware wraps operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
//   - A nil *Middleware runs the wrapped function uninstrumented.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Metrics returns the recorder used by the middleware.
func (m *Middleware) Metrics() Metrics {
	if m == nil {
		return NoopMetrics{}
	}
	return m.metrics
}

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger {
	if m == nil {
		return NewNopLogger()
	}
	return m.logger
}

// Run executes fn inside a span, records metrics and logs the outcome.
func (m *Middleware) Run(ctx context.Context, meta OpMeta, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}

	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordOperation(ctx, meta, duration, err)

	log := m.logger.WithOp(meta)
	fields := []Field{{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000}}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		log.Error(ctx, "operation failed", fields...)
	} else {
		log.Debug(ctx, "operation completed", fields...)
	}

	return err
}

// Instrument runs fn through m and returns its value.
func Instrument[T any](ctx context.Context, m *Middleware, meta OpMeta, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := m.Run(ctx, meta, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
