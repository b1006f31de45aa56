package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records operation and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records an operation with duration and error status.
	RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordCacheLookup records a cache read for the given key prefix.
	RecordCacheLookup(ctx context.Context, prefix string, hit bool)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheLookups metric.Int64Counter
}

// NewMetrics creates the instrument set on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"tariff.op.total",
		metric.WithDescription("Total number of tariff operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"tariff.op.errors",
		metric.WithDescription("Total number of failed tariff operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"tariff.op.duration_ms",
		metric.WithDescription("Tariff operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"tariff.cache.lookups",
		metric.WithDescription("Cache reads by key prefix and outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		cacheLookups: cacheLookups,
	}, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("op.id", meta.OpID()),
		attribute.String("op.component", meta.Component),
	)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, prefix string, hit bool) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.prefix", prefix),
		attribute.Bool("cache.hit", hit),
	))
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) RecordOperation(context.Context, OpMeta, time.Duration, error) {}
func (NoopMetrics) RecordCacheLookup(context.Context, string, bool)              {}
