// Package observe provides observability primitives for tariff operations.
//
// It bundles OpenTelemetry tracing and metrics with a zap-backed structured
// logger behind small interfaces, so the calculation core can be instrumented
// without depending on a particular exporter. Consumers build an Observer from
// Config and derive a Middleware from it:
//
//	obs, err := observe.NewObserver(ctx, cfg)
//	mw, err := observe.MiddlewareFromObserver(obs)
//	rate, err := observe.Instrument(ctx, mw, observe.OpMeta{Component: "tariff", Name: "get_entity_tariff"}, fetch)
//
// A nil *Middleware is valid and simply runs the wrapped function.
package observe
