// Package health reports the reachability of the service's collaborators.
//
// A Checker reports one component as healthy, degraded or unhealthy. The
// usual checker is a DependencyChecker wrapping a ping: a failing critical
// dependency (the record store) is unhealthy, a failing optional one (the
// cache) only degrades the service.
//
//	agg := health.NewAggregator()
//	agg.Register("records", health.NewDependencyChecker(health.DependencyCheckerConfig{
//	    Name: "records", Ping: db.PingContext, Critical: true,
//	}))
//	agg.Register("cache", health.NewDependencyChecker(health.DependencyCheckerConfig{
//	    Name: "cache", Ping: redisCache.Ping,
//	}))
//
//	report := agg.Report(ctx)
//	if err := report.Err(); err != nil {
//	    log.Printf("%s: %v", report.Status, err)
//	}
//
// RegisterHandlers exposes the aggregator as /healthz (liveness), /readyz
// (readiness) and /health (JSON report).
package health
