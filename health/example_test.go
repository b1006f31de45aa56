package health_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/tariffops/health"
)

func ExampleNewDependencyChecker() {
	agg := health.NewAggregator()
	agg.Register("records", health.NewDependencyChecker(health.DependencyCheckerConfig{
		Name:     "records",
		Ping:     func(context.Context) error { return nil },
		Critical: true,
	}))
	agg.Register("cache", health.NewDependencyChecker(health.DependencyCheckerConfig{
		Name: "cache",
		Ping: func(context.Context) error { return errors.New("dial tcp 127.0.0.1:6379: connection refused") },
	}))

	report := agg.Report(context.Background())
	fmt.Println(report.Status)
	fmt.Println(report.Err())
	// Output:
	// degraded
	// cache: dial tcp 127.0.0.1:6379: connection refused
}

func ExampleOverallStatus() {
	results := map[string]health.Result{
		"records": health.Healthy("records reachable"),
		"cache":   health.Degraded("cache unreachable"),
	}
	fmt.Println(health.OverallStatus(results))

	results["records"] = health.Unhealthy("records unreachable", nil)
	fmt.Println(health.OverallStatus(results))
	// Output:
	// degraded
	// unhealthy
}
