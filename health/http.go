package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	readinessTimeout = 5 * time.Second
	detailedTimeout  = 10 * time.Second
)

// LivenessHandler reports that the process is up. It runs no checks.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler runs every check. Degraded is still ready: a cache
// outage slows the service down but does not change its answers.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		report := agg.Report(ctx)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(statusCode(report.Status))
		switch report.Status {
		case StatusHealthy:
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// HealthResponse is the JSON body of the detailed endpoint.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Error     string                   `json:"error,omitempty"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is the JSON form of one Result.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// DetailedHandler serves the full report as JSON.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), detailedTimeout)
		defer cancel()

		report := agg.Report(ctx)
		response := HealthResponse{
			Status:    report.Status.String(),
			Timestamp: report.Timestamp.UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(report.Results)),
		}
		if err := report.Err(); err != nil {
			response.Error = err.Error()
		}
		for name, result := range report.Results {
			check := CheckResponse{
				Status:   result.Status.String(),
				Message:  result.Message,
				Duration: result.Duration.String(),
				Details:  result.Details,
			}
			if result.Error != nil {
				check.Error = result.Error.Error()
			}
			response.Checks[name] = check
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode(report.Status))
		_ = json.NewEncoder(w).Encode(response)
	}
}

func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// RegisterHandlers registers /healthz, /readyz and /health on mux.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(agg))
	mux.HandleFunc("/health", DetailedHandler(agg))
}
