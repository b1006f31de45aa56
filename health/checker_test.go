package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
		text, err := tt.status.MarshalText()
		if err != nil || string(text) != tt.want {
			t.Errorf("MarshalText() = (%q, %v)", text, err)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	err := errors.New("dial tcp: connection refused")

	if r := Healthy("ok"); r.Status != StatusHealthy || r.Timestamp.IsZero() || r.Error != nil {
		t.Errorf("Healthy() = %+v", r)
	}
	if r := Degraded("cache unreachable"); r.Status != StatusDegraded || r.Message != "cache unreachable" {
		t.Errorf("Degraded() = %+v", r)
	}
	if r := Unhealthy("records unreachable", err); r.Status != StatusUnhealthy || r.Error != err {
		t.Errorf("Unhealthy() = %+v", r)
	}

	r := Healthy("ok").WithDetails(map[string]any{"dependency": "redis"})
	if r.Details["dependency"] != "redis" {
		t.Errorf("WithDetails() = %+v", r.Details)
	}
}

func TestCheckerFunc(t *testing.T) {
	calls := 0
	c := NewCheckerFunc("records", func(context.Context) Result {
		calls++
		return Degraded("slow")
	})

	if c.Name() != "records" {
		t.Errorf("Name() = %q", c.Name())
	}
	if r := c.Check(context.Background()); r.Status != StatusDegraded || calls != 1 {
		t.Errorf("Check() = %+v after %d calls", r, calls)
	}
}
