package secret

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	name    string
	values  map[string]string
	resolve func(ref string) (string, error)
	closed  bool
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.resolve != nil {
		return s.resolve(ref)
	}
	return s.values[ref], nil
}

func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:file:db_password", "file", "db_password", true},
		{"secretref:env:REDIS_AUTH", "env", "REDIS_AUTH", true},
		{"secretref:file:", "", "", false},
		{"secretref::x", "", "", false},
		{"postgres", "", "", false},
	}
	for _, tt := range tests {
		provider, ref, ok := ParseSecretRef(tt.in)
		if provider != tt.provider || ref != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = (%q, %q, %v)", tt.in, provider, ref, ok)
		}
	}
}

func TestResolver_ResolvesFullSecretRef(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"db_password": "s3cret"}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:db_password")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "s3cret" {
		t.Fatalf("ResolveValue() = %q, want %q", got, "s3cret")
	}
}

func TestResolver_ResolvesInlineSecretRef(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"pw": "two"}})

	got, err := r.ResolveValue(context.Background(), "postgres://app:secretref:stub:pw@db:5432/tariff")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "postgres://app:two@db:5432/tariff" {
		t.Fatalf("ResolveValue() = %q", got)
	}
}

func TestResolver_ExpandsEnvBeforeLookup(t *testing.T) {
	t.Setenv("SECRET_NAME", "pw")
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"pw": "three"}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:${SECRET_NAME}")
	if err != nil || got != "three" {
		t.Fatalf("ResolveValue() = (%q, %v)", got, err)
	}
}

func TestResolver_Errors(t *testing.T) {
	boom := errors.New("explode")
	r := NewResolver(true, &stubProvider{name: "stub", resolve: func(ref string) (string, error) {
		switch ref {
		case "boom":
			return "", boom
		case "empty":
			return "", nil
		}
		return "ok", nil
	}})
	ctx := context.Background()

	if _, err := r.ResolveValue(ctx, "secretref:stub:boom"); !errors.Is(err, boom) {
		t.Errorf("provider error = %v, want %v", err, boom)
	}
	if _, err := r.ResolveValue(ctx, "secretref:stub:empty"); err == nil {
		t.Error("strict resolver accepted an empty value")
	}
	if _, err := r.ResolveValue(ctx, "secretref:vault:x"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("unregistered provider err = %v, want ErrUnknownProvider", err)
	}
	if _, err := r.ResolveValue(ctx, "user=app password=secretref:stub:boom"); !errors.Is(err, boom) {
		t.Errorf("inline provider error = %v, want %v", err, boom)
	}
}

func TestResolver_NilPassesThrough(t *testing.T) {
	var r *Resolver
	got, err := r.ResolveValue(context.Background(), "secretref:stub:x")
	if err != nil || got != "secretref:stub:x" {
		t.Fatalf("nil ResolveValue() = (%q, %v)", got, err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("nil Close() = %v", err)
	}
}

func TestResolver_ResolveFields(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"pw": "one"}})

	password := "secretref:stub:pw"
	host := "localhost"
	empty := ""
	err := r.ResolveFields(context.Background(), map[string]*string{
		"db.password": &password,
		"db.host":     &host,
		"redis.auth":  &empty,
		"unset":       nil,
	})
	if err != nil {
		t.Fatalf("ResolveFields() error = %v", err)
	}
	if password != "one" || host != "localhost" || empty != "" {
		t.Fatalf("fields = %q %q %q", password, host, empty)
	}

	bad := "secretref:missing:x"
	err = r.ResolveFields(context.Background(), map[string]*string{"redis.password": &bad})
	if err == nil || bad != "secretref:missing:x" {
		t.Fatalf("ResolveFields() = %v, target %q", err, bad)
	}
}

func TestResolver_CloseClosesProviders(t *testing.T) {
	p := &stubProvider{name: "stub"}
	r := NewResolver(false, p)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if !p.closed {
		t.Error("provider not closed")
	}
}
