package secret

import (
	"slices"
	"testing"
)

func TestRegistry_RegisterAndCreate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("stub", func(cfg map[string]any) (Provider, error) {
		return &stubProvider{name: "stub"}, nil
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p, err := reg.Create("stub", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p == nil || p.Name() != "stub" {
		t.Fatalf("unexpected provider: %#v", p)
	}
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	reg := NewRegistry()
	factory := func(map[string]any) (Provider, error) { return &stubProvider{name: "stub"}, nil }
	_ = reg.Register("stub", factory)

	if err := reg.Register("stub", factory); err == nil {
		t.Error("expected duplicate registration error")
	}
	if err := reg.Register(" ", factory); err == nil {
		t.Error("expected blank name error")
	}
	if err := reg.Register("nil", nil); err == nil {
		t.Error("expected nil factory error")
	}
}

func TestRegistry_CreateUnknown(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Create("missing", nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if got := DefaultRegistry.List(); !slices.Equal(got, []string{"env", "file"}) {
		t.Fatalf("List() = %v, want [env file]", got)
	}

	dir := t.TempDir()
	providers, err := DefaultRegistry.CreateAll(map[string]map[string]any{"file": {"dir": dir}})
	if err != nil {
		t.Fatalf("CreateAll() error = %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("CreateAll() = %d providers, want 2", len(providers))
	}
	if fp, ok := providers[1].(*FileProvider); !ok || fp.dir != dir {
		t.Errorf("file provider = %#v, want dir %q", providers[1], dir)
	}
}
