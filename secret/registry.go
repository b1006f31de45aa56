package secret

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory creates a Provider from configuration.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry manages provider factories.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ProviderFactory)}
}

// Register adds a provider factory.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return errors.New("invalid provider registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("secret provider %q already registered", name)
	}
	r.providers[name] = factory
	return nil
}

// Create instantiates a provider by name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("provider name is required")
	}

	r.mu.RLock()
	factory, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("secret provider %q is not registered", name)
	}

	return factory(cfg)
}

// CreateAll instantiates every registered provider with its entry in cfgs.
func (r *Registry) CreateAll(cfgs map[string]map[string]any) ([]Provider, error) {
	names := r.List()
	out := make([]Provider, 0, len(names))
	for _, name := range names {
		p, err := r.Create(name, cfgs[name])
		if err != nil {
			return nil, fmt.Errorf("create %q: %w", name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// List returns registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in file and env providers.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("file", func(cfg map[string]any) (Provider, error) {
		dir, _ := cfg["dir"].(string)
		return NewFileProvider(dir), nil
	})
	_ = r.Register("env", func(map[string]any) (Provider, error) {
		return EnvProvider{}, nil
	})
	return r
}
