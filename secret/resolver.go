package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Resolver resolves secret references using registered providers.
//
// Values with the prefix "secretref:" are resolved via providers.
// Other values are returned after strict environment expansion.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. When strict is set an empty provider
// value is an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		strict:    strict,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds provider, replacing one with the same name.
func (r *Resolver) Register(provider Provider) {
	if r == nil || provider == nil {
		return
	}
	r.providers[provider.Name()] = provider
}

// ResolveValue resolves environment variables and secret refs in value.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil {
		return expanded, nil
	}

	if providerName, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolveSingle(ctx, providerName, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveFields resolves each target in place. Keys name the fields in
// errors and are processed in sorted order.
func (r *Resolver) ResolveFields(ctx context.Context, fields map[string]*string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := fields[name]
		if target == nil || *target == "" {
			continue
		}
		resolved, err := r.ResolveValue(ctx, *target)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		*target = resolved
	}
	return nil
}

// Close closes every registered provider.
func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, p := range r.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ParseSecretRef splits a full reference of the form
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, "secretref:")
	if !found {
		return "", "", false
	}
	provider, ref, ok = strings.Cut(rest, ":")
	if !ok || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

// ErrUnknownProvider is returned for a reference to an unregistered provider.
var ErrUnknownProvider = errors.New("secret: provider not registered")

func (r *Resolver) resolveSingle(ctx context.Context, providerName string, ref string) (string, error) {
	provider, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}
	resolved, err := provider.Resolve(ctx, ref)
	switch {
	case err != nil:
		return "", fmt.Errorf("secret: %s:%s: %w", providerName, ref, err)
	case r.strict && resolved == "":
		return "", fmt.Errorf("secret: %s:%s resolved to an empty value", providerName, ref)
	}
	return resolved, nil
}

// Inline refs end at the first character outside the ref alphabet, so they
// can sit inside DSNs and URLs.
var inlineSecretRefPattern = regexp.MustCompile(`secretref:([A-Za-z0-9_-]+):([A-Za-z0-9_./-]+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	var firstErr error
	out := inlineSecretRefPattern.ReplaceAllStringFunc(value, func(match string) string {
		if firstErr != nil {
			return match
		}
		m := inlineSecretRefPattern.FindStringSubmatch(match)
		resolved, err := r.resolveSingle(ctx, m[1], m[2])
		if err != nil {
			firstErr = err
			return match
		}
		return resolved
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
