package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a provider has no value for a ref.
var ErrNotFound = errors.New("secret: not found")

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// DefaultSecretsDir is where container runtimes mount secret files.
const DefaultSecretsDir = "/run/secrets"

// FileProvider reads secrets from files under a base directory. Trailing
// newlines are trimmed.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a FileProvider rooted at dir. An empty dir uses
// DefaultSecretsDir.
func NewFileProvider(dir string) *FileProvider {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultSecretsDir
	}
	return &FileProvider{dir: filepath.Clean(dir)}
}

func (p *FileProvider) Name() string { return "file" }

// Resolve reads dir/ref. Refs that escape dir are rejected.
func (p *FileProvider) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !filepath.IsLocal(ref) {
		return "", fmt.Errorf("secret: file ref %q must stay inside %s", ref, p.dir)
	}
	data, err := os.ReadFile(filepath.Join(p.dir, ref))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: file %q", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("secret: read %q: %w", ref, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (p *FileProvider) Close() error { return nil }

// EnvProvider reads secrets from environment variables.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %q", ErrNotFound, ref)
	}
	return v, nil
}

func (EnvProvider) Close() error { return nil }

var (
	_ Provider = (*FileProvider)(nil)
	_ Provider = EnvProvider{}
)
