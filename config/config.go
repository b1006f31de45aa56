// Package config loads process configuration from the environment.
//
// Variables use the TARIFF prefix, e.g. TARIFF_DB_HOST, TARIFF_REDIS_ADDR,
// TARIFF_CACHE_BOM_TTL. A .env file in the working directory is read first
// when present; real environment variables win over it.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jonwraymond/tariffops/cache"
	"github.com/jonwraymond/tariffops/observe"
	"github.com/jonwraymond/tariffops/secret"
	"github.com/jonwraymond/tariffops/store/postgres"
	"github.com/jonwraymond/tariffops/tariff"
)

// AppName is the environment variable prefix.
const AppName = "TARIFF"

// DefaultServiceName names the process in telemetry.
const DefaultServiceName = "tariffops"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// RedisConfig configures the cache connection.
type RedisConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"true"`
	Addr     string        `envconfig:"ADDR" default:"localhost:6379"`
	Password string        `envconfig:"PASSWORD"`
	DB       int           `envconfig:"DB" default:"0"`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"500ms"`
}

// CacheConfig holds per-prefix cache lifetimes.
type CacheConfig struct {
	TTL     time.Duration `envconfig:"TTL" default:"1h"`
	RateTTL time.Duration `envconfig:"RATE_TTL" default:"1h"`
	BOMTTL  time.Duration `envconfig:"BOM_TTL" default:"2h"`
}

// Policy converts c to a cache policy. TTL applies to calculated results.
func (c CacheConfig) Policy() cache.Policy {
	return tariff.DefaultCachePolicy().
		WithOverride(tariff.PrefixResult, c.TTL).
		WithOverride(tariff.PrefixRate, c.RateTTL).
		WithOverride(tariff.PrefixBOM, c.BOMTTL)
}

// Config is the process configuration.
type Config struct {
	DB         postgres.Config `envconfig:"DB"`
	Redis      RedisConfig     `envconfig:"REDIS"`
	Cache      CacheConfig     `envconfig:"CACHE"`
	PoolSize   int             `envconfig:"POOL_SIZE" default:"20"`
	HTTPAddr   string          `envconfig:"HTTP_ADDR" default:":8080"`
	SecretsDir string          `envconfig:"SECRETS_DIR" default:"/run/secrets"`
	Observe    observe.Config  `envconfig:"OBSERVE"`
}

// Load reads the optional env files, then the environment. With no files
// given it tries ".env".
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(AppName, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.Observe.ServiceName == "" {
		cfg.Observe.ServiceName = DefaultServiceName
	}
	return cfg, nil
}

// ResolveSecrets replaces env references and secretref values in the
// credential fields using the built-in providers.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	providers, err := secret.DefaultRegistry.CreateAll(map[string]map[string]any{
		"file": {"dir": c.SecretsDir},
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	r := secret.NewResolver(true, providers...)
	defer r.Close()

	if err := r.ResolveFields(ctx, map[string]*string{
		"db.password":    &c.DB.Password,
		"db.user":        &c.DB.User,
		"redis.password": &c.Redis.Password,
	}); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate checks sizes, durations and the cache lifetime ordering.
func (c Config) Validate() error {
	var errs []error
	if c.PoolSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: pool size must be positive, got %d", ErrInvalid, c.PoolSize))
	}
	if c.DB.PoolMinSize < 0 || c.DB.PoolMaxSize <= 0 || c.DB.PoolMinSize > c.DB.PoolMaxSize {
		errs = append(errs, fmt.Errorf("%w: db pool bounds %d..%d", ErrInvalid, c.DB.PoolMinSize, c.DB.PoolMaxSize))
	}
	if c.Redis.Enabled && c.Redis.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: redis timeout must be positive", ErrInvalid))
	}
	if err := tariff.ValidateCachePolicy(c.Cache.Policy()); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if err := c.Observe.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	return errors.Join(errs...)
}
