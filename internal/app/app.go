// Package app wires configuration, telemetry, storage and the cache into a
// tariff.Service and serves its health and metrics endpoints.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/tariffops/cache"
	"github.com/jonwraymond/tariffops/config"
	"github.com/jonwraymond/tariffops/health"
	"github.com/jonwraymond/tariffops/observe"
	"github.com/jonwraymond/tariffops/resilience"
	"github.com/jonwraymond/tariffops/store/postgres"
	"github.com/jonwraymond/tariffops/tariff"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 10 * time.Second

// App owns every long-lived resource of the process.
type App struct {
	cfg     config.Config
	obs     observe.Observer
	logger  observe.Logger
	db      *sql.DB
	rdb     *redis.Client
	pool    *resilience.Pool
	service *tariff.Service
}

type options struct {
	records tariff.RecordLookup
	cache   cache.Cache
	retry   *resilience.Retry
}

// Option customizes New.
type Option func(*options)

// WithRecords uses lookup instead of opening PostgreSQL.
func WithRecords(lookup tariff.RecordLookup) Option {
	return func(o *options) { o.records = lookup }
}

// WithCache uses c instead of connecting to Redis.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithStartupRetry sets the retry policy for startup connection checks.
func WithStartupRetry(r *resilience.Retry) Option {
	return func(o *options) { o.retry = r }
}

// DefaultStartupRetry retries connection checks with jittered exponential
// backoff for roughly ten seconds.
func DefaultStartupRetry() *resilience.Retry {
	return resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Strategy:     resilience.BackoffExponential,
		Jitter:       true,
	})
}

// New builds the application. PostgreSQL must be reachable; an unreachable
// Redis is logged and the service runs with every cache lookup missing.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{retry: DefaultStartupRetry()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("app: observer: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("app: middleware: %w", err)
	}

	a := &App{
		cfg:    cfg,
		obs:    obs,
		logger: obs.Logger().WithOp(observe.OpMeta{Component: "app", Name: "bootstrap"}),
	}

	records := o.records
	if records == nil {
		db, err := postgres.Open(cfg.DB)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("app: %w", err)
		}
		a.db = db
		records = postgres.New(db, postgres.WithLogger(obs.Logger()))
	}

	c := o.cache
	if c == nil && cfg.Redis.Enabled {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.Timeout,
			ReadTimeout:  cfg.Redis.Timeout,
			WriteTimeout: cfg.Redis.Timeout,
		})
		c = cache.NewRedisCache(a.rdb, cache.WithExecutor(cache.DefaultRedisExecutor(cfg.Redis.Timeout)))
	}

	if err := a.connect(ctx, o.retry, records, c); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.pool = resilience.NewPool(resilience.PoolConfig{Size: cfg.PoolSize})
	accessor := cache.NewAccessor(c,
		cache.WithLogger(obs.Logger()),
		cache.WithMetrics(mw.Metrics()),
	)
	a.service, err = tariff.NewService(records,
		tariff.WithCache(accessor),
		tariff.WithCachePolicy(cfg.Cache.Policy()),
		tariff.WithPool(a.pool),
		tariff.WithMiddleware(mw),
		tariff.WithLogger(obs.Logger()),
	)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("app: %w", err)
	}

	a.logger.Info(ctx, "tariff service ready",
		observe.F("pool.size", a.pool.Size()),
		observe.F("cache.enabled", c != nil),
	)
	return a, nil
}

// connect checks the record store and the cache concurrently. Only the
// record store is fatal.
func (a *App) connect(ctx context.Context, retry *resilience.Retry, records tariff.RecordLookup, c cache.Cache) error {
	g, gctx := errgroup.WithContext(ctx)

	if p, ok := records.(tariff.Pinger); ok {
		g.Go(func() error {
			if err := retry.Execute(gctx, p.Ping); err != nil {
				return fmt.Errorf("app: record store unreachable: %w", err)
			}
			return nil
		})
	}

	if p, ok := c.(interface{ Ping(context.Context) error }); ok {
		g.Go(func() error {
			if err := retry.Execute(gctx, p.Ping); err != nil {
				a.logger.Warn(gctx, "cache unreachable, continuing without it",
					observe.F("error", err.Error()))
			}
			return nil
		})
	}

	return g.Wait()
}

// Service returns the tariff service.
func (a *App) Service() *tariff.Service {
	return a.service
}

// Handler serves /healthz, /readyz, /health and /metrics.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	health.RegisterHandlers(mux, a.service.Health())
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve listens on the configured address until ctx is done, then shuts
// the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "http listening", observe.F("addr", a.cfg.HTTPAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	return nil
}

// Close drains the worker pool, then closes connections and flushes
// telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.service != nil {
		a.service.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.obs != nil {
		errs = append(errs, a.obs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
