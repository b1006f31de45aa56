// Package postgres implements tariff.RecordLookup on PostgreSQL through
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/jonwraymond/tariffops/observe"
	"github.com/jonwraymond/tariffops/tariff"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     int    `envconfig:"PORT" default:"5432"`
	Name     string `envconfig:"NAME" default:"tariff_management_system"`
	User     string `envconfig:"USER" default:"postgres"`
	Password string `envconfig:"PASSWORD" default:"postgres"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`

	PoolMinSize     int           `envconfig:"POOL_MIN_SIZE" default:"10"`
	PoolMaxSize     int           `envconfig:"POOL_MAX_SIZE" default:"50"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"30m"`
}

// DSN returns the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Open creates a connection pool sized from cfg. It does not contact the
// server; callers ping it before use.
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.PoolMaxSize)
	db.SetMaxIdleConns(cfg.PoolMinSize)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

const (
	bomQuery = `
		SELECT c.component_id, c.description, c.material_type
		FROM Component c
		INNER JOIN Item_Component ic ON c.component_id = ic.component_id
		WHERE ic.item_id = $1
		ORDER BY c.component_id`

	rateQuery = `
		SELECT
			t.tariff_id::text,
			t.tariff_rate,
			t.level,
			t.entity_id,
			t.country_code,
			t.start_date,
			t.end_date,
			t.status,
			t.policy_version_id
		FROM TariffRule t
		INNER JOIN PolicyVersion p ON t.policy_version_id = p.policy_version_id
		WHERE t.entity_id = $1
			AND t.country_code = $2
			AND t.status = 'ACTIVE'
			AND t.start_date <= CURRENT_DATE
			AND (t.end_date IS NULL OR t.end_date >= CURRENT_DATE)
			AND p.start_date <= CURRENT_DATE
			AND (p.end_date IS NULL OR p.end_date >= CURRENT_DATE)
		ORDER BY t.level, t.start_date DESC
		LIMIT 1`

	policyQuery = `
		SELECT tariff_combination_policy
		FROM policyversion pv
		WHERE pv.policy_version_id = $1
			AND pv.start_date <= CURRENT_TIMESTAMP
			AND (pv.end_date IS NULL OR pv.end_date > CURRENT_TIMESTAMP)
		LIMIT 1`
)

// Store resolves tariff records from PostgreSQL.
type Store struct {
	db     *sql.DB
	logger observe.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for query diagnostics.
func WithLogger(l observe.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps db. The caller owns db unless it calls Close on the Store.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: observe.NewNopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithOp(observe.OpMeta{Component: "store", Name: "postgres"})
	return s
}

// ResolveComponents returns the bill of materials of itemID ordered by
// component id.
func (s *Store) ResolveComponents(ctx context.Context, itemID string) ([]tariff.Component, error) {
	itemID, err := tariff.NormalizeEntity("item", itemID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, bomQuery, itemID)
	if err != nil {
		return nil, s.fail(ctx, "resolve components", itemID, err)
	}
	defer rows.Close()

	parts := []tariff.Component{}
	for rows.Next() {
		var (
			c                  tariff.Component
			desc, materialType sql.NullString
		)
		if err := rows.Scan(&c.ComponentID, &desc, &materialType); err != nil {
			return nil, s.fail(ctx, "scan component", itemID, err)
		}
		c.Description, c.MaterialType = desc.String, materialType.String
		parts = append(parts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(ctx, "resolve components", itemID, err)
	}

	s.logger.Debug(ctx, "resolved bom", observe.F("item.id", itemID), observe.F("components", len(parts)))
	return parts, nil
}

// ResolveRate returns the eligible rate for entityID in territoryCode, or
// false when none is active today.
func (s *Store) ResolveRate(ctx context.Context, entityID, territoryCode string) (tariff.TariffRate, bool, error) {
	entityID, err := tariff.NormalizeEntity("entity", entityID)
	if err != nil {
		return tariff.TariffRate{}, false, err
	}
	territoryCode, err = tariff.NormalizeTerritory(territoryCode)
	if err != nil {
		return tariff.TariffRate{}, false, err
	}

	var (
		r               tariff.TariffRate
		start, end      sql.NullTime
		level           sql.NullString
		policyVersionID sql.NullString
	)
	err = s.db.QueryRowContext(ctx, rateQuery, entityID, territoryCode).Scan(
		&r.TariffID, &r.Rate, &level, &r.EntityID, &r.TerritoryCode,
		&start, &end, &r.Status, &policyVersionID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return tariff.TariffRate{}, false, nil
	}
	if err != nil {
		return tariff.TariffRate{}, false, s.fail(ctx, "resolve rate", entityID+"/"+territoryCode, err)
	}

	r.Level = level.String
	r.PolicyVersionID = policyVersionID.String
	if start.Valid {
		r.StartDate = &start.Time
	}
	if end.Valid {
		r.EndDate = &end.Time
	}
	if r.Rate.IsNegative() {
		return tariff.TariffRate{}, false, fmt.Errorf("%w: rate %s of tariff %s is negative",
			tariff.ErrLookup, r.Rate, r.TariffID)
	}
	return r, true, nil
}

// ResolveCombinationPolicy returns the policy of the active policy version
// with the given UUID, or ADDITIVE when no active version matches.
func (s *Store) ResolveCombinationPolicy(ctx context.Context, policyVersionID string) (tariff.Policy, error) {
	id, err := uuid.Parse(policyVersionID)
	if err != nil {
		return tariff.PolicyAdditive, fmt.Errorf("%w: policy version id %q is not a valid uuid",
			tariff.ErrInvalidArgument, policyVersionID)
	}

	var description sql.NullString
	err = s.db.QueryRowContext(ctx, policyQuery, id.String()).Scan(&description)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Info(ctx, "no active policy version, using ADDITIVE", observe.F("policy_version.id", id.String()))
		return tariff.PolicyAdditive, nil
	}
	if err != nil {
		return tariff.PolicyAdditive, s.fail(ctx, "resolve combination policy", id.String(), err)
	}
	return tariff.MatchPolicy(description.String), nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) fail(ctx context.Context, op, subject string, err error) error {
	s.logger.Debug(ctx, op+" failed", observe.F("subject", subject), observe.F("error", err))
	return fmt.Errorf("%w: %s %s: %w", tariff.ErrLookup, op, subject, err)
}

var (
	_ tariff.RecordLookup = (*Store)(nil)
	_ tariff.Pinger       = (*Store)(nil)
)
