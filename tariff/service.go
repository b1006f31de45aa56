package tariff

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jonwraymond/tariffops/cache"
	"github.com/jonwraymond/tariffops/health"
	"github.com/jonwraymond/tariffops/observe"
	"github.com/jonwraymond/tariffops/resilience"
)

// Cache key prefixes, one per cached operation.
const (
	PrefixBOM    = "bom"
	PrefixRate   = "tariff"
	PrefixResult = "calculatedTariff"
)

// Default cache lifetimes. Results expire before the BOMs they were built
// from because rates change more often than bills of materials.
const (
	DefaultBOMTTL    = 2 * time.Hour
	DefaultRateTTL   = time.Hour
	DefaultResultTTL = time.Hour
)

// DefaultCachePolicy returns the per-prefix TTLs used when none is configured.
func DefaultCachePolicy() cache.Policy {
	return cache.Policy{DefaultTTL: DefaultRateTTL}.
		WithOverride(PrefixBOM, DefaultBOMTTL).
		WithOverride(PrefixRate, DefaultRateTTL).
		WithOverride(PrefixResult, DefaultResultTTL)
}

// ValidateCachePolicy checks p and requires the result TTL to be shorter than
// the BOM TTL.
func ValidateCachePolicy(p cache.Policy) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCachePolicy, err)
	}
	if p.TTLFor(PrefixResult) >= p.TTLFor(PrefixBOM) {
		return fmt.Errorf("%w: result TTL %s must be shorter than BOM TTL %s",
			ErrInvalidCachePolicy, p.TTLFor(PrefixResult), p.TTLFor(PrefixBOM))
	}
	return nil
}

// Service is the tariff orchestrator. It is safe for concurrent use; the only
// state shared between calculations is the cache and the worker pool.
type Service struct {
	lookup   RecordLookup
	cache    *cache.Accessor
	keyer    cache.Keyer
	policy   cache.Policy
	pool     *resilience.Pool
	ownsPool bool
	mw       *observe.Middleware
	logger   observe.Logger
	health   *health.Aggregator
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache sets the cache-aside accessor. Without it nothing is cached.
func WithCache(a *cache.Accessor) Option {
	return func(s *Service) { s.cache = a }
}

// WithKeyer replaces the default SHA-256 key encoder.
func WithKeyer(k cache.Keyer) Option {
	return func(s *Service) {
		if k != nil {
			s.keyer = k
		}
	}
}

// WithCachePolicy sets the per-prefix TTLs.
func WithCachePolicy(p cache.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithPool runs lookups on p. The caller keeps ownership and must Close it.
// Without it the service creates a pool of resilience.DefaultPoolSize and
// closes it in Close.
func WithPool(p *resilience.Pool) Option {
	return func(s *Service) { s.pool = p }
}

// WithMiddleware instruments every public operation.
func WithMiddleware(m *observe.Middleware) Option {
	return func(s *Service) { s.mw = m }
}

// WithLogger sets the logger for calculation progress and absorbed failures.
func WithLogger(l observe.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHealth sets the aggregator consulted by HealthCheck.
func WithHealth(a *health.Aggregator) Option {
	return func(s *Service) { s.health = a }
}

// WithClock overrides the clock used for CalculatedAt and health timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service over lookup.
func NewService(lookup RecordLookup, opts ...Option) (*Service, error) {
	if lookup == nil {
		return nil, ErrNilLookup
	}

	s := &Service{
		lookup: lookup,
		keyer:  cache.NewDefaultKeyer(),
		policy: DefaultCachePolicy(),
		logger: observe.NewNopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := ValidateCachePolicy(s.policy); err != nil {
		return nil, err
	}
	if s.cache == nil {
		s.cache = cache.NewAccessor(nil)
	}
	if s.pool == nil {
		s.pool = resilience.NewPool(resilience.PoolConfig{})
		s.ownsPool = true
	}
	if s.health == nil {
		s.health = defaultHealth(lookup, s.cache)
	}
	s.logger = s.logger.WithOp(observe.OpMeta{Component: "tariff", Name: "service"})
	return s, nil
}

// Health returns the aggregator used by HealthCheck.
func (s *Service) Health() *health.Aggregator {
	return s.health
}

// Close drains the worker pool if the service created it. Operations after
// Close fail with resilience.ErrPoolClosed.
func (s *Service) Close() {
	if s.ownsPool {
		s.pool.Close()
	}
	s.logger.Info(context.Background(), "tariff service closed")
}

func (s *Service) op(name string, attrs map[string]string) observe.OpMeta {
	return observe.OpMeta{Component: "tariff", Name: name, Attributes: attrs}
}

// ResolveBom returns the components of itemID, cache-aside under the BOM TTL.
func (s *Service) ResolveBom(ctx context.Context, itemID string) ([]Component, error) {
	meta := s.op("resolve_bom", map[string]string{"item.id": itemID})
	return observe.Instrument(ctx, s.mw, meta, func(ctx context.Context) ([]Component, error) {
		return s.resolveBom(ctx, itemID)
	})
}

func (s *Service) resolveBom(ctx context.Context, itemID string) ([]Component, error) {
	itemID, err := NormalizeEntity("item", itemID)
	if err != nil {
		return nil, err
	}

	key := s.keyer.Key(PrefixBOM, "resolveBom", itemID)
	parts, _, err := cache.Through(ctx, s.cache, key, s.policy.TTLFor(PrefixBOM),
		func(ctx context.Context) ([]Component, bool, error) {
			parts, err := s.lookup.ResolveComponents(ctx, itemID)
			if err != nil {
				return nil, false, asLookupError(err)
			}
			if parts == nil {
				parts = []Component{}
			}
			return parts, true, nil
		})
	return parts, err
}

// GetEntityTariff returns the eligible rate of an item or component. Only
// present rates are cached.
func (s *Service) GetEntityTariff(ctx context.Context, entityID, territoryCode string) (TariffRate, bool, error) {
	type result struct {
		rate TariffRate
		ok   bool
	}
	meta := s.op("get_entity_tariff", map[string]string{"entity.id": entityID, "territory.code": territoryCode})
	r, err := observe.Instrument(ctx, s.mw, meta, func(ctx context.Context) (result, error) {
		rate, ok, err := s.getEntityTariff(ctx, entityID, territoryCode)
		return result{rate, ok}, err
	})
	return r.rate, r.ok, err
}

func (s *Service) getEntityTariff(ctx context.Context, entityID, territoryCode string) (TariffRate, bool, error) {
	entityID, err := NormalizeEntity("entity", entityID)
	if err != nil {
		return TariffRate{}, false, err
	}
	territoryCode, err = NormalizeTerritory(territoryCode)
	if err != nil {
		return TariffRate{}, false, err
	}

	key := s.keyer.Key(PrefixRate, "getEntityTariff", entityID, territoryCode)
	return cache.Through(ctx, s.cache, key, s.policy.TTLFor(PrefixRate),
		func(ctx context.Context) (TariffRate, bool, error) {
			rate, ok, err := s.lookup.ResolveRate(ctx, entityID, territoryCode)
			if err != nil {
				return TariffRate{}, false, asLookupError(err)
			}
			if ok && rate.Rate.IsNegative() {
				return TariffRate{}, false, fmt.Errorf("%w: rate %s of tariff %s is negative",
					ErrLookup, rate.Rate, rate.TariffID)
			}
			return rate, ok, nil
		})
}

// BatchResolveBom resolves every item in parallel. Each distinct item gets an
// entry; an item whose lookup failed maps to an empty slice.
func (s *Service) BatchResolveBom(ctx context.Context, itemIDs []string) map[string][]Component {
	meta := s.op("batch_resolve_bom", map[string]string{"batch.size": fmt.Sprint(len(itemIDs))})
	out, _ := observe.Instrument(ctx, s.mw, meta, func(ctx context.Context) (map[string][]Component, error) {
		outcomes := resilience.FanOut(ctx, s.pool, itemIDs,
			func(ctx context.Context, id string) ([]Component, bool, error) {
				parts, err := s.resolveBom(ctx, id)
				return parts, err == nil, err
			})

		boms := make(map[string][]Component, len(outcomes))
		for id, o := range outcomes {
			if o.Err != nil {
				s.logger.Warn(ctx, "bom lookup excluded from batch",
					observe.F("item.id", id), observe.F("error", o.Err))
			}
			if o.OK {
				boms[id] = o.Value
			} else {
				boms[id] = []Component{}
			}
		}
		return boms, nil
	})
	return out
}

// BatchGetEntityTariff resolves every request in parallel and returns the
// requests that have an eligible rate. Failed and absent lookups are left out.
func (s *Service) BatchGetEntityTariff(ctx context.Context, requests []RateRequest) map[RateRequest]TariffRate {
	meta := s.op("batch_get_entity_tariff", map[string]string{"batch.size": fmt.Sprint(len(requests))})
	out, _ := observe.Instrument(ctx, s.mw, meta, func(ctx context.Context) (map[RateRequest]TariffRate, error) {
		outcomes := resilience.FanOut(ctx, s.pool, requests,
			func(ctx context.Context, r RateRequest) (TariffRate, bool, error) {
				return s.getEntityTariff(ctx, r.EntityID, r.TerritoryCode)
			})
		s.logExcluded(ctx, outcomes)
		return resilience.Present(outcomes), nil
	})
	return out
}

func (s *Service) logExcluded(ctx context.Context, outcomes map[RateRequest]resilience.Outcome[TariffRate]) {
	for req, o := range outcomes {
		if o.Err != nil {
			s.logger.Warn(ctx, "rate lookup excluded from batch",
				observe.F("entity.id", req.EntityID),
				observe.F("territory.code", req.TerritoryCode),
				observe.F("error", o.Err))
		}
	}
}

// GetCombinationPolicy returns the policy of an active policy version, or
// PolicyAdditive when none matches. Malformed ids fail with ErrInvalidArgument.
func (s *Service) GetCombinationPolicy(ctx context.Context, policyVersionID string) (Policy, error) {
	meta := s.op("get_combination_policy", map[string]string{"policy_version.id": policyVersionID})
	return observe.Instrument(ctx, s.mw, meta, func(ctx context.Context) (Policy, error) {
		id, err := NormalizeEntity("policy version", policyVersionID)
		if err != nil {
			return PolicyAdditive, err
		}
		p, err := s.lookup.ResolveCombinationPolicy(ctx, id)
		return p, asLookupError(err)
	})
}

// CombineTariff applies policy to an optional item rate and the component
// rates. It performs no I/O.
func (s *Service) CombineTariff(item TariffRate, ok bool, components map[string]TariffRate, policy Policy) Calculation {
	return CombineRates(item, ok, components, policy)
}

// CalculateTotalTariff computes the combined tariff of itemID sold into
// territoryCode. Results are cached as one unit under the result TTL;
// repeated calls before expiry return the cached value.
func (s *Service) CalculateTotalTariff(ctx context.Context, itemID, territoryCode string) (CombinedTariff, error) {
	meta := s.op("calculate_total_tariff", map[string]string{"item.id": itemID, "territory.code": territoryCode})
	return observe.Instrument(ctx, s.mw, meta, func(ctx context.Context) (CombinedTariff, error) {
		return s.calculate(ctx, itemID, territoryCode)
	})
}

// InvalidateTariff drops the cached result for itemID in territoryCode so
// the next calculation recomputes it. Cached BOMs and rates are kept.
func (s *Service) InvalidateTariff(ctx context.Context, itemID, territoryCode string) error {
	item, err := NormalizeEntity("item", itemID)
	if err != nil {
		return err
	}
	territory, err := NormalizeTerritory(territoryCode)
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, s.keyer.Key(PrefixResult, "calculateTotalTariff", item, territory))
	return nil
}

type optionalRate struct {
	rate TariffRate
	ok   bool
}

func (s *Service) calculate(ctx context.Context, itemID, territoryCode string) (CombinedTariff, error) {
	fail := func(stage Stage, err error) (CombinedTariff, error) {
		return CombinedTariff{}, &CalculationError{ItemID: itemID, TerritoryCode: territoryCode, Stage: stage, Err: err}
	}

	// CHECK_CACHE
	item, err := NormalizeEntity("item", itemID)
	if err != nil {
		return fail(StageCheckCache, err)
	}
	territory, err := NormalizeTerritory(territoryCode)
	if err != nil {
		return fail(StageCheckCache, err)
	}
	itemID, territoryCode = item, territory

	key := s.keyer.Key(PrefixResult, "calculateTotalTariff", itemID, territoryCode)
	var cached CombinedTariff
	if s.cache.Read(ctx, key, &cached) {
		return cached, nil
	}

	log := []observe.Field{observe.F("item.id", itemID), observe.F("territory.code", territoryCode)}
	s.logger.Info(ctx, "starting tariff calculation", log...)

	// RESOLVE_BOM_AND_ITEM_RATE
	bomF := resilience.Submit(ctx, s.pool, func(ctx context.Context) ([]Component, error) {
		return s.resolveBom(ctx, itemID)
	})
	rateF := resilience.Submit(ctx, s.pool, func(ctx context.Context) (optionalRate, error) {
		r, ok, err := s.getEntityTariff(ctx, itemID, territoryCode)
		return optionalRate{r, ok}, err
	})
	components, bomErr := bomF.Await()
	itemRate, rateErr := rateF.Await()
	if err := firstErr(bomErr, rateErr); err != nil {
		return fail(StageResolveBOMAndItemRate, err)
	}
	s.logger.Info(ctx, "bom and item rate resolved",
		append(log, observe.F("components", len(components)), observe.F("item_rate.present", itemRate.ok))...)

	// RESOLVE_COMPONENT_RATES
	ids := make([]string, 0, len(components))
	for _, c := range components {
		ids = append(ids, c.ComponentID)
	}
	outcomes := resilience.FanOut(ctx, s.pool, ids, func(ctx context.Context, id string) (TariffRate, bool, error) {
		return s.getEntityTariff(ctx, id, territoryCode)
	})
	for id, o := range outcomes {
		if o.Err != nil {
			s.logger.Warn(ctx, "component rate excluded",
				append(log, observe.F("component.id", id), observe.F("error", o.Err))...)
		}
	}
	rates := resilience.Present(outcomes)
	s.logger.Info(ctx, "component rates resolved", append(log, observe.F("components_with_rates", len(rates)))...)

	// RESOLVE_POLICY
	policy, err := s.resolvePolicy(ctx, itemRate, rates)
	if err != nil {
		return fail(StageResolvePolicy, err)
	}

	// COMBINE
	calc := CombineRates(itemRate.rate, itemRate.ok, rates, policy)
	used := make([]string, 0, len(rates))
	for id := range rates {
		used = append(used, id)
	}
	slices.Sort(used)

	result := CombinedTariff{
		ItemID:         itemID,
		TerritoryCode:  territoryCode,
		ItemRate:       canonicalRate(calc.ItemRate),
		ComponentRate:  canonicalRate(calc.ComponentRate),
		FinalRate:      canonicalRate(calc.FinalRate),
		Policy:         policy,
		ComponentsUsed: used,
		CalculatedAt:   s.now().UTC().Round(0),
	}

	// CACHE_WRITE
	s.cache.Write(ctx, key, result, s.policy.TTLFor(PrefixResult))

	s.logger.Info(ctx, "tariff calculation completed",
		append(log, observe.F("final_rate", result.FinalRate.String()), observe.F("policy", policy.String()))...)
	return result, nil
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// resolvePolicy looks up the policy version referenced by the item rate, or
// failing that by the present component rate with the smallest id. Lookups
// that find nothing or reject the id fall back to PolicyAdditive; I/O
// failures are returned.
func (s *Service) resolvePolicy(ctx context.Context, item optionalRate, rates map[string]TariffRate) (Policy, error) {
	id := policyVersionID(item, rates)
	if id == "" {
		return PolicyAdditive, nil
	}

	p, err := s.lookup.ResolveCombinationPolicy(ctx, id)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, ErrInvalidArgument):
		s.logger.Warn(ctx, "policy version rejected, using ADDITIVE",
			observe.F("policy_version.id", id), observe.F("error", err))
		return PolicyAdditive, nil
	default:
		return PolicyAdditive, asLookupError(err)
	}
}

func policyVersionID(item optionalRate, rates map[string]TariffRate) string {
	if item.ok && item.rate.PolicyVersionID != "" {
		return item.rate.PolicyVersionID
	}
	ids := make([]string, 0, len(rates))
	for id := range rates {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if v := rates[id].PolicyVersionID; v != "" {
			return v
		}
	}
	return ""
}

// HealthCheck reports the service's dependencies as a flat map with keys
// status (healthy, degraded or unhealthy), timestamp and, when not healthy,
// error.
func (s *Service) HealthCheck(ctx context.Context) map[string]string {
	report := s.health.Report(ctx)
	out := map[string]string{
		"status":    report.Status.String(),
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}
	if err := report.Err(); err != nil {
		out["error"] = err.Error()
		if report.Status == health.StatusUnhealthy {
			s.logger.Error(ctx, "health check failed", observe.F("error", out["error"]))
		}
	}
	return out
}

func defaultHealth(lookup RecordLookup, acc *cache.Accessor) *health.Aggregator {
	agg := health.NewAggregator()
	if p, ok := lookup.(Pinger); ok {
		agg.Register("records", health.NewDependencyChecker(health.DependencyCheckerConfig{
			Name:     "records",
			Ping:     p.Ping,
			Critical: true,
		}))
	}
	agg.Register("cache", health.NewDependencyChecker(health.DependencyCheckerConfig{
		Name: "cache",
		Ping: func(ctx context.Context) error {
			if err := acc.Ping(ctx); err != nil && !errors.Is(err, cache.ErrNilCache) {
				return err
			}
			return nil
		},
	}))
	return agg
}
