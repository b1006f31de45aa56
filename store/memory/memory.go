// Package memory is an in-process tariff.RecordLookup. It applies the same
// eligibility rules as the PostgreSQL store and backs tests and the CLI's
// demo mode.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/tariffops/tariff"
)

// PolicyVersion is a time-bounded combination policy record.
type PolicyVersion struct {
	ID          uuid.UUID
	Description string
	StartDate   time.Time
	EndDate     *time.Time
}

func (v PolicyVersion) activeAt(t time.Time) bool {
	if v.StartDate.After(t) {
		return false
	}
	return v.EndDate == nil || v.EndDate.After(t)
}

// Store holds records in maps guarded by a RWMutex.
type Store struct {
	mu       sync.RWMutex
	items    map[string][]string
	parts    map[string]tariff.Component
	rates    map[tariff.RateRequest][]tariff.TariffRate
	policies map[uuid.UUID]PolicyVersion
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for eligibility checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		items:    make(map[string][]string),
		parts:    make(map[string]tariff.Component),
		rates:    make(map[tariff.RateRequest][]tariff.TariffRate),
		policies: make(map[uuid.UUID]PolicyVersion),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddComponents attaches components to itemID.
func (s *Store) AddComponents(itemID string, components ...tariff.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range components {
		s.parts[c.ComponentID] = c
		if !slices.Contains(s.items[itemID], c.ComponentID) {
			s.items[itemID] = append(s.items[itemID], c.ComponentID)
		}
	}
}

// AddRate stores r under its entity and upper-cased territory. Negative
// rates are rejected.
func (s *Store) AddRate(r tariff.TariffRate) error {
	territory, err := tariff.NormalizeTerritory(r.TerritoryCode)
	if err != nil {
		return err
	}
	if r.Rate.IsNegative() {
		return fmt.Errorf("%w: rate %s is negative", tariff.ErrInvalidArgument, r.Rate)
	}
	r.TerritoryCode = territory

	s.mu.Lock()
	defer s.mu.Unlock()
	key := tariff.RateRequest{EntityID: r.EntityID, TerritoryCode: territory}
	s.rates[key] = append(s.rates[key], r)
	return nil
}

// AddPolicyVersion stores v, replacing any version with the same id.
func (s *Store) AddPolicyVersion(v PolicyVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[v.ID] = v
}

// ResolveComponents returns the components of itemID ordered by id.
func (s *Store) ResolveComponents(_ context.Context, itemID string) ([]tariff.Component, error) {
	itemID, err := tariff.NormalizeEntity("item", itemID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tariff.Component, 0, len(s.items[itemID]))
	for _, id := range s.items[itemID] {
		out = append(out, s.parts[id])
	}
	slices.SortFunc(out, func(a, b tariff.Component) int {
		return strings.Compare(a.ComponentID, b.ComponentID)
	})
	return out, nil
}

// ResolveRate returns the eligible rate with the lowest level, newest start
// date first, whose policy version is also active.
func (s *Store) ResolveRate(_ context.Context, entityID, territoryCode string) (tariff.TariffRate, bool, error) {
	entityID, err := tariff.NormalizeEntity("entity", entityID)
	if err != nil {
		return tariff.TariffRate{}, false, err
	}
	territoryCode, err = tariff.NormalizeTerritory(territoryCode)
	if err != nil {
		return tariff.TariffRate{}, false, err
	}

	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var eligible []tariff.TariffRate
	for _, r := range s.rates[tariff.RateRequest{EntityID: entityID, TerritoryCode: territoryCode}] {
		if r.StartDate == nil || !r.ActiveOn(now) || !s.policyActiveOn(r.PolicyVersionID, now) {
			continue
		}
		eligible = append(eligible, r)
	}
	if len(eligible) == 0 {
		return tariff.TariffRate{}, false, nil
	}

	slices.SortStableFunc(eligible, func(a, b tariff.TariffRate) int {
		if c := cmp.Compare(a.Level, b.Level); c != 0 {
			return c
		}
		return b.StartDate.Compare(*a.StartDate)
	})
	return eligible[0], true, nil
}

// policyActiveOn mirrors the inner join on policy versions: the version
// must exist and cover the calendar day of t.
func (s *Store) policyActiveOn(id string, t time.Time) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	v, ok := s.policies[parsed]
	if !ok {
		return false
	}
	return tariff.TariffRate{Status: tariff.StatusActive, StartDate: &v.StartDate, EndDate: v.EndDate}.ActiveOn(t)
}

// ResolveCombinationPolicy returns the policy of an active version.
func (s *Store) ResolveCombinationPolicy(_ context.Context, policyVersionID string) (tariff.Policy, error) {
	id, err := uuid.Parse(policyVersionID)
	if err != nil {
		return tariff.PolicyAdditive, fmt.Errorf("%w: policy version id %q is not a valid uuid",
			tariff.ErrInvalidArgument, policyVersionID)
	}

	s.mu.RLock()
	v, ok := s.policies[id]
	s.mu.RUnlock()
	if !ok || !v.activeAt(s.now()) {
		return tariff.PolicyAdditive, nil
	}
	return tariff.MatchPolicy(v.Description), nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

var (
	_ tariff.RecordLookup = (*Store)(nil)
	_ tariff.Pinger       = (*Store)(nil)
)
