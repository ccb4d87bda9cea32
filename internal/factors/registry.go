package factors

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/co2e-engine/internal/calcerr"
)

// UndatedPolicy decides which candidate Resolve returns when the query has no date.
type UndatedPolicy string

const (
	// TableOrder returns the first matching factor in load order. Callers that
	// want the most recent factor must pass a date.
	TableOrder UndatedPolicy = "table-order"

	// LatestEffective returns the matching factor with the latest EffectiveFrom.
	LatestEffective UndatedPolicy = "latest"
)

// ParseUndatedPolicy resolves a policy name.
func ParseUndatedPolicy(s string) (UndatedPolicy, error) {
	switch p := UndatedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case TableOrder, LatestEffective:
		return p, nil
	default:
		return "", fmt.Errorf("unknown undated policy %q (want %q or %q)", s, TableOrder, LatestEffective)
	}
}

// Resolver resolves the applicable factor for a query.
type Resolver interface {
	Resolve(q Query) (EmissionFactor, error)
}

// Registry owns the factor table for its lifetime. The zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	current atomic.Pointer[Snapshot]
	logger  zerolog.Logger // logger is immutable (copy-on-write)
	policy  UndatedPolicy
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger attaches a logger for load and fallback diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger.With().Str("component", "factors").Logger()
	}
}

// WithUndatedPolicy sets the policy for queries without a date.
func WithUndatedPolicy(p UndatedPolicy) Option {
	return func(r *Registry) {
		r.policy = p
	}
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry returns an empty registry. Resolution fails with
// RegistryUninitialized until Load succeeds.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger: zerolog.Nop(),
		policy: TableOrder,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the undated resolution policy in effect.
func (r *Registry) Policy() UndatedPolicy {
	return r.policy
}

// Load validates factors and regions, builds a new snapshot and replaces the
// current one wholesale. On error the current snapshot is left untouched.
//
// Region codes are uppercased, dates are truncated to calendar days and an
// empty Gas is set to CO2e. Input slices are copied.
func (r *Registry) Load(factors []EmissionFactor, regions []RegionMapping) (*Snapshot, error) {
	snap, err := NewSnapshot(factors, regions)
	if err != nil {
		r.logger.Error().Err(err).Int("factors", len(factors)).Msg("factor table rejected")
		return nil, err
	}
	snap.loadedAt = r.now().UTC()

	prev := r.current.Swap(snap)
	ev := r.logger.Info().
		Int("factors", snap.Len()).
		Int("regions", len(snap.regions)).
		Str("policy", string(r.policy))
	if prev != nil {
		ev = ev.Int("replaced_factors", prev.Len())
	}
	ev.Msg("factor table loaded")

	return snap, nil
}

// Clear drops the current table. Subsequent resolutions fail with
// RegistryUninitialized.
func (r *Registry) Clear() {
	r.current.Store(nil)
	r.logger.Info().Msg("factor table cleared")
}

// Snapshot returns the current snapshot, or nil before the first Load.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Resolve returns the single applicable factor for q using the registry's
// undated policy. See Snapshot.Resolve for the selection rules.
func (r *Registry) Resolve(q Query) (EmissionFactor, error) {
	snap := r.current.Load()
	if snap == nil {
		return EmissionFactor{}, uninitialized("Resolve")
	}

	res, err := snap.resolve(q, r.policy)
	if err != nil {
		r.logger.Debug().Err(err).
			Str("region", q.Region).
			Str("scope", string(q.Scope)).
			Msg("factor resolution failed")
		return EmissionFactor{}, err
	}
	if res.fellBack {
		r.logger.Debug().
			Str("region", res.region).
			Str("scope", string(q.Scope)).
			Str("factor_id", res.factor.ID).
			Msg("no factor for region, using WORLD")
	}
	return res.factor, nil
}

// List returns the factors matching filter in table order.
func (r *Registry) List(filter Filter) []EmissionFactor {
	snap := r.current.Load()
	if snap == nil {
		return nil
	}
	return snap.List(filter)
}

// Latest returns the factor for region and scope with the latest
// EffectiveFrom. No WORLD fallback is applied.
func (r *Registry) Latest(region string, scope Scope) (EmissionFactor, bool) {
	snap := r.current.Load()
	if snap == nil {
		return EmissionFactor{}, false
	}
	return snap.Latest(region, scope)
}

// NormalizeRegion maps region to its canonical code using the current
// snapshot's aliases.
func (r *Registry) NormalizeRegion(region string) string {
	snap := r.current.Load()
	if snap == nil {
		return strings.ToUpper(strings.TrimSpace(region))
	}
	return snap.NormalizeRegion(region)
}

func uninitialized(op string) error {
	return calcerr.New(calcerr.RegistryUninitialized, op).
		WithDetail("load a factor pack before resolving factors")
}
