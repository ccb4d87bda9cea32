package factors

import (
	"strings"
	"time"

	"github.com/rshade/co2e-engine/internal/calcerr"
)

// Snapshot is an immutable factor table plus its region alias index.
type Snapshot struct {
	factors  []EmissionFactor
	regions  []RegionMapping
	aliases  map[string]string // uppercased alias -> canonical code
	loadedAt time.Time
}

// Query selects a factor. A zero Date means the query is undated.
type Query struct {
	Region string
	Scope  Scope
	Date   time.Time
}

// Filter narrows List. Every set field must match; zero fields match all.
type Filter struct {
	Region string
	Scope  Scope
	From   *time.Time
	To     *time.Time
}

type resolution struct {
	factor   EmissionFactor
	region   string // normalized region as queried
	fellBack bool
}

// NewSnapshot validates and indexes a factor table. Factor order is kept as
// given and is the tie-break order for resolution.
func NewSnapshot(factors []EmissionFactor, regions []RegionMapping) (*Snapshot, error) {
	s := &Snapshot{
		factors: make([]EmissionFactor, 0, len(factors)),
		regions: make([]RegionMapping, 0, len(regions)),
		aliases: make(map[string]string, len(regions)*4),
	}

	for _, m := range regions {
		m.Code = strings.ToUpper(strings.TrimSpace(m.Code))
		if m.Code == "" {
			return nil, calcerr.New(calcerr.InvalidPack, "NewSnapshot").
				WithDetail("region mapping %q has no code", m.Name)
		}
		for _, alias := range m.aliases() {
			if existing, ok := s.aliases[alias]; ok && existing != m.Code {
				return nil, calcerr.New(calcerr.InvalidPack, "NewSnapshot").
					WithDetail("alias %q maps to both %s and %s", alias, existing, m.Code)
			}
			s.aliases[alias] = m.Code
		}
		s.regions = append(s.regions, m)
	}

	seen := make(map[string]struct{}, len(factors))
	for _, f := range factors {
		f.Region = strings.ToUpper(strings.TrimSpace(f.Region))
		if f.Gas == "" {
			f.Gas = GasCO2e
		}
		f.EffectiveFrom = DateOf(f.EffectiveFrom)
		f = f.clone()
		if f.EffectiveTo != nil {
			*f.EffectiveTo = DateOf(*f.EffectiveTo)
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[f.ID]; dup {
			return nil, calcerr.New(calcerr.InvalidPack, "NewSnapshot").
				WithDetail("duplicate factor id %q", f.ID)
		}
		seen[f.ID] = struct{}{}
		s.factors = append(s.factors, f)
	}

	return s, nil
}

// Len returns the number of factors in the table.
func (s *Snapshot) Len() int {
	return len(s.factors)
}

// LoadedAt returns when the snapshot was installed in a Registry.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Factors returns a deep copy of the table in load order.
func (s *Snapshot) Factors() []EmissionFactor {
	out := make([]EmissionFactor, len(s.factors))
	for i, f := range s.factors {
		out[i] = f.clone()
	}
	return out
}

// Regions returns a copy of the region mappings in load order.
func (s *Snapshot) Regions() []RegionMapping {
	out := make([]RegionMapping, len(s.regions))
	copy(out, s.regions)
	return out
}

// Region returns the mapping for a region code or alias.
func (s *Snapshot) Region(region string) (RegionMapping, bool) {
	code := s.NormalizeRegion(region)
	for _, m := range s.regions {
		if m.Code == code {
			return m, true
		}
	}
	return RegionMapping{}, false
}

// NormalizeRegion uppercases region and substitutes the canonical code when
// it matches a known alias (code, ISO2, ISO3 or UN M49). Unknown regions are
// returned uppercased so custom regions keep working.
func (s *Snapshot) NormalizeRegion(region string) string {
	upper := strings.ToUpper(strings.TrimSpace(region))
	if code, ok := s.aliases[upper]; ok {
		return code
	}
	return upper
}

// Resolve returns the single applicable factor for q:
//
//  1. the region is normalized;
//  2. candidates are factors with exactly that region and scope;
//  3. with no candidates, the WORLD factors for the scope are used instead;
//  4. still none: UnknownRegion;
//  5. with a date, candidates not effective on it are dropped (none left:
//     NoFactorForDate naming the queried region) and the latest
//     EffectiveFrom wins, earlier table position breaking ties;
//  6. without a date, the policy picks: TableOrder takes the first candidate,
//     LatestEffective the latest EffectiveFrom.
func (s *Snapshot) Resolve(q Query, policy UndatedPolicy) (EmissionFactor, error) {
	res, err := s.resolve(q, policy)
	if err != nil {
		return EmissionFactor{}, err
	}
	return res.factor, nil
}

func (s *Snapshot) resolve(q Query, policy UndatedPolicy) (resolution, error) {
	if len(s.factors) == 0 {
		return resolution{}, uninitialized("Resolve")
	}

	region := s.NormalizeRegion(q.Region)
	res := resolution{region: region}

	candidates := s.match(region, q.Scope)
	if len(candidates) == 0 && region != World {
		candidates = s.match(World, q.Scope)
		res.fellBack = len(candidates) > 0
	}
	if len(candidates) == 0 {
		return resolution{}, &calcerr.Error{
			Kind:   calcerr.UnknownRegion,
			Op:     "Resolve",
			Region: region,
			Scope:  string(q.Scope),
			Detail: "no factor for region or WORLD",
		}
	}

	if !q.Date.IsZero() {
		var effective []EmissionFactor
		for _, f := range candidates {
			if f.EffectiveOn(q.Date) {
				effective = append(effective, f)
			}
		}
		if len(effective) == 0 {
			return resolution{}, &calcerr.Error{
				Kind:   calcerr.NoFactorForDate,
				Op:     "Resolve",
				Region: region,
				Scope:  string(q.Scope),
				Date:   DateOf(q.Date),
			}
		}
		res.factor = latest(effective)
		return res, nil
	}

	if policy == LatestEffective {
		res.factor = latest(candidates)
	} else {
		res.factor = candidates[0]
	}
	return res, nil
}

// List returns the factors matching every set predicate of filter, in table
// order. Date predicates match on overlap with [From, To], not containment.
func (s *Snapshot) List(filter Filter) []EmissionFactor {
	region := ""
	if filter.Region != "" {
		region = s.NormalizeRegion(filter.Region)
	}

	var out []EmissionFactor
	for _, f := range s.factors {
		if region != "" && f.Region != region {
			continue
		}
		if filter.Scope != "" && f.Scope != filter.Scope {
			continue
		}
		if !f.Overlaps(filter.From, filter.To) {
			continue
		}
		out = append(out, f.clone())
	}
	return out
}

// Latest returns the factor for region and scope with the greatest
// EffectiveFrom, or false if none matches.
func (s *Snapshot) Latest(region string, scope Scope) (EmissionFactor, bool) {
	candidates := s.match(s.NormalizeRegion(region), scope)
	if len(candidates) == 0 {
		return EmissionFactor{}, false
	}
	return latest(candidates), true
}

// match returns copies of the factors with exactly region and scope, in
// table order.
func (s *Snapshot) match(region string, scope Scope) []EmissionFactor {
	var out []EmissionFactor
	for _, f := range s.factors {
		if f.Region == region && f.Scope == scope {
			out = append(out, f.clone())
		}
	}
	return out
}

// latest returns the candidate with the greatest EffectiveFrom; the earliest
// in table order wins ties. candidates must be non-empty.
func latest(candidates []EmissionFactor) EmissionFactor {
	best := candidates[0]
	for _, f := range candidates[1:] {
		if f.EffectiveFrom.After(best.EffectiveFrom) {
			best = f
		}
	}
	return best
}
