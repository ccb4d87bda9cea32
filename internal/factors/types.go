// Package factors holds emission factor records and resolves the single
// applicable factor for a (region, scope, date) query.
//
// A Registry owns an immutable Snapshot of the factor table. Loading builds a
// new snapshot and swaps it in atomically, so readers never observe a
// partially loaded table.
package factors

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rshade/co2e-engine/internal/calcerr"
)

// Scope classifies the measurement basis of an emission factor.
type Scope string

const (
	// Operational factors describe the actual average grid intensity.
	Operational Scope = "operational"

	// Marginal factors describe the intensity of incremental generation.
	Marginal Scope = "marginal"

	// Baseline factors are the reference values used for avoided emissions.
	Baseline Scope = "baseline"
)

// Scopes returns all recognized scopes.
func Scopes() []Scope {
	return []Scope{Operational, Marginal, Baseline}
}

// ParseScope resolves s case-insensitively to a Scope.
func ParseScope(s string) (Scope, error) {
	scope := Scope(strings.ToLower(strings.TrimSpace(s)))
	if !scope.Valid() {
		return "", calcerr.New(calcerr.InvalidInput, "ParseScope").
			WithDetail("unknown scope %q (want operational, marginal or baseline)", s)
	}
	return scope, nil
}

// Valid reports whether s is one of the recognized scopes.
func (s Scope) Valid() bool {
	switch s {
	case Operational, Marginal, Baseline:
		return true
	default:
		return false
	}
}

const (
	// GasCO2e is the only gas a factor may describe.
	GasCO2e = "CO2e"

	// World is the region consulted when a region has no factor for a scope.
	World = "WORLD"

	// MaxFactorKgPerKWh is the sanity ceiling for a factor value. No grid
	// on record exceeds it.
	MaxFactorKgPerKWh = 2.0
)

// Source records where a factor value came from.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Date string `json:"date,omitempty"`
	Note string `json:"note,omitempty"`
}

// EmissionFactor is an immutable grid carbon intensity record in kg CO2e per kWh.
type EmissionFactor struct {
	ID             string     `json:"id"`
	Region         string     `json:"region"`
	Scope          Scope      `json:"scope"`
	Gas            string     `json:"gas"`
	ValueKgPerKWh  float64    `json:"valueKgPerKWh"`
	EffectiveFrom  time.Time  `json:"effectiveFrom"`
	EffectiveTo    *time.Time `json:"effectiveTo,omitempty"`
	Source         Source     `json:"source"`
	UncertaintyPct *float64   `json:"uncertaintyPct,omitempty"`
	Version        string     `json:"version,omitempty"`
}

// Validate checks the record invariants: required fields, a known scope, the
// CO2e gas, a positive value no larger than MaxFactorKgPerKWh, an uncertainty
// within 0-100 and EffectiveFrom <= EffectiveTo.
func (f EmissionFactor) Validate() error {
	fail := func(format string, args ...any) error {
		e := calcerr.New(calcerr.InvalidPack, "EmissionFactor.Validate").WithDetail(format, args...)
		e.Region = f.Region
		e.Scope = string(f.Scope)
		return e
	}

	switch {
	case strings.TrimSpace(f.ID) == "":
		return fail("factor id is required")
	case strings.TrimSpace(f.Region) == "":
		return fail("factor %s: region is required", f.ID)
	case !f.Scope.Valid():
		return fail("factor %s: unknown scope %q", f.ID, f.Scope)
	case f.Gas != "" && f.Gas != GasCO2e:
		return fail("factor %s: unsupported gas %q", f.ID, f.Gas)
	case math.IsNaN(f.ValueKgPerKWh) || math.IsInf(f.ValueKgPerKWh, 0):
		return fail("factor %s: value is not finite", f.ID)
	case f.ValueKgPerKWh <= 0 || f.ValueKgPerKWh > MaxFactorKgPerKWh:
		return fail("factor %s: value %v kg/kWh outside (0, %v]", f.ID, f.ValueKgPerKWh, MaxFactorKgPerKWh)
	case f.EffectiveFrom.IsZero():
		return fail("factor %s: effectiveFrom is required", f.ID)
	case f.EffectiveTo != nil && f.EffectiveTo.Before(f.EffectiveFrom):
		return fail("factor %s: effectiveTo %s precedes effectiveFrom %s",
			f.ID, f.EffectiveTo.Format(time.DateOnly), f.EffectiveFrom.Format(time.DateOnly))
	case f.UncertaintyPct != nil && (*f.UncertaintyPct < 0 || *f.UncertaintyPct > 100):
		return fail("factor %s: uncertainty %v%% outside [0, 100]", f.ID, *f.UncertaintyPct)
	case strings.TrimSpace(f.Source.Name) == "":
		return fail("factor %s: source name is required", f.ID)
	}
	return nil
}

// clone copies f so the result shares no pointers with it.
func (f EmissionFactor) clone() EmissionFactor {
	if f.EffectiveTo != nil {
		to := *f.EffectiveTo
		f.EffectiveTo = &to
	}
	if f.UncertaintyPct != nil {
		pct := *f.UncertaintyPct
		f.UncertaintyPct = &pct
	}
	return f
}

// EffectiveOn reports whether d falls within [EffectiveFrom, EffectiveTo],
// treating a nil EffectiveTo as open-ended. Both bounds are inclusive.
func (f EmissionFactor) EffectiveOn(d time.Time) bool {
	day := DateOf(d)
	if day.Before(f.EffectiveFrom) {
		return false
	}
	return f.EffectiveTo == nil || !day.After(*f.EffectiveTo)
}

// Overlaps reports whether the factor's effective range intersects the window
// [from, to]. A nil bound leaves that side of the window open.
func (f EmissionFactor) Overlaps(from, to *time.Time) bool {
	if to != nil && f.EffectiveFrom.After(DateOf(*to)) {
		return false
	}
	if from != nil && f.EffectiveTo != nil && f.EffectiveTo.Before(DateOf(*from)) {
		return false
	}
	return true
}

// RegionMapping maps a canonical region code to its display name and aliases.
type RegionMapping struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	ISO2  string `json:"iso2,omitempty"`
	ISO3  string `json:"iso3,omitempty"`
	UNM49 string `json:"unM49,omitempty"`
}

// aliases returns every non-empty token that identifies the region, uppercased.
func (m RegionMapping) aliases() []string {
	var out []string
	for _, a := range []string{m.Code, m.ISO2, m.ISO3, m.UNM49} {
		if a = strings.ToUpper(strings.TrimSpace(a)); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// ParseDate parses a calendar date in YYYY-MM-DD form as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// MustDate is ParseDate for literals; it panics on malformed input.
func MustDate(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf truncates t to its calendar date at midnight UTC, using t's own
// location to decide which day it is.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
