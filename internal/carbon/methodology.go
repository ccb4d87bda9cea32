package carbon

import (
	"math"

	"github.com/rshade/co2e-engine/internal/calcerr"
	"github.com/rshade/co2e-engine/internal/detmath"
)

// Methodology holds the multipliers applied to energy before an avoided
// emissions conversion: adjusted = energy × Efficiency × (1 − Degradation).
type Methodology struct {
	// Efficiency in (0, 1]. Zero on a per-item or fallback methodology means
	// DefaultEfficiency; Validate rejects it.
	Efficiency float64 `json:"efficiency" yaml:"efficiency"`

	// Degradation in [0, 1).
	Degradation float64 `json:"degradation" yaml:"degradation"`
}

// DefaultMethodology returns the identity methodology.
func DefaultMethodology() Methodology {
	return Methodology{Efficiency: DefaultEfficiency, Degradation: DefaultDegradation}
}

// OrDefault fills an unset Efficiency with DefaultEfficiency.
func (m Methodology) OrDefault() Methodology {
	if m.Efficiency == 0 {
		m.Efficiency = DefaultEfficiency
	}
	return m
}

// Validate checks the multipliers are finite and within range.
func (m Methodology) Validate() error {
	invalid := func(v float64, detail string) error {
		kind := calcerr.InvalidInput
		if math.IsNaN(v) || math.IsInf(v, 0) {
			kind = calcerr.NonFiniteInput
		}
		return calcerr.New(kind, "Methodology.Validate").WithValue(v).WithDetail("%s", detail)
	}
	if !(m.Efficiency > 0 && m.Efficiency <= 1) {
		return invalid(m.Efficiency, "efficiency must be within (0, 1]")
	}
	if !(m.Degradation >= 0 && m.Degradation < 1) {
		return invalid(m.Degradation, "degradation must be within [0, 1)")
	}
	return nil
}

// Apply returns kWh adjusted by the methodology.
func (m Methodology) Apply(kWh float64) float64 {
	return detmath.SafeMultiply(detmath.SafeMultiply(kWh, m.Efficiency), 1-m.Degradation)
}

// SelectMethodology picks the methodology for one input.
// Priority order: item > fallback > DefaultMethodology.
// The result has defaults filled in but is not validated.
func SelectMethodology(fallback, item *Methodology) Methodology {
	if item != nil {
		return item.OrDefault()
	}
	if fallback != nil {
		return fallback.OrDefault()
	}
	return DefaultMethodology()
}
