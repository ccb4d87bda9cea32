// Package carbon converts energy quantities into CO2e mass using grid
// emission factors, and reports avoided emissions for energy interventions.
//
// The conversion functions are pure: they validate their inputs, normalize
// energy to kWh, multiply by the factor and round only where asked. Batch and
// aggregate variants never round per item; the total is rounded once.
package carbon

const (
	// DefaultEfficiency is the efficiency multiplier used when a Methodology
	// leaves Efficiency unset.
	DefaultEfficiency = 1.0

	// DefaultDegradation is the degradation used when a Methodology leaves
	// Degradation unset.
	DefaultDegradation = 0.0

	// MaxUncertaintyPct is the largest accepted plus/minus uncertainty.
	MaxUncertaintyPct = 100.0
)
