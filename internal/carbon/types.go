package carbon

import (
	"time"

	"github.com/rshade/co2e-engine/internal/detmath"
	"github.com/rshade/co2e-engine/internal/factors"
	"github.com/rshade/co2e-engine/internal/units"
)

// EnergyInput is one energy quantity with the factor to apply to it.
type EnergyInput struct {
	// Energy is the energy magnitude in Unit. Must be >= 0.
	Energy float64 `json:"energy"`

	// Unit is the energy unit (kWh, MWh, GWh).
	Unit units.EnergyUnit `json:"unit"`

	// FactorKgPerKWh is the emission factor in kg CO2e per kWh. Must be >= 0.
	FactorKgPerKWh float64 `json:"factorKgPerKWh"`
}

// ConversionRequest asks an Estimator for a conversion. When Query is nil
// FactorKgPerKWh is used as given; otherwise the factor is resolved.
type ConversionRequest struct {
	Energy         float64
	Unit           units.EnergyUnit
	FactorKgPerKWh float64
	Query          *factors.Query

	// UncertaintyPct overrides the resolved factor's uncertainty.
	UncertaintyPct *float64

	// Methodology overrides the estimator default for avoided emissions.
	Methodology *Methodology
}

// Uncertainty holds plus/minus bounds around a tonnes result.
type Uncertainty struct {
	PlusMinusPct float64 `json:"plusMinusPct"`
	LowerTCO2e   float64 `json:"lowerTCO2e"`
	UpperTCO2e   float64 `json:"upperTCO2e"`
}

// Metadata records how a result was produced.
type Metadata struct {
	InputUnit   units.EnergyUnit     `json:"inputUnit"`
	Rounding    detmath.RoundingSpec `json:"rounding"`
	Timestamp   *time.Time           `json:"timestamp,omitempty"`
	FactorID    string               `json:"factorId,omitempty"`
	Region      string               `json:"region,omitempty"`
	Scope       factors.Scope        `json:"scope,omitempty"`
	Methodology *Methodology         `json:"methodology,omitempty"`
}

// ConversionResult is the immutable output of a conversion. Mass and energy
// fields are rounded with Metadata.Rounding.
type ConversionResult struct {
	KgCO2e         float64      `json:"kgCO2e"`
	TCO2e          float64      `json:"tCO2e"`
	FactorKgPerKWh float64      `json:"factorKgPerKWh"`
	EnergyKWh      float64      `json:"energyKWh"`
	Uncertainty    *Uncertainty `json:"uncertainty,omitempty"`
	Metadata       Metadata     `json:"metadata"`
}

// BatchResult holds per-item tonnes, unrounded, and their total rounded once.
type BatchResult struct {
	ItemsTCO2e []float64            `json:"itemsTCO2e"`
	TotalTCO2e float64              `json:"totalTCO2e"`
	Rounding   detmath.RoundingSpec `json:"rounding"`
}

// AvoidedInput is one energy intervention for the avoided-emissions calculator.
type AvoidedInput struct {
	Energy         float64          `json:"energy"`
	Unit           units.EnergyUnit `json:"unit"`
	FactorKgPerKWh float64          `json:"factorKgPerKWh"`
	UncertaintyPct *float64         `json:"uncertaintyPct,omitempty"`
	Methodology    *Methodology     `json:"methodology,omitempty"`
}

// AvoidedTotal aggregates a list of avoided-emissions inputs.
type AvoidedTotal struct {
	KgCO2e float64 `json:"kgCO2e"`
	TCO2e  float64 `json:"tCO2e"`

	// EnergyKWh is the summed methodology-adjusted energy.
	EnergyKWh float64 `json:"energyKWh"`

	// WeightedFactorKgPerKWh is sum(factor*energy)/sum(energy), or 0 when the
	// total energy is 0.
	WeightedFactorKgPerKWh float64 `json:"weightedFactorKgPerKWh"`

	Count    int                  `json:"count"`
	Rounding detmath.RoundingSpec `json:"rounding"`
}
