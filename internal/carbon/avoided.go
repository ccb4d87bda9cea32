package carbon

import (
	"fmt"

	"github.com/rshade/co2e-engine/internal/detmath"
	"github.com/rshade/co2e-engine/internal/units"
)

// avoidedCalc holds the unrounded figures of one avoided-emissions input.
type avoidedCalc struct {
	kWh         float64 // methodology-adjusted
	kg          float64
	methodology Methodology
}

// AvoidedEmissions computes the emissions avoided by in against its factor.
// Energy is normalized to kWh and adjusted by the input's methodology before
// conversion; EnergyKWh in the result is the adjusted energy. Validation and
// rounding follow ToCO2eWithUncertainty.
func AvoidedEmissions(in AvoidedInput, spec detmath.RoundingSpec) (ConversionResult, error) {
	return avoidedWith("AvoidedEmissions", in, nil, spec)
}

func avoidedWith(op string, in AvoidedInput, fallback *Methodology, spec detmath.RoundingSpec) (ConversionResult, error) {
	spec, err := roundingFor(op, spec)
	if err != nil {
		return ConversionResult{}, err
	}
	calc, err := computeAvoided(op, in, fallback)
	if err != nil {
		return ConversionResult{}, err
	}

	res := buildResult(calc.kWh, in.FactorKgPerKWh, calc.kg, in.Unit, in.UncertaintyPct, spec)
	m := calc.methodology
	res.Metadata.Methodology = &m
	return res, nil
}

// TotalAvoidedEmissions sums kg, tonnes and adjusted energy across inputs
// independently and reports the energy-weighted average factor. Rounding is
// applied once to each aggregate.
func TotalAvoidedEmissions(inputs []AvoidedInput, spec detmath.RoundingSpec) (AvoidedTotal, error) {
	const op = "TotalAvoidedEmissions"

	spec, err := roundingFor(op, spec)
	if err != nil {
		return AvoidedTotal{}, err
	}

	var kg, t, kWh detmath.Accumulator
	for i, in := range inputs {
		calc, cerr := computeAvoided(op, in, nil)
		if cerr != nil {
			return AvoidedTotal{}, fmt.Errorf("input %d: %w", i, cerr)
		}
		kg.Add(calc.kg)
		t.Add(calc.kg / units.KgPerTonne)
		kWh.Add(calc.kWh)
	}

	// sum(factor*energy) is the kg total, since each item's kg is factor*energy.
	var weighted float64
	if totalKWh := kWh.Sum(); totalKWh != 0 {
		weighted = kg.Sum() / totalKWh
	}

	return AvoidedTotal{
		KgCO2e:                 spec.Apply(kg.Sum()),
		TCO2e:                  spec.Apply(t.Sum()),
		EnergyKWh:              spec.Apply(kWh.Sum()),
		WeightedFactorKgPerKWh: spec.Apply(weighted),
		Count:                  len(inputs),
		Rounding:               spec,
	}, nil
}

func computeAvoided(op string, in AvoidedInput, fallback *Methodology) (avoidedCalc, error) {
	kWh, err := normalizedEnergy(op, in.Energy, in.Unit, in.FactorKgPerKWh)
	if err != nil {
		return avoidedCalc{}, err
	}
	if in.UncertaintyPct != nil {
		if err := checkUncertainty(op, *in.UncertaintyPct); err != nil {
			return avoidedCalc{}, err
		}
	}

	m := SelectMethodology(fallback, in.Methodology)
	if err := m.Validate(); err != nil {
		return avoidedCalc{}, err
	}

	adjusted := m.Apply(kWh)
	kg, err := multiply(op, adjusted, in.FactorKgPerKWh)
	if err != nil {
		return avoidedCalc{}, err
	}
	return avoidedCalc{kWh: adjusted, kg: kg, methodology: m}, nil
}
