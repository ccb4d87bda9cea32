package carbon

import (
	"math"

	"github.com/rshade/co2e-engine/internal/calcerr"
	"github.com/rshade/co2e-engine/internal/detmath"
	"github.com/rshade/co2e-engine/internal/units"
)

// ToCO2eKg converts energy in unit to kg CO2e using factorKgPerKWh.
//
// Inputs are checked in order: non-finite energy or factor, negative energy,
// negative factor, then the unit. The result is not rounded.
func ToCO2eKg(energy float64, unit units.EnergyUnit, factorKgPerKWh float64) (float64, error) {
	kWh, err := normalizedEnergy("ToCO2eKg", energy, unit, factorKgPerKWh)
	if err != nil {
		return 0, err
	}
	return multiply("ToCO2eKg", kWh, factorKgPerKWh)
}

// ToCO2eTonnes is ToCO2eKg divided by 1000, without rounding.
func ToCO2eTonnes(energy float64, unit units.EnergyUnit, factorKgPerKWh float64) (float64, error) {
	kg, err := ToCO2eKg(energy, unit, factorKgPerKWh)
	if err != nil {
		return 0, err
	}
	return kg / units.KgPerTonne, nil
}

// ToCO2eKgRounded is ToCO2eKg rounded with spec. The zero spec means
// DefaultRounding.
func ToCO2eKgRounded(energy float64, unit units.EnergyUnit, factorKgPerKWh float64, spec detmath.RoundingSpec) (float64, error) {
	spec, err := roundingFor("ToCO2eKgRounded", spec)
	if err != nil {
		return 0, err
	}
	kg, err := ToCO2eKg(energy, unit, factorKgPerKWh)
	if err != nil {
		return 0, err
	}
	return spec.Apply(kg), nil
}

// ToCO2eTonnesRounded is ToCO2eTonnes rounded with spec.
func ToCO2eTonnesRounded(energy float64, unit units.EnergyUnit, factorKgPerKWh float64, spec detmath.RoundingSpec) (float64, error) {
	spec, err := roundingFor("ToCO2eTonnesRounded", spec)
	if err != nil {
		return 0, err
	}
	t, err := ToCO2eTonnes(energy, unit, factorKgPerKWh)
	if err != nil {
		return 0, err
	}
	return spec.Apply(t), nil
}

// ToCO2eWithUncertainty converts and attaches base ± base·pct/100 bounds in
// tonnes. The base value and each bound are rounded independently with spec.
func ToCO2eWithUncertainty(energy float64, unit units.EnergyUnit, factorKgPerKWh, pct float64, spec detmath.RoundingSpec) (ConversionResult, error) {
	const op = "ToCO2eWithUncertainty"

	spec, err := roundingFor(op, spec)
	if err != nil {
		return ConversionResult{}, err
	}
	kWh, err := normalizedEnergy(op, energy, unit, factorKgPerKWh)
	if err != nil {
		return ConversionResult{}, err
	}
	if err := checkUncertainty(op, pct); err != nil {
		return ConversionResult{}, err
	}
	kg, err := multiply(op, kWh, factorKgPerKWh)
	if err != nil {
		return ConversionResult{}, err
	}
	return buildResult(kWh, factorKgPerKWh, kg, unit, &pct, spec), nil
}

// normalizedEnergy validates a conversion's inputs and returns energy in kWh.
func normalizedEnergy(op string, energy float64, unit units.EnergyUnit, factor float64) (float64, error) {
	if err := checkEnergy(op, energy); err != nil {
		return 0, err
	}
	switch {
	case !isFinite(factor):
		return 0, calcerr.New(calcerr.NonFiniteInput, op).WithValue(factor).WithDetail("emission factor must be finite")
	case factor < 0:
		return 0, calcerr.New(calcerr.NegativeFactor, op).WithValue(factor)
	}

	kWh, err := units.NormalizeEnergy(energy, unit)
	if err != nil {
		return 0, err
	}
	if !isFinite(kWh) {
		return 0, calcerr.New(calcerr.NonFiniteInput, op).WithValue(energy).
			WithDetail("energy overflows when normalized from %s", unit)
	}
	return kWh, nil
}

// checkEnergy rejects a non-finite or negative energy quantity.
func checkEnergy(op string, energy float64) error {
	switch {
	case !isFinite(energy):
		return calcerr.New(calcerr.NonFiniteInput, op).WithValue(energy).WithDetail("energy must be finite")
	case energy < 0:
		return calcerr.New(calcerr.NegativeEnergy, op).WithValue(energy)
	}
	return nil
}

// multiply forms kWh × factor and rejects an overflowed product.
func multiply(op string, kWh, factor float64) (float64, error) {
	kg := detmath.SafeMultiply(kWh, factor)
	if !isFinite(kg) {
		return 0, calcerr.New(calcerr.NonFiniteInput, op).WithDetail("product %v × %v overflows", kWh, factor)
	}
	return kg, nil
}

// buildResult rounds the unrounded kg figure into a ConversionResult. A nil
// pct leaves Uncertainty unset.
func buildResult(kWh, factor, kg float64, unit units.EnergyUnit, pct *float64, spec detmath.RoundingSpec) ConversionResult {
	t := kg / units.KgPerTonne
	res := ConversionResult{
		KgCO2e:         spec.Apply(kg),
		TCO2e:          spec.Apply(t),
		FactorKgPerKWh: factor,
		EnergyKWh:      spec.Apply(kWh),
		Metadata: Metadata{
			InputUnit: unit,
			Rounding:  spec,
		},
	}
	if pct != nil {
		delta := t * *pct / 100
		res.Uncertainty = &Uncertainty{
			PlusMinusPct: *pct,
			LowerTCO2e:   spec.Apply(t - delta),
			UpperTCO2e:   spec.Apply(t + delta),
		}
	}
	return res
}

// roundingFor fills defaults, canonicalizes the mode name and validates spec.
func roundingFor(op string, spec detmath.RoundingSpec) (detmath.RoundingSpec, error) {
	spec = spec.OrDefault()
	if err := spec.Validate(); err != nil {
		return spec, &calcerr.Error{Kind: calcerr.InvalidInput, Op: op, Err: err}
	}
	spec.Mode, _ = detmath.ParseMode(string(spec.Mode))
	return spec, nil
}

func checkUncertainty(op string, pct float64) error {
	if !isFinite(pct) {
		return calcerr.New(calcerr.NonFiniteInput, op).WithValue(pct).WithDetail("uncertainty must be finite")
	}
	if pct < 0 || pct > MaxUncertaintyPct {
		return calcerr.New(calcerr.InvalidInput, op).WithValue(pct).
			WithDetail("uncertainty must be within 0-%v%%", MaxUncertaintyPct)
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
