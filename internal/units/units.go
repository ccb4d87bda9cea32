// Package units normalizes energy and mass magnitudes between the units the
// conversion engine accepts. All scale factors are exact powers of 1000 and no
// rounding is applied.
package units

import (
	"strings"

	"github.com/rshade/co2e-engine/internal/calcerr"
)

// EnergyUnit is a recognized energy unit token.
type EnergyUnit string

// Energy units. KWh is canonical.
const (
	KWh EnergyUnit = "kWh"
	MWh EnergyUnit = "MWh"
	GWh EnergyUnit = "GWh"
)

// MassUnit is a recognized mass unit token.
type MassUnit string

// Mass units. Kg is canonical.
const (
	Kg     MassUnit = "kg"
	Tonnes MassUnit = "t"
)

// Scale factors to the canonical unit.
const (
	KWhPerKWh = 1.0
	KWhPerMWh = 1_000.0
	KWhPerGWh = 1_000_000.0

	KgPerKg    = 1.0
	KgPerTonne = 1_000.0
)

// EnergyUnits lists the recognized energy units in ascending magnitude.
func EnergyUnits() []EnergyUnit {
	return []EnergyUnit{KWh, MWh, GWh}
}

// ParseEnergyUnit resolves a unit token, case-insensitively, to an EnergyUnit.
func ParseEnergyUnit(token string) (EnergyUnit, error) {
	if _, ok := energyFactor(token); !ok {
		return "", &calcerr.Error{Kind: calcerr.InvalidUnit, Op: "ParseEnergyUnit", Unit: token}
	}
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "mwh":
		return MWh, nil
	case "gwh":
		return GWh, nil
	default:
		return KWh, nil
	}
}

// ParseMassUnit resolves a unit token, case-insensitively, to a MassUnit.
// "t", "tonne" and "tonnes" all map to Tonnes.
func ParseMassUnit(token string) (MassUnit, error) {
	factor, ok := massFactor(token)
	if !ok {
		return "", &calcerr.Error{Kind: calcerr.InvalidUnit, Op: "ParseMassUnit", Unit: token}
	}
	if factor == KgPerTonne {
		return Tonnes, nil
	}
	return Kg, nil
}

// energyFactor returns the kWh multiplier for token and whether it is recognized.
func energyFactor(token string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "kwh":
		return KWhPerKWh, true
	case "mwh":
		return KWhPerMWh, true
	case "gwh":
		return KWhPerGWh, true
	default:
		return 0, false
	}
}

// massFactor returns the kg multiplier for token and whether it is recognized.
func massFactor(token string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "kg":
		return KgPerKg, true
	case "t", "tonne", "tonnes":
		return KgPerTonne, true
	default:
		return 0, false
	}
}

// NormalizeEnergy converts value expressed in unit to kWh.
//
// Returns an InvalidUnit error naming the token if unit is not kWh, MWh or GWh.
func NormalizeEnergy(value float64, unit EnergyUnit) (float64, error) {
	factor, ok := energyFactor(string(unit))
	if !ok {
		return 0, &calcerr.Error{Kind: calcerr.InvalidUnit, Op: "NormalizeEnergy", Unit: string(unit)}
	}
	return value * factor, nil
}

// DenormalizeEnergy converts a kWh value back into unit.
func DenormalizeEnergy(kWh float64, unit EnergyUnit) (float64, error) {
	factor, ok := energyFactor(string(unit))
	if !ok {
		return 0, &calcerr.Error{Kind: calcerr.InvalidUnit, Op: "DenormalizeEnergy", Unit: string(unit)}
	}
	return kWh / factor, nil
}

// NormalizeMass converts value expressed in unit to kilograms.
func NormalizeMass(value float64, unit MassUnit) (float64, error) {
	factor, ok := massFactor(string(unit))
	if !ok {
		return 0, &calcerr.Error{Kind: calcerr.InvalidUnit, Op: "NormalizeMass", Unit: string(unit)}
	}
	return value * factor, nil
}

// ConvertMass converts value between two mass units.
func ConvertMass(value float64, from, to MassUnit) (float64, error) {
	kg, err := NormalizeMass(value, from)
	if err != nil {
		return 0, err
	}
	factor, ok := massFactor(string(to))
	if !ok {
		return 0, &calcerr.Error{Kind: calcerr.InvalidUnit, Op: "ConvertMass", Unit: string(to)}
	}
	return kg / factor, nil
}
