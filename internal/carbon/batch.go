package carbon

import (
	"fmt"

	"github.com/rshade/co2e-engine/internal/detmath"
)

// BatchToCO2eTonnes converts every item independently and sums the unrounded
// tonnes with compensated summation. Only the total is rounded. The first
// failing item aborts the batch.
func BatchToCO2eTonnes(items []EnergyInput, spec detmath.RoundingSpec) (BatchResult, error) {
	spec, err := roundingFor("BatchToCO2eTonnes", spec)
	if err != nil {
		return BatchResult{}, err
	}

	out := BatchResult{
		ItemsTCO2e: make([]float64, 0, len(items)),
		Rounding:   spec,
	}
	var acc detmath.Accumulator
	for i, item := range items {
		t, terr := ToCO2eTonnes(item.Energy, item.Unit, item.FactorKgPerKWh)
		if terr != nil {
			return BatchResult{}, fmt.Errorf("item %d: %w", i, terr)
		}
		out.ItemsTCO2e = append(out.ItemsTCO2e, t)
		acc.Add(t)
	}
	out.TotalTCO2e = spec.Apply(acc.Sum())
	return out, nil
}

// TotalCO2eTonnes returns the rounded total of BatchToCO2eTonnes.
func TotalCO2eTonnes(items []EnergyInput, spec detmath.RoundingSpec) (float64, error) {
	res, err := BatchToCO2eTonnes(items, spec)
	if err != nil {
		return 0, err
	}
	return res.TotalTCO2e, nil
}
