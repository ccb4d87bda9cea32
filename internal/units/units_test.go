package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/co2e-engine/internal/calcerr"
)

func TestNormalizeEnergy(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		unit    EnergyUnit
		wantKWh float64
		wantErr bool
	}{
		{name: "kWh identity", value: 12345.678, unit: KWh, wantKWh: 12345.678},
		{name: "MWh to kWh", value: 1.5, unit: MWh, wantKWh: 1500},
		{name: "GWh to kWh", value: 2, unit: GWh, wantKWh: 2_000_000},
		{name: "lowercase token", value: 3, unit: "mwh", wantKWh: 3000},
		{name: "zero", value: 0, unit: GWh, wantKWh: 0},
		{name: "unknown unit", value: 1, unit: "BTU", wantErr: true},
		{name: "empty unit", value: 1, unit: "", wantErr: true},
		{name: "mass unit is not energy", value: 1, unit: "kg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEnergy(tt.value, tt.unit)
			if tt.wantErr {
				require.ErrorIs(t, err, calcerr.InvalidUnit)
				var ce *calcerr.Error
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, string(tt.unit), ce.Unit)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKWh, got)
		})
	}
}

func TestEnergyRoundTrip(t *testing.T) {
	values := []float64{0, 1, 0.001, 12345.678, 3.3333333333, 1e9}

	for _, unit := range EnergyUnits() {
		for _, v := range values {
			kWh, err := NormalizeEnergy(v, unit)
			require.NoError(t, err)
			back, err := DenormalizeEnergy(kWh, unit)
			require.NoError(t, err)
			assert.InDelta(t, v, back, 1e-9*(1+v), "unit=%s value=%v", unit, v)

			// denormalize then normalize
			d, err := DenormalizeEnergy(v, unit)
			require.NoError(t, err)
			n, err := NormalizeEnergy(d, unit)
			require.NoError(t, err)
			assert.InDelta(t, v, n, 1e-9*(1+v), "unit=%s value=%v", unit, v)
		}
	}
}

func TestParseEnergyUnit(t *testing.T) {
	for token, want := range map[string]EnergyUnit{
		"kWh": KWh, "KWH": KWh, " mwh ": MWh, "GWh": GWh,
	} {
		got, err := ParseEnergyUnit(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}

	_, err := ParseEnergyUnit("TWh")
	require.ErrorIs(t, err, calcerr.InvalidUnit)
	assert.Contains(t, err.Error(), `"TWh"`)
}

func TestNormalizeMass(t *testing.T) {
	kg, err := NormalizeMass(8.740740024, Tonnes)
	require.NoError(t, err)
	assert.InDelta(t, 8740.740024, kg, 1e-9)

	kg, err = NormalizeMass(42, Kg)
	require.NoError(t, err)
	assert.Equal(t, 42.0, kg)

	_, err = NormalizeMass(1, "lb")
	require.ErrorIs(t, err, calcerr.InvalidUnit)
}

func TestConvertMass(t *testing.T) {
	tonnes, err := ConvertMass(3610.8, Kg, Tonnes)
	require.NoError(t, err)
	assert.InDelta(t, 3.6108, tonnes, 1e-12)

	kg, err := ConvertMass(2, Tonnes, Kg)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, kg)

	_, err = ConvertMass(1, Kg, "oz")
	require.ErrorIs(t, err, calcerr.InvalidUnit)
}

func TestParseMassUnit(t *testing.T) {
	for _, token := range []string{"t", "T", "tonne", "Tonnes"} {
		got, err := ParseMassUnit(token)
		require.NoError(t, err, token)
		assert.Equal(t, Tonnes, got, token)
	}
	got, err := ParseMassUnit("KG")
	require.NoError(t, err)
	assert.Equal(t, Kg, got)

	_, err = ParseMassUnit("g")
	require.ErrorIs(t, err, calcerr.InvalidUnit)
}
