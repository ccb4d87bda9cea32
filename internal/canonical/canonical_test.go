package canonical

import (
	"math"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/co2e-engine/internal/calcerr"
	"github.com/rshade/co2e-engine/internal/carbon"
	"github.com/rshade/co2e-engine/internal/detmath"
	"github.com/rshade/co2e-engine/internal/units"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestMarshal_Golden(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{
			name: "nested_object",
			value: map[string]any{
				"c": "e\u0301", // NFC composes to U+00E9
				"b": 1.23456789,
				"a": map[string]any{
					"z": true,
					"y": nil,
					"x": []any{3, 2.5, "<tag>&"},
				},
			},
		},
		{
			name: "conversion_result",
			value: carbon.ConversionResult{
				KgCO2e:         3610.8,
				TCO2e:          3.6108,
				FactorKgPerKWh: 0.708,
				EnergyKWh:      5100,
				Metadata: carbon.Metadata{
					InputUnit: units.KWh,
					Rounding:  detmath.DefaultRounding(),
				},
			},
		},
		{
			name: "numbers",
			value: []any{
				0.1 + 0.2,
				math.Copysign(0, -1),
				1e21,
				1e-7,
				2.5e-6,
				123456789.123456789,
				-2.0000004,
				int64(-42),
				uint64(math.MaxUint64),
			},
		},
	}

	g := newGoldie(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.value)
			require.NoError(t, err)
			g.Assert(t, tt.name, got)
		})
	}
}

func TestMarshal_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{}
	a["zeta"] = 1
	a["alpha"] = map[string]any{"b": 2, "a": 1}
	a["mid"] = []any{"x", "y"}

	b := map[string]any{}
	b["mid"] = []any{"x", "y"}
	b["alpha"] = map[string]any{"a": 1, "b": 2}
	b["zeta"] = 1

	encA, err := Marshal(a)
	require.NoError(t, err)
	encB, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(encA), string(encB))
	assert.Equal(t, `{"alpha":{"a":1,"b":2},"mid":["x","y"],"zeta":1}`, string(encA))

	for i := 0; i < 50; i++ {
		again, err := Marshal(a)
		require.NoError(t, err)
		require.Equal(t, encA, again)
	}
}

func TestMarshal_ArraysKeepOrder(t *testing.T) {
	got, err := MarshalString([]any{"b", "a", 3, 1})
	require.NoError(t, err)
	assert.Equal(t, `["b","a",3,1]`, got)
}

func TestMarshal_Scalars(t *testing.T) {
	type label string

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "null"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"int", 7, "7"},
		{"uint8", uint8(255), "255"},
		{"float32", float32(0.1), "0.1"},
		{"trailing zeros stripped", 2.50, "2.5"},
		{"integral float", 100.0, "100"},
		{"named string", label("kWh"), `"kWh"`},
		{"html not escaped", "<a&b>", `"<a&b>"`},
		{"quotes escaped", `say "hi"`, `"say \"hi\""`},
		{"nil pointer", (*int)(nil), "null"},
		{"pointer", ptrTo(1.5), "1.5"},
		{"typed map", map[string]float64{"b": 1, "a": 0.25}, `{"a":0.25,"b":1}`},
		{"typed slice", []string{"x"}, `["x"]`},
		{"empty object", map[string]any{}, "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalString(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func ptrTo[T any](v T) *T { return &v }

func TestMarshal_LargeIntegersMatchAcrossPaths(t *testing.T) {
	type record struct {
		N int64   `json:"n"`
		U uint64  `json:"u"`
		F float64 `json:"f"`
	}
	const n = int64(1<<53 + 1)
	const u = uint64(1<<64 - 1)

	fromStruct, err := MarshalString(record{N: n, U: u, F: 2.5})
	require.NoError(t, err)
	fromMap, err := MarshalString(map[string]any{"n": n, "u": u, "f": 2.5})
	require.NoError(t, err)

	assert.Equal(t, `{"f":2.5,"n":9007199254740993,"u":18446744073709551615}`, fromStruct)
	assert.Equal(t, fromMap, fromStruct)

	got, err := MarshalString(json.Number("-9007199254740993"))
	require.NoError(t, err)
	assert.Equal(t, "-9007199254740993", got)
}

func TestMarshal_MaxDecimals(t *testing.T) {
	got, err := MarshalString([]any{2.675, 1.0049}, WithMaxDecimals(2))
	require.NoError(t, err)
	assert.Equal(t, "[2.68,1]", got)

	got, err = MarshalString(0.5, WithMaxDecimals(0))
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	_, err = Marshal(1.0, WithMaxDecimals(11))
	assert.ErrorIs(t, err, calcerr.InvalidInput)

	_, err = Marshal(1.0, WithMaxDecimals(-1))
	assert.ErrorIs(t, err, calcerr.InvalidInput)
}

func TestMarshal_Errors(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantKind calcerr.Kind
	}{
		{"NaN", math.NaN(), calcerr.NonFiniteInput},
		{"nested infinity", map[string]any{"a": []any{1, math.Inf(1)}}, calcerr.NonFiniteInput},
		{"non-string map key", map[int]string{1: "a"}, calcerr.InvalidInput},
		{"NFC key collision", map[string]any{"\u00e9": 1, "e\u0301": 2}, calcerr.InvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}
}

func TestMarshal_StructWithNaNFails(t *testing.T) {
	_, err := Marshal(carbon.ConversionResult{KgCO2e: math.NaN()})
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	d, err := Digest(DomainInput, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "b4373fb07f954afc1a742f370803b1bc1497d508b510812b8584f1c5ad76f2af", d)

	// Equal after canonicalization means equal digests.
	d2, err := Digest(DomainInput, map[string]any{"a": 1.0000000001})
	require.NoError(t, err)
	assert.Equal(t, d, d2)

	other, err := Digest(DomainOutput, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.NotEqual(t, d, other)

	_, err = Digest(DomainInput, math.Inf(-1))
	assert.ErrorIs(t, err, calcerr.NonFiniteInput)
}
