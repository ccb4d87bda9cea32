package detmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundStable(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		decimals int
		mode     Mode
		want     float64
	}{
		{"tonnes scenario", 8.740740023999999, 6, HalfUp, 8.74074},
		{"binary-unfriendly half", 2.675, 2, HalfUp, 2.68},
		{"half away from zero positive", 2.5, 0, HalfUp, 3},
		{"half away from zero negative", -2.5, 0, HalfUp, -3},
		{"floor negative", -2.5, 0, Down, -3},
		{"floor positive", 2.9, 0, Down, 2},
		{"floor negative fraction", -1.234567, 3, Down, -1.235},
		{"trunc negative", -2.5, 0, Trunc, -2},
		{"trunc negative fraction", -1.234567, 3, Trunc, -1.234},
		{"carry across integer", 9.9999999, 6, HalfUp, 10},
		{"half at third place", 1.0005, 3, HalfUp, 1.001},
		{"eighths", 0.125, 2, HalfUp, 0.13},
		{"already short", 3.6108, 6, HalfUp, 3.6108},
		{"noise removed", 3610.7999999999997, 6, HalfUp, 3610.8},
		{"tiny rounds to zero", 1e-7, 6, HalfUp, 0},
		{"tiny rounds up", 5e-7, 6, HalfUp, 1e-6},
		{"large value", 123456789.12345679, 4, HalfUp, 123456789.1235},
		{"negative decimals treated as zero", 7.6, -3, HalfUp, 8},
		{"unknown mode rounds half up", 1.25, 1, Mode("BANKERS"), 1.3},
		{"ten decimals", 1.5e-10, 10, HalfUp, 2e-10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundStable(tt.x, tt.decimals, tt.mode))
		})
	}
}

func TestRoundStable_ZeroIsPositive(t *testing.T) {
	got := RoundStable(-1e-7, 3, Trunc)
	assert.Equal(t, 0.0, got)
	assert.False(t, math.Signbit(got), "rounded zero must not be negative")

	got = RoundStable(math.Copysign(0, -1), 2, HalfUp)
	assert.False(t, math.Signbit(got))

	// floor of a tiny negative leaves zero
	assert.Equal(t, -0.001, RoundStable(-1e-7, 3, Down))
}

func TestRoundStable_NonFinitePassThrough(t *testing.T) {
	for _, mode := range []Mode{HalfUp, Down, Trunc} {
		assert.True(t, math.IsNaN(RoundStable(math.NaN(), 2, mode)))
		assert.True(t, math.IsInf(RoundStable(math.Inf(1), 2, mode), 1))
		assert.True(t, math.IsInf(RoundStable(math.Inf(-1), 2, mode), -1))
	}
}

func TestRoundStable_Idempotent(t *testing.T) {
	values := []float64{
		0.1, 0.7, 1.005, 2.675, -2.675, 8.740740023999999, 3610.7999999999997,
		1e-9, -1e-9, 123456.654321, 1.0 / 3.0, -2.0 / 3.0, math.Pi, 1e15 + 0.3,
		math.MaxFloat64, -math.SmallestNonzeroFloat64,
	}
	for _, mode := range []Mode{HalfUp, Down, Trunc} {
		for d := 0; d <= MaxDecimals; d++ {
			for _, x := range values {
				once := RoundStable(x, d, mode)
				twice := RoundStable(once, d, mode)
				assert.Equal(t, once, twice, "x=%v d=%d mode=%s", x, d, mode)
			}
		}
	}
}

func TestRoundStable_ModeOrdering(t *testing.T) {
	// For any x: DOWN <= TRUNC for positives, and DOWN <= HALF_UP always.
	for _, x := range []float64{1.23456, -1.23456, 0.99999, -0.00001, 42.5} {
		down := RoundStable(x, 3, Down)
		trunc := RoundStable(x, 3, Trunc)
		half := RoundStable(x, 3, HalfUp)
		assert.LessOrEqual(t, down, trunc, "x=%v", x)
		assert.LessOrEqual(t, down, half, "x=%v", x)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"HALF_UP": HalfUp, "half_up": HalfUp, "half-up": HalfUp,
		"DOWN": Down, "floor": Down,
		"TRUNC": Trunc, "truncate": Trunc,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("HALF_EVEN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HALF_EVEN")
}

func TestRoundingSpec(t *testing.T) {
	assert.Equal(t, RoundingSpec{Decimals: 6, Mode: HalfUp}, DefaultRounding())
	assert.Equal(t, DefaultRounding(), RoundingSpec{}.OrDefault())

	explicit := RoundingSpec{Decimals: 0, Mode: Trunc}
	assert.Equal(t, explicit, explicit.OrDefault())
	assert.Equal(t, 3.0, explicit.Apply(3.99))
	assert.Equal(t, "0/TRUNC", explicit.String())

	require.NoError(t, DefaultRounding().Validate())
	require.Error(t, RoundingSpec{Decimals: 11, Mode: HalfUp}.Validate())
	require.Error(t, RoundingSpec{Decimals: -1, Mode: HalfUp}.Validate())
	require.Error(t, RoundingSpec{Decimals: 2, Mode: "ceil"}.Validate())
}
