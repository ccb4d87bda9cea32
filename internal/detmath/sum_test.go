package detmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeSum(t *testing.T) {
	tenths := make([]float64, 10)
	for i := range tenths {
		tenths[i] = 0.1
	}

	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{4.2}, 4.2},
		{"ten tenths", tenths, 1.0},
		{"absorbed small term", []float64{1e16, 1.0, -1e16}, 1.0},
		{"large cancellation", []float64{1.0, 1e100, 1.0, -1e100}, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeSum(tt.xs))
		})
	}
}

func TestSafeSum_BeatsNaiveSummation(t *testing.T) {
	tenths := []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}
	naive := 0.0
	for _, x := range tenths {
		naive += x
	}
	assert.NotEqual(t, 1.0, naive, "naive summation should show drift")
	assert.Equal(t, 1.0, SafeSum(tenths))
}

func TestSafeSum_Reproducible(t *testing.T) {
	xs := []float64{3.3, 1e-12, 8740.740024, -0.5, 1e8, 0.70800001}
	first := SafeSum(xs)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, SafeSum(xs))
	}
}

func TestSafeSum_NonFinite(t *testing.T) {
	assert.True(t, math.IsInf(SafeSum([]float64{1, math.Inf(1), 2}), 1))
	assert.True(t, math.IsNaN(SafeSum([]float64{1, math.NaN()})))
}

func TestAccumulator_Reset(t *testing.T) {
	var acc Accumulator
	acc.Add(1e16)
	acc.Add(1)
	assert.Equal(t, 2, acc.Len())

	acc.Reset()
	assert.Equal(t, 0, acc.Len())
	assert.Equal(t, 0.0, acc.Sum())

	acc.Add(0.25)
	acc.Add(0.5)
	assert.Equal(t, 0.75, acc.Sum())
}

func TestSafeAdd(t *testing.T) {
	a, b := 0.1, 0.2
	assert.Equal(t, 0.30000000000000004, SafeAdd(a, b))
	assert.Equal(t, 3.0, SafeAdd(1, 2))
	assert.Equal(t, -1.5, SafeAdd(-3, 1.5))

	// 1 is lost by plain addition at 1e16 but kept in the compensation term.
	big, one := 1e16, 1.0
	assert.Equal(t, 0.0, big+one-big)
	var acc Accumulator
	acc.Add(big)
	acc.Add(one)
	acc.Add(-big)
	assert.Equal(t, 1.0, acc.Sum())
}

func TestSafeMultiply_NoRegression(t *testing.T) {
	pairs := [][2]float64{
		{12345.678, 0.708},
		{5100, 0.708},
		{1e-11, 3.3},
		{2.5e-12, 4e-12},
		{-7e-15, 0.82},
		{1e300, 1e-300},
		{0, 1e-20},
	}
	for _, p := range pairs {
		assert.Equal(t, p[0]*p[1], SafeMultiply(p[0], p[1]), "a=%v b=%v", p[0], p[1])
	}
}

func TestSafeMultiply_NonFinite(t *testing.T) {
	assert.True(t, math.IsNaN(SafeMultiply(math.NaN(), 1e-12)))
	assert.True(t, math.IsInf(SafeMultiply(math.Inf(1), 1e-12), 1))
}
