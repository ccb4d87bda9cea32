package detmath

import (
	"math"
	"math/big"
)

// tinyMagnitude is the operand magnitude below which SafeMultiply forms the
// product in extended precision.
const tinyMagnitude = 1e-10

// Accumulator is a compensated (Neumaier) running sum. The zero value is an
// empty sum. Inputs are added in the order given; nothing is sorted.
type Accumulator struct {
	sum  float64
	comp float64
	n    int
}

// Add folds x into the running sum.
func (a *Accumulator) Add(x float64) {
	t := a.sum + x
	if math.Abs(a.sum) >= math.Abs(x) {
		a.comp += (a.sum - t) + x
	} else {
		a.comp += (x - t) + a.sum
	}
	a.sum = t
	a.n++
}

// Sum returns the compensated total. If a non-finite input poisoned the
// compensation term, the plain running sum is returned instead.
func (a *Accumulator) Sum() float64 {
	total := a.sum + a.comp
	if math.IsNaN(total) && !math.IsNaN(a.sum) {
		return a.sum
	}
	return total
}

// Len returns the number of values added since the last Reset.
func (a *Accumulator) Len() int {
	return a.n
}

// Reset empties the accumulator so it can be reused.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// SafeAdd returns a+b through the compensated accumulator.
func SafeAdd(a, b float64) float64 {
	var acc Accumulator
	acc.Add(a)
	acc.Add(b)
	return acc.Sum()
}

// SafeSum returns the compensated sum of xs in order. An empty slice sums to 0.
func SafeSum(xs []float64) float64 {
	var acc Accumulator
	for _, x := range xs {
		acc.Add(x)
	}
	return acc.Sum()
}

// SafeMultiply returns a*b.
//
// When either non-zero operand is smaller than 1e-10 in magnitude the product
// is computed with math/big at 106 bits and rounded once to float64, which is
// the same correctly rounded result IEEE multiplication yields; for normal
// magnitudes the plain product is returned.
func SafeMultiply(a, b float64) float64 {
	if a == 0 || b == 0 || !isFinite(a) || !isFinite(b) {
		return a * b
	}
	if math.Abs(a) >= tinyMagnitude && math.Abs(b) >= tinyMagnitude {
		return a * b
	}
	p := new(big.Float).SetPrec(106).SetFloat64(a)
	p.Mul(p, new(big.Float).SetFloat64(b))
	f, _ := p.Float64()
	return f
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
