// Package detmath provides the deterministic arithmetic used by every
// computation that produces a reportable number: compensated summation, a
// no-regression multiply, and a single rounding primitive with three modes.
//
// All arithmetic is float64. Determinism here means identical inputs and
// rounding mode give byte-identical outputs, not arbitrary precision.
package detmath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mode selects the rounding rule applied by RoundStable.
type Mode string

const (
	// HalfUp rounds halves away from zero.
	HalfUp Mode = "HALF_UP"

	// Down rounds toward negative infinity (floor).
	Down Mode = "DOWN"

	// Trunc rounds toward zero.
	Trunc Mode = "TRUNC"
)

const (
	// DefaultDecimals is the decimal count used when no rounding is configured.
	DefaultDecimals = 6

	// MaxDecimals is the largest decimal count a RoundingSpec accepts.
	MaxDecimals = 10
)

// ParseMode resolves a mode name case-insensitively. "HALF-UP" and
// "FLOOR" are accepted as aliases of HALF_UP and DOWN.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HALF_UP", "HALF-UP", "HALFUP":
		return HalfUp, nil
	case "DOWN", "FLOOR":
		return Down, nil
	case "TRUNC", "TRUNCATE":
		return Trunc, nil
	default:
		return "", fmt.Errorf("unknown rounding mode %q (want HALF_UP, DOWN or TRUNC)", s)
	}
}

// RoundingSpec is the rounding configuration attached to a result.
type RoundingSpec struct {
	Decimals int  `json:"decimals" yaml:"decimals"`
	Mode     Mode `json:"mode" yaml:"mode"`
}

// DefaultRounding returns {Decimals: 6, Mode: HALF_UP}.
func DefaultRounding() RoundingSpec {
	return RoundingSpec{Decimals: DefaultDecimals, Mode: HalfUp}
}

// OrDefault returns DefaultRounding when the spec has no mode set, so the
// zero RoundingSpec means "use the default" rather than "round to integers".
func (s RoundingSpec) OrDefault() RoundingSpec {
	if s.Mode == "" {
		return DefaultRounding()
	}
	return s
}

// Validate reports whether the spec is within the supported range.
func (s RoundingSpec) Validate() error {
	if s.Decimals < 0 || s.Decimals > MaxDecimals {
		return fmt.Errorf("rounding decimals must be between 0 and %d, got %d", MaxDecimals, s.Decimals)
	}
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	return nil
}

// Apply rounds x according to the spec.
func (s RoundingSpec) Apply(x float64) float64 {
	return RoundStable(x, s.Decimals, s.Mode)
}

func (s RoundingSpec) String() string {
	return fmt.Sprintf("%d/%s", s.Decimals, s.Mode)
}

// RoundStable rounds x to decimals places using mode.
//
// Scaling by 10^decimals happens in decimal space: x is rendered as its
// shortest round-trip decimal string, the digit string is cut after the
// requested place and adjusted by the mode, then parsed back. This keeps
// values such as 2.675 from turning into 2.67 through binary scaling error and
// makes the operation idempotent.
//
// NaN and ±Inf are returned unchanged. Negative decimals are treated as 0.
// An unrecognized mode rounds HALF_UP. A zero result is always +0.
func RoundStable(x float64, decimals int, mode Mode) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	if x == 0 {
		return 0
	}
	if decimals < 0 {
		decimals = 0
	}

	neg := x < 0
	intPart, frac, _ := strings.Cut(strconv.FormatFloat(math.Abs(x), 'f', -1, 64), ".")
	if len(frac) <= decimals {
		return x
	}

	kept, rest := frac[:decimals], frac[decimals:]

	var bump bool
	switch mode {
	case Trunc:
		bump = false
	case Down:
		// floor moves negative values away from zero whenever anything is cut
		bump = neg && strings.TrimRight(rest, "0") != ""
	default:
		bump = rest[0] >= '5'
	}

	digits := []byte(intPart + kept)
	if bump {
		digits = incrementDigits(digits)
	}

	point := len(digits) - decimals
	s := string(digits[:point])
	if decimals > 0 {
		s += "." + string(digits[point:])
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return x
	}
	if v == 0 {
		return 0
	}
	if neg {
		return -v
	}
	return v
}

// incrementDigits adds one to the last digit of a decimal digit string,
// carrying as needed.
func incrementDigits(d []byte) []byte {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i] < '9' {
			d[i]++
			return d
		}
		d[i] = '0'
	}
	return append([]byte{'1'}, d...)
}
