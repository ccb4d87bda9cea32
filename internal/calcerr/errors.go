// Package calcerr defines the error taxonomy shared by the conversion and
// factor resolution packages.
//
// Every fallible operation returns an *Error carrying one Kind plus the
// context needed to act on it (region, scope, date, unit token). Kinds are
// sentinel values, so callers match them with errors.Is:
//
//	if errors.Is(err, calcerr.NoFactorForDate) { ... }
package calcerr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is an immutable sentinel error identifying a failure category.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	// InvalidUnit indicates an unrecognized energy or mass unit token.
	InvalidUnit = Kind("invalid unit")

	// NonFiniteInput indicates NaN or ±Inf where a finite value is required.
	NonFiniteInput = Kind("non-finite input")

	// NegativeEnergy indicates an energy quantity below zero.
	NegativeEnergy = Kind("negative energy")

	// NegativeFactor indicates an emission factor below zero.
	NegativeFactor = Kind("negative emission factor")

	// UnknownRegion indicates no factor exists for region+scope, even after WORLD fallback.
	UnknownRegion = Kind("unknown region")

	// NoFactorForDate indicates factors exist for region+scope but none is effective on the date.
	NoFactorForDate = Kind("no factor for date")

	// RegistryUninitialized indicates resolution was attempted before any factors were loaded.
	RegistryUninitialized = Kind("no factors available")

	// InvalidInput indicates an out-of-range argument not covered by a more specific kind.
	InvalidInput = Kind("invalid input")

	// InvalidPack indicates a factor pack that failed decoding or validation.
	InvalidPack = Kind("invalid factor pack")
)

// Error is a failure with contextual fields. Zero-valued fields are omitted
// from the message.
type Error struct {
	Kind   Kind
	Op     string
	Region string
	Scope  string
	Date   time.Time
	Unit   string
	Value  *float64
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))

	var ctx []string
	if e.Region != "" {
		ctx = append(ctx, "region="+e.Region)
	}
	if e.Scope != "" {
		ctx = append(ctx, "scope="+e.Scope)
	}
	if !e.Date.IsZero() {
		ctx = append(ctx, "date="+e.Date.Format(time.DateOnly))
	}
	if e.Unit != "" || e.Kind == InvalidUnit {
		ctx = append(ctx, fmt.Sprintf("unit=%q", e.Unit))
	}
	if e.Value != nil {
		ctx = append(ctx, fmt.Sprintf("value=%v", *e.Value))
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, ", "))
		b.WriteString(")")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the wrapped cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New returns an *Error of the given kind for operation op.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// WithValue records the offending numeric value.
func (e *Error) WithValue(v float64) *Error {
	e.Value = &v
	return e
}

// WithDetail appends a free-form explanation.
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// KindOf returns the Kind of err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}
