// Package canonical produces byte-stable JSON for hashing calculation inputs
// and outputs.
//
// Canonical form:
//   - object keys sorted lexicographically (UTF-8 byte order) at every level
//   - arrays keep their order
//   - numbers rounded HALF_UP to MaxDecimals and printed without exponent,
//     trailing zeros or trailing decimal point
//   - strings NFC normalized, no HTML escaping
//   - no insignificant whitespace
//
// The same logical value always serializes to the same bytes regardless of
// map insertion order.
package canonical

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"

	"github.com/rshade/co2e-engine/internal/calcerr"
	"github.com/rshade/co2e-engine/internal/detmath"
)

// DefaultMaxDecimals is the number precision used when no option is given.
const DefaultMaxDecimals = 6

// Options control canonical encoding.
type Options struct {
	MaxDecimals int
}

// Option configures Marshal.
type Option func(*Options)

// WithMaxDecimals sets the decimal places numbers are rounded to.
func WithMaxDecimals(n int) Option {
	return func(o *Options) {
		o.MaxDecimals = n
	}
}

// Marshal returns the canonical encoding of v.
//
// v may be nil, a bool, string, integer, float, json.Number, slice, array,
// map with string keys, or any value goccy/go-json can encode (structs are
// flattened through a JSON round trip, so their json tags apply).
// Non-finite numbers fail with NonFiniteInput.
func Marshal(v any, opts ...Option) ([]byte, error) {
	o := Options{MaxDecimals: DefaultMaxDecimals}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxDecimals < 0 || o.MaxDecimals > detmath.MaxDecimals {
		return nil, calcerr.New(calcerr.InvalidInput, "canonical.Marshal").
			WithDetail("max decimals must be between 0 and %d, got %d", detmath.MaxDecimals, o.MaxDecimals)
	}

	e := &encoder{decimals: o.MaxDecimals}
	if err := e.encode(v); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// MarshalString is Marshal returning a string.
func MarshalString(v any, opts ...Option) (string, error) {
	b, err := Marshal(v, opts...)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type encoder struct {
	buf      bytes.Buffer
	decimals int
}

func (e *encoder) encode(v any) error {
	switch val := v.(type) {
	case nil:
		e.buf.WriteString("null")
		return nil
	case bool:
		e.writeBool(val)
		return nil
	case string:
		return e.writeString(val)
	case json.Number:
		// Integers are kept exact so they match the reflect path.
		if n, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			e.buf.WriteString(strconv.FormatInt(n, 10))
			return nil
		}
		if n, err := strconv.ParseUint(string(val), 10, 64); err == nil {
			e.buf.WriteString(strconv.FormatUint(n, 10))
			return nil
		}
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return &calcerr.Error{Kind: calcerr.InvalidInput, Op: "canonical.Marshal", Err: err}
		}
		return e.writeFloat(f)
	case float64:
		return e.writeFloat(val)
	case []any:
		return e.writeArray(len(val), func(i int) any { return val[i] })
	case map[string]any:
		return e.writeObject(val)
	}
	return e.encodeReflect(reflect.ValueOf(v))
}

func (e *encoder) encodeReflect(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if rv.Kind() == reflect.Pointer && implementsMarshaler(rv) {
			return e.roundTrip(rv.Interface())
		}
		return e.encode(rv.Elem().Interface())
	case reflect.Bool:
		e.writeBool(rv.Bool())
		return nil
	case reflect.String:
		if implementsMarshaler(rv) {
			return e.roundTrip(rv.Interface())
		}
		return e.writeString(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.buf.WriteString(strconv.FormatInt(rv.Int(), 10))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
		return nil
	case reflect.Float32, reflect.Float64:
		return e.writeFloat(rv.Float())
	case reflect.Slice:
		if rv.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return e.roundTrip(rv.Interface())
		}
		return e.writeArray(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Array:
		return e.writeArray(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Map:
		if rv.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return calcerr.New(calcerr.InvalidInput, "canonical.Marshal").
				WithDetail("map key type %s is not a string", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return e.writeObject(m)
	case reflect.Invalid:
		e.buf.WriteString("null")
		return nil
	}
	return e.roundTrip(rv.Interface())
}

// roundTrip encodes v with goccy/go-json and re-encodes the decoded tree
// canonically, so struct tags and MarshalJSON methods apply.
func (e *encoder) roundTrip(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		var unsupported *json.UnsupportedValueError
		if errors.As(err, &unsupported) {
			return &calcerr.Error{Kind: calcerr.NonFiniteInput, Op: "canonical.Marshal", Err: err}
		}
		return &calcerr.Error{Kind: calcerr.InvalidInput, Op: "canonical.Marshal", Detail: fmt.Sprintf("encoding %T", v), Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return &calcerr.Error{Kind: calcerr.InvalidInput, Op: "canonical.Marshal", Detail: fmt.Sprintf("decoding %T", v), Err: err}
	}
	return e.encode(tree)
}

func (e *encoder) writeBool(b bool) {
	if b {
		e.buf.WriteString("true")
		return
	}
	e.buf.WriteString("false")
}

func (e *encoder) writeFloat(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return calcerr.New(calcerr.NonFiniteInput, "canonical.Marshal").WithValue(f)
	}
	r := detmath.RoundStable(f, e.decimals, detmath.HalfUp)
	e.buf.WriteString(strconv.FormatFloat(r, 'f', -1, 64))
	return nil
}

func (e *encoder) writeString(s string) error {
	b, err := encodeString(s)
	if err != nil {
		return err
	}
	e.buf.Write(b)
	return nil
}

func (e *encoder) writeArray(n int, at func(int) any) error {
	e.buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(at(i)); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) writeObject(m map[string]any) error {
	normalized := make(map[string]any, len(m))
	for k, v := range m {
		nk := norm.NFC.String(k)
		if _, dup := normalized[nk]; dup {
			return calcerr.New(calcerr.InvalidInput, "canonical.Marshal").
				WithDetail("keys collide after NFC normalization: %q", nk)
		}
		normalized[nk] = v
	}

	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.writeString(k); err != nil {
			return err
		}
		e.buf.WriteByte(':')
		if err := e.encode(normalized[k]); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
	}
	e.buf.WriteByte('}')
	return nil
}

// encodeString NFC-normalizes s and encodes it as a JSON string without
// HTML escaping.
func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, &calcerr.Error{Kind: calcerr.InvalidInput, Op: "canonical.Marshal", Err: err}
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func implementsMarshaler(rv reflect.Value) bool {
	return rv.Type().Implements(marshalerType)
}

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
