// Package tags holds metadata tag values as read from image and video
// metadata readers. A value is one of a small set of kinds and every
// accessor reports absence instead of panicking on a kind mismatch.
package tags

import (
	"encoding"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies what a Value holds.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindNumbers
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindNumbers:
		return "numbers"
	case KindOpaque:
		return "opaque"
	}
	return "invalid"
}

// ErrNoText is returned by Value.Text when a value has no textual form.
var ErrNoText = errors.New("tags: value has no text representation")

// Value is a single metadata tag value.
type Value struct {
	kind Kind
	str  string
	nums []float64
	raw  any
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, nums: []float64{f}} }

// Numbers returns a list of numbers, e.g. the three rationals of a GPS
// coordinate.
func Numbers(fs ...float64) Value {
	nums := make([]float64, len(fs))
	copy(nums, fs)
	return Value{kind: KindNumbers, nums: nums}
}

// Opaque wraps a value the tag readers could not classify.
func Opaque(v any) Value { return Value{kind: KindOpaque, raw: v} }

// FromAny classifies a decoded JSON value (as produced by exiftool -j).
func FromAny(v any) Value {
	switch t := v.(type) {
	case string:
		return String(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case []any:
		nums := make([]float64, 0, len(t))
		for _, e := range t {
			f, ok := e.(float64)
			if !ok {
				return Opaque(v)
			}
			nums = append(nums, f)
		}
		return Numbers(nums...)
	}
	return Opaque(v)
}

// Kind reports what the value holds.
func (v Value) Kind() Kind { return v.kind }

// Str returns the value when it is a string.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Float returns a single number. A one-element list counts as a number.
func (v Value) Float() (float64, bool) {
	if (v.kind == KindNumber || v.kind == KindNumbers) && len(v.nums) == 1 {
		return v.nums[0], true
	}
	return 0, false
}

// Triple returns the first three numbers of a list, the shape of a
// degrees/minutes/seconds coordinate.
func (v Value) Triple() ([3]float64, bool) {
	var out [3]float64
	if v.kind != KindNumbers || len(v.nums) < 3 {
		return out, false
	}
	copy(out[:], v.nums[:3])
	return out, true
}

// Text coerces the value to a string. Opaque values are rendered through
// encoding.TextMarshaler or fmt.Stringer; a nil opaque value or a failing
// marshaler yields an error.
func (v Value) Text() (string, error) {
	switch v.kind {
	case KindString:
		return v.str, nil
	case KindNumber:
		return formatFloat(v.nums[0]), nil
	case KindNumbers:
		parts := make([]string, len(v.nums))
		for i, n := range v.nums {
			parts[i] = formatFloat(n)
		}
		return strings.Join(parts, " "), nil
	case KindOpaque:
		switch r := v.raw.(type) {
		case nil:
			return "", ErrNoText
		case encoding.TextMarshaler:
			b, err := r.MarshalText()
			if err != nil {
				return "", fmt.Errorf("tags: %w", err)
			}
			return string(b), nil
		case fmt.Stringer:
			return r.String(), nil
		}
		return fmt.Sprint(v.raw), nil
	}
	return "", ErrNoText
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Tags maps tag names to values.
type Tags map[string]Value

// Get returns the value stored under name.
func (t Tags) Get(name string) (Value, bool) {
	v, ok := t[name]
	return v, ok
}

// Has reports whether name is present.
func (t Tags) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// First returns the first present tag among names, in order.
func (t Tags) First(names ...string) (string, Value, bool) {
	for _, n := range names {
		if v, ok := t[n]; ok {
			return n, v, true
		}
	}
	return "", Value{}, false
}
