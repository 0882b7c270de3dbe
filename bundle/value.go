// Package bundle implements the typed key/value payload carried by
// registration requests and activation messages.
//
// Only a closed set of value kinds is representable. Conversions from
// arbitrary Go values drop unsupported kinds and log each dropped key.
package bundle

import (
	"fmt"
	"slices"
)

type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindFloat64
	KindFloat64Array
	KindInt32
	KindInt32Array
	KindInt64
	KindInt64Array
	KindString
	KindStringArray
	KindBundle
)

var kindNames = [...]string{
	KindInvalid:      "invalid",
	KindBool:         "bool",
	KindFloat64:      "float64",
	KindFloat64Array: "float64_array",
	KindInt32:        "int32",
	KindInt32Array:   "int32_array",
	KindInt64:        "int64",
	KindInt64Array:   "int64_array",
	KindString:       "string",
	KindStringArray:  "string_array",
	KindBundle:       "bundle",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) Valid() bool { return k > KindInvalid && k <= KindBundle }

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s && Kind(k).Valid() {
			return Kind(k), true
		}
	}
	return KindInvalid, false
}

// Value is one typed bundle entry. The zero Value is invalid.
type Value struct {
	kind Kind
	v    any
}

func Bool(b bool) Value                  { return Value{KindBool, b} }
func Float64(f float64) Value            { return Value{KindFloat64, f} }
func Float64Array(fs ...float64) Value   { return Value{KindFloat64Array, slices.Clone(fs)} }
func Int32(i int32) Value                { return Value{KindInt32, i} }
func Int32Array(is ...int32) Value       { return Value{KindInt32Array, slices.Clone(is)} }
func Int64(i int64) Value                { return Value{KindInt64, i} }
func Int64Array(is ...int64) Value       { return Value{KindInt64Array, slices.Clone(is)} }
func String(s string) Value              { return Value{KindString, s} }
func StringArray(ss ...string) Value     { return Value{KindStringArray, slices.Clone(ss)} }
func Nested(b Bundle) Value              { return Value{KindBundle, b.Clone()} }

func (v Value) Kind() Kind { return v.kind }

// Interface returns the underlying Go value; nested bundles are returned as Bundle.
func (v Value) Interface() any { return v.v }

func (v Value) AsBool() (bool, bool) {
	b, ok := v.v.(bool)
	return b, ok && v.kind == KindBool
}

func (v Value) AsFloat64() (float64, bool) {
	f, ok := v.v.(float64)
	return f, ok && v.kind == KindFloat64
}

func (v Value) AsInt32() (int32, bool) {
	i, ok := v.v.(int32)
	return i, ok && v.kind == KindInt32
}

func (v Value) AsInt64() (int64, bool) {
	i, ok := v.v.(int64)
	return i, ok && v.kind == KindInt64
}

func (v Value) AsString() (string, bool) {
	s, ok := v.v.(string)
	return s, ok && v.kind == KindString
}

func (v Value) AsBundle() (Bundle, bool) {
	b, ok := v.v.(Bundle)
	return b, ok && v.kind == KindBundle
}

func (v Value) AsFloat64Array() ([]float64, bool) {
	fs, ok := v.v.([]float64)
	return slices.Clone(fs), ok && v.kind == KindFloat64Array
}

func (v Value) AsInt32Array() ([]int32, bool) {
	is, ok := v.v.([]int32)
	return slices.Clone(is), ok && v.kind == KindInt32Array
}

func (v Value) AsInt64Array() ([]int64, bool) {
	is, ok := v.v.([]int64)
	return slices.Clone(is), ok && v.kind == KindInt64Array
}

func (v Value) AsStringArray() ([]string, bool) {
	ss, ok := v.v.([]string)
	return slices.Clone(ss), ok && v.kind == KindStringArray
}

// Equal reports deep equality. Nil and empty arrays compare equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindFloat64Array:
		return slices.Equal(v.v.([]float64), o.v.([]float64))
	case KindInt32Array:
		return slices.Equal(v.v.([]int32), o.v.([]int32))
	case KindInt64Array:
		return slices.Equal(v.v.([]int64), o.v.([]int64))
	case KindStringArray:
		return slices.Equal(v.v.([]string), o.v.([]string))
	case KindBundle:
		return v.v.(Bundle).Equal(o.v.(Bundle))
	default:
		return v.v == o.v
	}
}

func (v Value) clone() Value {
	switch v.kind {
	case KindFloat64Array:
		return Value{v.kind, slices.Clone(v.v.([]float64))}
	case KindInt32Array:
		return Value{v.kind, slices.Clone(v.v.([]int32))}
	case KindInt64Array:
		return Value{v.kind, slices.Clone(v.v.([]int64))}
	case KindStringArray:
		return Value{v.kind, slices.Clone(v.v.([]string))}
	case KindBundle:
		return Value{v.kind, v.v.(Bundle).Clone()}
	default:
		return v
	}
}

func (v Value) String() string { return fmt.Sprintf("%s(%v)", v.kind, v.v) }
