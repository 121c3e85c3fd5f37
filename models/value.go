package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the shape of a field value.
type Kind int

const (
	// KindAbsent marks a field that is missing or null.
	KindAbsent Kind = iota
	// KindScalar marks a single JSON scalar (string, number, or bool).
	KindScalar
	// KindList marks an ordered list of scalars.
	KindList
)

// Value is a tagged variant over the field values a remote collection can
// return: a scalar, an ordered list of scalars, or null/absent. Consumers
// switch on Kind instead of probing with runtime type checks. The zero
// Value is absent.
type Value struct {
	kind   Kind
	scalar any
	list   []any
}

// Absent is the missing/null value.
var Absent = Value{}

// Scalar wraps a single scalar (string, float64, or bool).
func Scalar(v any) Value {
	return Value{kind: KindScalar, scalar: v}
}

// String wraps a string scalar.
func String(s string) Value {
	return Scalar(s)
}

// Number wraps a numeric scalar.
func Number(f float64) Value {
	return Scalar(f)
}

// List wraps an ordered list of scalars.
func List(items ...any) Value {
	return Value{kind: KindList, list: items}
}

// Kind reports the shape of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether the value is missing or null.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

// AsScalar returns the underlying scalar if the value holds one.
func (v Value) AsScalar() (any, bool) {
	if v.kind != KindScalar {
		return nil, false
	}
	return v.scalar, true
}

// AsList returns the underlying list if the value holds one.
func (v Value) AsList() ([]any, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// Strings renders the value as individual string tokens: one token for a
// scalar, one per element for a list, none when absent.
func (v Value) Strings() []string {
	switch v.kind {
	case KindScalar:
		return []string{scalarText(v.scalar)}
	case KindList:
		out := make([]string, 0, len(v.list))
		for _, item := range v.list {
			out = append(out, scalarText(item))
		}
		return out
	default:
		return nil
	}
}

// Display renders the value for tabular output: scalars as-is, lists joined
// with ", ", absent as the empty string.
func (v Value) Display() string {
	switch v.kind {
	case KindScalar:
		return scalarText(v.scalar)
	case KindList:
		return strings.Join(v.Strings(), ", ")
	default:
		return ""
	}
}

// MarshalJSON encodes absent as null, otherwise the scalar or list verbatim.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindScalar:
		return json.Marshal(v.scalar)
	case KindList:
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes null to absent, arrays to lists, everything else to
// a scalar. Nested objects are flattened to their JSON text; the remote
// collections only emit scalars and scalar lists in practice.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

func fromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Absent
	case []any:
		items := make([]any, 0, len(t))
		for _, item := range t {
			items = append(items, coerceScalar(item))
		}
		return Value{kind: KindList, list: items}
	default:
		return Value{kind: KindScalar, scalar: coerceScalar(raw)}
	}
}

func coerceScalar(raw any) any {
	switch raw.(type) {
	case string, float64, bool:
		return raw
	default:
		if data, err := json.Marshal(raw); err == nil {
			return string(data)
		}
		return fmt.Sprint(raw)
	}
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
