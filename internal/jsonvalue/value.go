// Package jsonvalue is the universal inter-component datum used throughout
// the request-execution core: a tagged variant over null, bool, number,
// string, array, and object, represented as plain Go values produced by
// encoding/json (nil, bool, float64, string, []any, map[string]any).
package jsonvalue

import (
	"encoding/json"
	"strconv"
	"strings"
)

// V is a JSON value: nil, bool, float64, string, []V, or map[string]V.
type V = any

// Object is a convenience alias for the object-shaped variant of V.
type Object = map[string]any

// NewObject returns an empty object-shaped value.
func NewObject() Object {
	return make(Object)
}

// IsString reports whether v holds a JSON string.
func IsString(v V) bool {
	_, ok := v.(string)
	return ok
}

// AsString returns v's string value and true, or "" and false.
func AsString(v V) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsObject returns v's object value and true, or nil and false.
func AsObject(v V) (Object, bool) {
	o, ok := v.(Object)
	if ok {
		return o, true
	}
	// Object is an alias of map[string]any, so this second assertion matches
	// exactly what the first one does; it never finds anything new.
	m, ok := v.(map[string]any)
	return m, ok
}

// AsArray returns v's array value and true, or nil and false.
func AsArray(v V) ([]V, bool) {
	a, ok := v.([]any)
	return a, ok
}

// Clone returns a shallow copy of an object-shaped value so that callers can
// mutate the copy (e.g. inserting template env keys) without affecting the
// original provider-emitted value.
func Clone(o Object) Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// SetPath inserts val into env under a dot-separated path, creating
// intermediate objects as needed. It is used to populate well-known
// template-env keys such as "request.start-line" or "stats.rtt".
func SetPath(env Object, path string, val V) {
	parts := strings.Split(path, ".")
	cur := env
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = val
			return
		}
		next, ok := AsObject(cur[p])
		if !ok {
			next = NewObject()
			cur[p] = next
		}
		cur = next
	}
}

// ToDisplayString renders v the way loggers and non-pretty output do:
// strings are emitted unquoted, everything else is JSON-stringified.
func ToDisplayString(v V) string {
	if s, ok := AsString(v); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ToPrettyString renders v as indented JSON (used by loggers when
// pretty=true and v is not a string).
func ToPrettyString(v V) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ToDisplayString(v)
	}
	return string(b)
}

// ParseJSON decodes raw as a V, returning ok=false on malformed input.
func ParseJSON(raw []byte) (V, bool) {
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

// ParseScalar optimistically coerces a raw CSV cell into a typed value (the
// line reader does not use it: lines stay strings): a valid number becomes a float64, "true"/
// "false" become bool, "null" becomes nil, anything else stays a string.
func ParseScalar(s string) V {
	switch s {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}
