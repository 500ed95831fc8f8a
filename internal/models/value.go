// Package models defines the core data structures shared by the taxonomy
// engine, the persistence layer and the HTTP handlers.
package models

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
)

func AsMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// AsList accepts the slice shapes produced by encoding/json as well as the
// typed slices that Go callers tend to build by hand.
func AsList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

// AsFloat reports whether v is a JSON number. Booleans are not numbers.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// AsInt reports whether v is an integral JSON number.
func AsInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		f, err := t.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	default:
		f, ok := AsFloat(v)
		if !ok || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	}
}

func IsNumber(v any) bool {
	_, ok := AsFloat(v)
	return ok
}

// Truthy mirrors JSON-document truthiness: null, false, zero, "" and empty
// containers are all false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case map[string]any:
		return len(t) > 0
	}
	if l, ok := AsList(v); ok {
		return len(l) > 0
	}
	if f, ok := AsFloat(v); ok {
		return f != 0
	}
	return true
}

// StringOr returns m[key] when it is a non-empty string.
func StringOr(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// Clone deep-copies maps and slices. Scalars are shared.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = CloneMap(m)
		}
		return out
	default:
		return v
	}
}

func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

// SortedKeys returns the keys of m in ascending order so that tree walks are
// deterministic.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StringList keeps the string items of a list, in order.
func StringList(v any) []string {
	items, ok := AsList(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

// TitleCase capitalizes every space, dash or underscore separated word.
func TitleCase(s string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range strings.ToLower(s) {
		if upperNext {
			b.WriteString(strings.ToUpper(string(r)))
		} else {
			b.WriteRune(r)
		}
		upperNext = r == ' ' || r == '-' || r == '_'
	}
	return b.String()
}
