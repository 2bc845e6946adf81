// Package values is the flat, dot-keyed map behind the config stores, with
// the lenient conversions the driven.ConfigStore getters promise.
package values

import (
	"maps"
	"slices"
	"strings"
)

// Map holds configuration under dotted keys such as "providers.openai.api_key".
// Values keep whatever type the decoder produced; TOML gives int64 and []any.
type Map map[string]any

// String returns the value at key if it is a string.
func (m Map) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Bool returns the value at key if it is a bool.
func (m Map) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Int returns the value at key as an int. Floats are truncated.
func (m Map) Int(key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the value at key as a float64. Integers are widened.
func (m Map) Float(key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// StringSlice returns the value at key as []string, dropping non-string
// elements of a decoded array.
func (m Map) StringSlice(key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Clone returns a shallow copy.
func (m Map) Clone() Map {
	return maps.Clone(m)
}

// Flatten turns nested tables into dotted keys: {"a": {"b": 1}} becomes {"a.b": 1}.
func Flatten(nested map[string]any) Map {
	out := make(Map)
	flattenInto(out, "", nested)
	return out
}

func flattenInto(out Map, prefix string, nested map[string]any) {
	for k, v := range nested {
		if prefix != "" {
			k = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenInto(out, k, child)
			continue
		}
		out[k] = v
	}
}

// Nest is the inverse of Flatten. Shallower keys are placed first, so a key
// whose prefix already holds a scalar stays flat at the top level.
func (m Map) Nest() map[string]any {
	keys := slices.SortedFunc(maps.Keys(m), func(a, b string) int {
		if d := strings.Count(a, ".") - strings.Count(b, "."); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		if node, ok := table(root, parts[:len(parts)-1]); ok {
			node[parts[len(parts)-1]] = m[key]
		} else {
			root[key] = m[key]
		}
	}
	return root
}

// table walks or creates the nested tables named by path. It fails when a
// segment is already a scalar.
func table(root map[string]any, path []string) (map[string]any, bool) {
	node := root
	for _, part := range path {
		next, exists := node[part]
		if !exists {
			child := make(map[string]any)
			node[part] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}
