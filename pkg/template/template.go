// Package template resolves {{path}} placeholders in step configuration
// against the variables of a workflow instance.
package template

import (
	"reflect"
	"strings"
)

// Placeholder returns the path of a string of the exact form {{path}}.
// Whitespace is allowed inside the braces only.
func Placeholder(s string) (string, bool) {
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return "", false
	}

	path := strings.TrimSpace(s[2 : len(s)-2])
	if path == "" || strings.Contains(path, "{{") || strings.Contains(path, "}}") {
		return "", false
	}

	return path, true
}

// Lookup walks a dotted path through nested maps. Missing segments yield
// (nil, false).
func Lookup(vars map[string]any, path string) (any, bool) {
	if vars == nil || path == "" {
		return nil, false
	}

	var current any = vars

	for _, segment := range strings.Split(path, ".") {
		next, ok := field(current, segment)
		if !ok {
			return nil, false
		}

		current = next
	}

	return current, true
}

func field(value any, key string) (any, bool) {
	switch m := value.(type) {
	case map[string]any:
		v, ok := m[key]

		return v, ok
	case map[string]string:
		v, ok := m[key]

		return v, ok
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}

		return v.Interface(), true
	}

	return nil, false
}

// Resolve returns a copy of value where every string that is exactly a
// placeholder is replaced by the variable it names. Unknown paths resolve to
// nil. Nested maps are walked recursively; lists and other values pass
// through unchanged.
func Resolve(value any, vars map[string]any) any {
	switch v := value.(type) {
	case string:
		if path, ok := Placeholder(v); ok {
			resolved, _ := Lookup(vars, path)

			return resolved
		}

		return v
	case map[string]any:
		return ResolveMap(v, vars)
	default:
		return v
	}
}

// ResolveMap resolves every entry of m. A nil map resolves to an empty one.
func ResolveMap(m map[string]any, vars map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = Resolve(item, vars)
	}

	return out
}
