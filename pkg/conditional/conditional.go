// Package conditional evaluates step conditions against instance variables.
package conditional

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/template"
)

// Evaluate reports whether cond holds for vars. It never mutates vars and
// treats missing fields as absent rather than failing.
func Evaluate(cond models.Condition, vars map[string]any) bool {
	actual, found := template.Lookup(vars, cond.Field)

	switch cond.Operator {
	case models.OperatorExists:
		return found && actual != nil
	case models.OperatorEquals:
		return found && Equal(actual, cond.Value)
	case models.OperatorNotEquals:
		return !found || !Equal(actual, cond.Value)
	case models.OperatorGreaterThan:
		c, ok := compare(actual, cond.Value)

		return found && ok && c > 0
	case models.OperatorLessThan:
		c, ok := compare(actual, cond.Value)

		return found && ok && c < 0
	case models.OperatorContains:
		return found && contains(actual, cond.Value)
	default:
		return false
	}
}

// All reports whether every condition holds. An empty list holds.
func All(conds []models.Condition, vars map[string]any) bool {
	for _, cond := range conds {
		if !Evaluate(cond, vars) {
			return false
		}
	}

	return true
}

// Equal compares two values, treating numbers of different Go types as equal
// when they denote the same quantity.
func Equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}

	return reflect.DeepEqual(a, b)
}

func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}

		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}

	sa, okA := a.(string)
	sb, okB := b.(string)

	if okA && okB {
		return strings.Compare(sa, sb), true
	}

	return 0, false
}

func contains(container, item any) bool {
	if s, ok := container.(string); ok {
		return strings.Contains(s, fmt.Sprint(item))
	}

	rv := reflect.ValueOf(container)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			if Equal(rv.Index(i).Interface(), item) {
				return true
			}
		}
	case reflect.Map:
		key, ok := item.(string)
		if !ok || rv.Type().Key().Kind() != reflect.String {
			return false
		}

		return rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())).IsValid()
	default:
	}

	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}
