// Package provider holds helpers for normalizing loosely typed upstream JSON.
package provider

import (
	"math"
	"strconv"
	"strings"
)

// ExtractInt normalizes a numeric field that upstream APIs send either as a
// JSON number or as a string ("24", "3.0").
//
// Returns ok=false if the value is missing or not a finite number.
func ExtractInt(val interface{}) (int, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f), true
		}
		return 0, false
	case map[string]interface{}:
		// Some feeds nest the number: {"value": 3, "displayValue": "3"}
		for _, key := range []string{"value", "displayValue"} {
			if inner, exists := v[key]; exists && inner != nil {
				return ExtractInt(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// IntOr returns the extracted integer, or fallback when extraction fails or
// the value is negative.
func IntOr(val interface{}, fallback int) int {
	n, ok := ExtractInt(val)
	if !ok || n < 0 {
		return fallback
	}
	return n
}
