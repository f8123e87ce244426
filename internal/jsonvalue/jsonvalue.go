// Package jsonvalue reads decoded JSON values (map[string]any trees) with the
// loose typing rules of the series interchange format: ids may be strings or
// numbers, and numbers may arrive as any numeric Go type.
package jsonvalue

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Truthy follows the presence rules of the JSON producers: null, false, 0 and
// "" all count as missing.
func Truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	default:
		if n, ok := Number(v); ok {
			return n != 0
		}
		return true
	}
}

// NonEmptyString reports whether v is a string other than "".
func NonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}

// Number returns v as a float64 when it holds a JSON number.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Format renders v as text: numbers without a trailing ".0", nil as "".
func Format(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if n, ok := Number(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// IntOr returns v truncated to an int when it is a non-zero number, or a
// string holding one. Anything else yields fallback.
func IntOr(v any, fallback int) int {
	if n, ok := numeric(v); ok && n != 0 {
		return int(n)
	}
	return fallback
}

// OptionalInt is IntOr with nil standing in for a missing value.
func OptionalInt(v any) *int {
	if n, ok := numeric(v); ok && n != 0 {
		i := int(n)
		return &i
	}
	return nil
}

func numeric(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return Number(v)
}
