package payload

import (
	"math"
	"strconv"
	"strings"
)

// String renders scalars the way the backend's JS clients do: numbers keep their
// literal, booleans become "true"/"false", nil becomes "".
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case Number:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// NonBlank returns v when it is a string with visible characters.
func NonBlank(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Truthy mirrors JS truthiness for decoded values.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case Number:
		f, err := strconv.ParseFloat(string(t), 64)
		return err == nil && f != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}

// PositiveInt parses the leading integer of v and rejects negatives.
// "12.7" yields 12, "abc" and -3 yield false.
func PositiveInt(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	if _, isBool := v.(bool); isBool {
		return 0, false
	}

	s := strings.TrimLeft(String(v), " \t\n\r")
	if s == "" {
		return 0, false
	}

	end := 0
	if s[0] == '+' || s[0] == '-' {
		end = 1
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// PositiveIntOr is PositiveInt with a fallback.
func PositiveIntOr(v any, fallback int64) int64 {
	if n, ok := PositiveInt(v); ok {
		return n
	}
	return fallback
}

// PositiveIntPtr returns nil when v does not coerce.
func PositiveIntPtr(v any) *int64 {
	if n, ok := PositiveInt(v); ok {
		return &n
	}
	return nil
}

// IntPtr is PositiveIntPtr narrowed to int.
func IntPtr(v any) *int {
	if n, ok := PositiveInt(v); ok {
		i := int(n)
		return &i
	}
	return nil
}

// Float converts v into a finite number. Booleans count as 1 and 0.
func Float(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case float64:
		f = t
	case Number:
		parsed, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Bool accepts booleans, "true"/"false" in any case, and 1/0 in number or string form.
func Bool(v any, fallback bool) bool {
	if b, ok := BoolOpt(v); ok {
		return b
	}
	return fallback
}

// BoolOpt is Bool that reports whether v carried a recognizable boolean.
func BoolOpt(v any) (bool, bool) {
	switch t := v.(type) {
	case nil:
		return false, false
	case bool:
		return t, true
	}

	switch strings.ToLower(String(v)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}
