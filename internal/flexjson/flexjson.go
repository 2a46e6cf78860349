// Package flexjson coerces the loosely-typed JSON Xtream panels emit into
// canonical scalars. Providers send category IDs as numbers, strings,
// comma-joined strings, or JSON arrays encoded inside strings; these helpers
// normalize all of that without ever failing: absence maps to a false ok or
// an empty slice, never an error.
package flexjson

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// AsString coerces a decoded JSON value to its textual form.
// Strings pass through; numbers and bools are formatted; anything else is absent.
func AsString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		// encoding/json decodes all numbers as float64; keep integers clean.
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	}
	return "", false
}

// AsInt coerces a decoded JSON value to an int, parsing numeric strings.
func AsInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		if f, err := x.Float64(); err == nil {
			return int(f), true
		}
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int:
		return x, true
	case int64:
		return int(x), true
	}
	return 0, false
}

// AsBool interprets the provider's assorted truthy spellings: boolean true,
// the number 1, or the strings "1", "true", "yes" (case-insensitive).
func AsBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case float64:
		return x == 1, true
	case json.Number:
		return x.String() == "1", true
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		switch s {
		case "1", "true", "yes":
			return true, true
		case "0", "false", "no", "":
			return false, true
		}
	}
	return false, false
}

// absent spellings some panels use for "no category".
func isAbsentWord(s string) bool {
	switch strings.ToLower(s) {
	case "", "null", "nil", "none", "undefined":
		return true
	}
	return false
}

// NormalizeCategoryID canonicalises one raw category identifier. Whitespace is
// trimmed, textual null spellings count as absent, and integer-valued floats
// ("12.0") collapse to their integer form so the same category hashes the same
// regardless of how the panel serialised it.
func NormalizeCategoryID(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if isAbsentWord(s) {
		return "", false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return strconv.FormatInt(int64(f), 10), true
		}
	}
	return s, true
}

// CategoryIDList extracts an ordered, de-duplicated list of category IDs from
// a field that may be a JSON array, a single scalar, a string containing a
// serialised JSON array, or a comma-separated string, tried in that order.
func CategoryIDList(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(x))
		seen := make(map[string]bool, len(x))
		for _, el := range x {
			s, ok := AsString(el)
			if !ok {
				continue
			}
			id, ok := NormalizeCategoryID(s)
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
		return out
	case string:
		s := strings.TrimSpace(x)
		if strings.HasPrefix(s, "[") {
			var arr []any
			if err := json.Unmarshal([]byte(s), &arr); err == nil {
				return CategoryIDList(arr)
			}
		}
		if strings.Contains(s, ",") {
			parts := strings.Split(s, ",")
			els := make([]any, len(parts))
			for i, p := range parts {
				els[i] = p
			}
			return CategoryIDList(els)
		}
		if id, ok := NormalizeCategoryID(s); ok {
			return []string{id}
		}
		return nil
	default:
		if s, ok := AsString(v); ok {
			if id, ok := NormalizeCategoryID(s); ok {
				return []string{id}
			}
		}
		return nil
	}
}
