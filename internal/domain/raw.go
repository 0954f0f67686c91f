package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is one upstream record as decoded from JSON. Field names and
// value types vary by (trade type, trade country); nothing here is
// trusted for semantics. Only the normalizer reads raw fields.
type RawRecord map[string]any

// String returns the value under key rendered as a trimmed string, or ""
// when absent or null. Numeric values are formatted without an exponent
// so integer HS codes survive the JSON float round-trip.
func (r RawRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// Float parses the value under key as a float64. ok is false when the
// key is absent, null, or not numeric.
func (r RawRecord) Float(key string) (float64, bool) {
	v, exists := r[key]
	if !exists || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FirstString returns the first non-empty string among keys.
func (r RawRecord) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := r.String(k); s != "" {
			return s
		}
	}
	return ""
}

// FirstFloat returns the first parseable non-zero numeric value among
// keys, mirroring the upstream convention where zero means "not filled".
func (r RawRecord) FirstFloat(keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := r.Float(k); ok && f != 0 {
			return f, true
		}
	}
	return 0, false
}

// Has reports whether key is present with a non-null value.
func (r RawRecord) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}
