package extraction

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var numberReplacer = strings.NewReplacer(",", "", "%", "", "₹", "", "rs.", "", "rs", "", "inr", "", " ", "", "\u00a0", "")

// toFloat accepts JSON numbers, Go numeric types and formatted strings such
// as "1,20,000", "12.5%" or "₹ 4.2". Booleans and NaN/Inf are rejected.
func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(strings.ToLower(n))
		negative := false
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			negative = true
			s = strings.Trim(s, "()")
		}
		s = numberReplacer.Replace(s)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		if negative {
			parsed = -parsed
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

func floatPtr(v interface{}) *float64 {
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// toBool accepts booleans, non-zero numbers and yes/no style strings.
func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.TrimSpace(strings.ToLower(b)) {
		case "true", "yes", "y", "1", "available":
			return true, true
		case "false", "no", "n", "0", "unavailable", "":
			return false, true
		}
		return false, false
	}
	if f, ok := toFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

// toText renders scalars as strings; objects and arrays yield "".
func toText(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

// firstKey returns the first present, non-nil value among keys.
func firstKey(m map[string]interface{}, keys ...string) (interface{}, string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, k, true
		}
	}
	return nil, "", false
}

// ToFloat is the tolerant number coercion used for every numeric field.
func ToFloat(v interface{}) (float64, bool) {
	return toFloat(v)
}

// ToText renders a scalar as trimmed text.
func ToText(v interface{}) string {
	return toText(v)
}
