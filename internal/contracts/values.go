package contracts

import (
	"encoding/json"
	"math"
	"strconv"
)

// Values is an open key-to-value mapping used for module configuration,
// agent tasks and results, and analytics payloads.
type Values map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Has reports whether key is present.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// String returns the string at key, or def when absent or not a string.
func (v Values) String(key, def string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return def
}

// Int returns the integer at key, or def when absent or not numeric.
func (v Values) Int(key string, def int) int {
	if n, ok := toInt(v[key]); ok {
		return n
	}
	return def
}

// Float returns the number at key, or def when absent or not numeric.
func (v Values) Float(key string, def float64) float64 {
	if f, ok := toFloat(v[key]); ok {
		return f
	}
	return def
}

// Bool returns the boolean at key, or def when absent or not a boolean.
func (v Values) Bool(key string, def bool) bool {
	if b, ok := toBool(v[key]); ok {
		return b
	}
	return def
}

// Map returns the nested mapping at key, or nil.
func (v Values) Map(key string) Values {
	switch m := v[key].(type) {
	case Values:
		return m
	case map[string]any:
		return Values(m)
	}
	return nil
}

// Strings returns the string list at key, or nil.
func (v Values) Strings(key string) []string {
	switch list := v[key].(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		if float32(math.Trunc(float64(n))) == n {
			return int(n), true
		}
	case float64:
		if math.Trunc(n) == n {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
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
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed, true
		}
	}
	return false, false
}
