package feature

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoerceFloat converts v into a float64. Strings are trimmed and parsed,
// numbers are converted as is. Anything else, including NaN and infinities,
// resolves to def. It never fails.
func CoerceFloat(v any, def float64) float64 {
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	return f
}

// CoerceInt converts v into an int by parsing it as a float and truncating
// toward zero, so "42.9" becomes 42. Values that can't be parsed or don't fit
// into an int64 resolve to def.
func CoerceInt(v any, def int) int {
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	f = math.Trunc(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return def
	}
	return int(f)
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	case json.Number:
		p, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case bool:
		if t {
			f = 1
		}
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
