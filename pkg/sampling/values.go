package sampling

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Drivers return aggregates as different Go types (int64, float64, []byte
// from MySQL, decimal types from DuckDB). These helpers read them uniformly.

type float64er interface {
	Float64() float64
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case *big.Int:
		if n == nil || !n.IsInt64() {
			return 0, false
		}
		return n.Int64(), true
	case string, []byte:
		s := strings.TrimSpace(asString(n))
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(math.Round(f)), true
		}
		return 0, false
	}
	if f, ok := asFloat64(v); ok {
		return int64(math.Round(f)), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int, int8, int16, int32, int64, uint8, uint16, uint32, *big.Int:
		i, ok := asInt64(n)
		return float64(i), ok
	case string, []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(asString(n)), 64)
		return f, err == nil
	case float64er:
		return n.Float64(), true
	}
	return 0, false
}

// asString renders a value as text; nil is "".
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

func int64Ptr(v any) *int64 {
	if i, ok := asInt64(v); ok {
		return &i
	}
	return nil
}

func float64Ptr(v any) *float64 {
	if f, ok := asFloat64(v); ok {
		return &f
	}
	return nil
}

// numberTextPtr renders a numeric aggregate as its shortest decimal text.
func numberTextPtr(v any) *string {
	if f, ok := asFloat64(v); ok {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		return &s
	}
	return nil
}

func textPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}
