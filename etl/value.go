package etl

import (
	"fmt"
	"strconv"
)

// toFloat64 converts a value to float64 for numeric comparison
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// toInt64 converts integral values to int64
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// toString converts a value to its string form
func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	}
	return fmt.Sprintf("%v", v)
}

// compareValues orders two values: nulls first, then numbers, booleans
// and strings. Mismatched types fall back to string comparison. Returns
// -1, 0 or 1.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	fa, aok := numericValue(a)
	fb, bok := numericValue(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}

	ba, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		switch {
		case !ba && bb:
			return -1
		case ba && !bb:
			return 1
		}
		return 0
	}

	sa, sb := toString(a), toString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

// numericValue is toFloat64 without the string fallback, so that string
// values sort lexically rather than numerically.
func numericValue(v interface{}) (float64, bool) {
	switch v.(type) {
	case string:
		return 0, false
	}
	return toFloat64(v)
}

// valuesEqual reports loose equality used by filters, joins and DISTINCT.
func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, aok := toFloat64(a)
	fb, bok := toFloat64(b)
	if aok && bok {
		return fa == fb
	}
	return toString(a) == toString(b)
}
