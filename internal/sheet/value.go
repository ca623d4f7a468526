package sheet

import (
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericPattern matches what a workbook accepts as a number typed into a
// cell: integers, decimals and exponent forms. Currency symbols and
// thousands separators are not numbers here.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\d*\.?\d+)([eE][+-]?[0-2]?\d{1,3})?$`)

// IsNumeric reports whether s is a plain number.
func IsNumeric(s string) bool {
	return numericPattern.MatchString(s)
}

// BindValue decides how a string is stored in a cell. Plain numbers become
// float64 so formats and sums apply; numbers whose leading zero is
// significant ("007", "0123") stay text, as does everything else.
func BindValue(s string) any {
	if !IsNumeric(s) {
		return s
	}
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}

// Underlying unwraps nullable wrappers such as pgtype.Text to the value they
// hold; an invalid (null) wrapper yields nil.
func Underlying(v any) any {
	if valuer, ok := v.(driver.Valuer); ok {
		inner, err := valuer.Value()
		if err != nil {
			return v
		}
		return inner
	}
	return v
}

// IsScalar reports whether v can occupy a single cell. Slices, arrays, maps
// and structs (other than time.Time) are composite.
func IsScalar(v any) bool {
	v = Underlying(v)
	if v == nil {
		return true
	}
	if _, ok := v.(time.Time); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct,
		reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.Type() == reflect.TypeOf(time.Time{})
	default:
		return true
	}
}

// ScalarString renders a scalar value the way it reads in a cell.
// Booleans follow the spreadsheet convention: true is "1", false is empty.
func ScalarString(v any) string {
	switch x := Underlying(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "1"
		}
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case interface{ String() string }:
		return x.String()
	}

	rv := reflect.ValueOf(Underlying(v))
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Bool:
		return ScalarString(rv.Bool())
	case reflect.String:
		return rv.String()
	}
	return ""
}
