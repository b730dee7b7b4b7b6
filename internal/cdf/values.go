package cdf

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// shape returns the lengths of the nested slices of v, outermost first.
// Empty slices end the walk.
func shape(v any) []int {
	var dims []int
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Slice {
		dims = append(dims, rv.Len())
		if rv.Len() == 0 {
			break
		}
		rv = rv.Index(0)
	}
	return dims
}

// flatten appends the numeric leaves of v in row-major order.
func flatten(dst []float64, v any) ([]float64, error) {
	return flattenValue(dst, reflect.ValueOf(v))
}

func flattenValue(dst []float64, rv reflect.Value) ([]float64, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if f, ok := rv.Interface().([]float64); ok {
			return append(dst, f...), nil
		}
		var err error
		for i := 0; i < rv.Len(); i++ {
			if dst, err = flattenValue(dst, rv.Index(i)); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case reflect.Float32, reflect.Float64:
		return append(dst, rv.Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return append(dst, float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return append(dst, float64(rv.Uint())), nil
	default:
		return nil, fmt.Errorf("cdf: non-numeric value of kind %s", rv.Kind())
	}
}

// number converts a scalar or single element attribute value.
func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		if rv.Len() == 0 {
			return 0, false
		}
		rv = rv.Index(0)
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	default:
		return 0, false
	}
}

func attrNumber(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	return number(v)
}

func attrString(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// numericTypes lists the Go element types a field variable may have.
var numericTypes = map[string]bool{
	"float32": true, "float64": true,
	"int8": true, "int16": true, "int32": true, "int64": true,
	"uint8": true, "uint16": true, "uint32": true, "uint64": true,
}
