package config

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// normalize checks value against the option and returns it as string or
// int64.
func normalize(option *Option, value interface{}) (interface{}, error) {
	switch option.OptType {
	case OptTypeString:
		s, ok := value.(string)
		if !ok {
			return nil, valueError(option.Key, value, fmt.Sprintf("expected string, got %T", value))
		}
		if option.compiledRegex != nil && !option.compiledRegex.MatchString(s) {
			return nil, valueError(option.Key, value, "does not match "+option.ValidationRegex)
		}
		return s, nil

	case OptTypeInt:
		i, err := toInt64(value)
		if err != nil {
			return nil, valueError(option.Key, value, err.Error())
		}
		if option.compiledRegex != nil && !option.compiledRegex.MatchString(strconv.FormatInt(i, 10)) {
			return nil, valueError(option.Key, value, "does not match "+option.ValidationRegex)
		}
		return i, nil

	default:
		return nil, valueError(option.Key, value, "unsupported option type "+getTypeName(option.OptType))
	}
}

func toInt64(value interface{}) (int64, error) {
	v := reflect.ValueOf(value)
	switch v.Kind() { //nolint:exhaustive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", v.Uint())
		}
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}
