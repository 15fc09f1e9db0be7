package cmd

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	benchCfg "kvperf/config"
)

// fieldByTag resolves a configuration field by its json tag name.
func fieldByTag(cfg *benchCfg.BenchConfig, name string) (reflect.Value, bool) {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setField applies a "field=value" assignment, where field is the json
// name of a configuration field. Durations accept time.ParseDuration
// syntax, string slices a comma-separated list.
func setField(cfg *benchCfg.BenchConfig, arg string) error {
	parts := strings.SplitN(arg, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid format %q, use: field=value", arg)
	}
	name, value := parts[0], parts[1]
	fieldVal, ok := fieldByTag(cfg, name)
	if !ok {
		return fmt.Errorf("unknown config field %q", name)
	}

	if fieldVal.Type() == reflect.TypeOf(benchCfg.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
		fieldVal.Set(reflect.ValueOf(benchCfg.Duration(d)))
		return nil
	}

	switch fieldVal.Kind() {
	case reflect.Int, reflect.Int64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %w", name, err)
		}
		fieldVal.SetInt(v)
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %w", name, err)
		}
		fieldVal.SetBool(v)
	case reflect.String:
		fieldVal.SetString(value)
	case reflect.Slice:
		if fieldVal.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type for field %s", name)
		}
		values := strings.Split(value, ",")
		slice := reflect.MakeSlice(fieldVal.Type(), len(values), len(values))
		for i, v := range values {
			slice.Index(i).SetString(strings.TrimSpace(v))
		}
		fieldVal.Set(slice)
	default:
		return fmt.Errorf("unsupported type for field %s", name)
	}
	return nil
}

// getField formats a configuration field for display.
func getField(cfg *benchCfg.BenchConfig, name string) (string, error) {
	fieldVal, ok := fieldByTag(cfg, name)
	if !ok {
		return "", fmt.Errorf("unknown config field %q", name)
	}
	if fieldVal.Type() == reflect.TypeOf(benchCfg.Duration(0)) {
		return fieldVal.Interface().(benchCfg.Duration).String(), nil
	}
	return fmt.Sprintf("%v", fieldVal.Interface()), nil
}
