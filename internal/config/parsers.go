// Package config provides configuration loading and parsing for loadsweep.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lookupSetting returns the first candidate key present in settings, trying
// each key as written and lowercased.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		for _, k := range []string{key, strings.ToLower(key)} {
			if val, ok := settings[k]; ok {
				return val, true
			}
		}
	}
	return nil, false
}

func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", value)
	}
}

// asNumber normalizes the numeric shapes produced by the JSON, YAML and TOML
// decoders behind viper. Blank strings read as zero.
func asNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}

// asInt rejects fractional values instead of truncating them, so "levels:
// [2.5]" fails loudly.
func asInt(value interface{}) (int, error) {
	f, err := asNumber(value)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%v is not a whole number", value)
	}
	return int(f), nil
}

func asFloat64(value interface{}) (float64, error) {
	return asNumber(value)
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, nil
		}
		return strconv.ParseBool(s)
	default:
		return false, fmt.Errorf("expected a boolean, got %T", value)
	}
}

// asDuration accepts Go duration strings ("30s", "1m30s"). Bare numbers are
// seconds.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
	}
	secs, err := asNumber(value)
	if err != nil {
		return 0, fmt.Errorf("expected a duration like \"30s\", got %v", value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// asIntSlice accepts a list, a single number or a comma separated string such
// as "10,20,30".
func asIntSlice(value interface{}) ([]int, error) {
	var items []interface{}
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []int:
		return append([]int(nil), v...), nil
	case []interface{}:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case string:
		trimmed := strings.Trim(strings.TrimSpace(v), "[]")
		if trimmed == "" {
			return nil, nil
		}
		for _, s := range strings.Split(trimmed, ",") {
			items = append(items, s)
		}
	default:
		items = []interface{}{v}
	}

	result := make([]int, 0, len(items))
	for i, item := range items {
		n, err := asInt(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		result = append(result, n)
	}
	return result, nil
}

// toStringKeyMap lowercases the keys of a nested section.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	result := map[string]interface{}{}
	switch v := value.(type) {
	case map[string]interface{}:
		for key, val := range v {
			result[strings.ToLower(strings.TrimSpace(key))] = val
		}
	case map[interface{}]interface{}:
		for key, val := range v {
			result[strings.ToLower(strings.TrimSpace(fmt.Sprint(key)))] = val
		}
	default:
		return nil, fmt.Errorf("expected a section, got %T", value)
	}
	return result, nil
}
