package commandstructure

import (
	"strconv"
	"strings"
)

// GetStringParam extracts a string parameter, falling back to defaultValue.
func GetStringParam(params map[string]any, key string, defaultValue string) string {
	if val, ok := params[key]; ok {
		if strVal, ok := val.(string); ok {
			return strings.TrimSpace(strVal)
		}
	}
	return defaultValue
}

// GetIntParam extracts an int parameter. Numbers decoded from YAML and
// numeric strings from query parameters are both accepted.
func GetIntParam(params map[string]any, key string, defaultValue int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return defaultValue
}

// HasAnyParam reports whether at least one of keys is present.
func HasAnyParam(params map[string]any, keys ...string) bool {
	for _, key := range keys {
		if _, ok := params[key]; ok {
			return true
		}
	}
	return false
}
