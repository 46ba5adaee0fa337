package dispatch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func assertNoUnknownArguments(args map[string]interface{}, allowed map[string]struct{}) error {
	for key := range args {
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("unknown argument: %s", key)
		}
	}
	return nil
}

func parseRequiredString(args map[string]interface{}, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s must be a non-empty string", key)
	}
	return value, nil
}

func parseOptionalString(args map[string]interface{}, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return strings.TrimSpace(value), nil
}

func parseInteger(value interface{}, field string) (int, error) {
	switch v := value.(type) {
	case float64:
		if math.Trunc(v) != v {
			return 0, fmt.Errorf("%s must be an integer", field)
		}
		if v < math.MinInt || v > math.MaxInt {
			return 0, fmt.Errorf("%s is out of range", field)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		// models occasionally send numeric arguments as strings
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", field)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", field)
	}
}

func parseRequiredInteger(args map[string]interface{}, key string) (int, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	return parseInteger(raw, key)
}

func parseOptionalInteger(args map[string]interface{}, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	v, err := parseInteger(raw, key)
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

// parseLimit reads an optional limit argument, applying the default and the
// hard ceiling for the operation.
func parseLimit(args map[string]interface{}, def, max int) (int, error) {
	v, present, err := parseOptionalInteger(args, "limit")
	if err != nil {
		return 0, err
	}
	if !present || v <= 0 {
		return def, nil
	}
	if v > max {
		return max, nil
	}
	return v, nil
}

// parseCodeValue accepts a coded value as either a string or an integer and
// returns its textual form, matching how codes are stored.
func parseCodeValue(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", fmt.Errorf("code must be a non-empty string")
		}
		return s, nil
	case float64:
		if math.Trunc(v) != v {
			return "", fmt.Errorf("code must be an integer or string")
		}
		return strconv.FormatInt(int64(v), 10), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", fmt.Errorf("code must be an integer or string")
	}
}
