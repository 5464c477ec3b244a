package builtin

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func parseIntDefault(raw any, fallback int) int {
	switch v := raw.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return fallback
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return fallback
		}
		return n
	default:
		return fallback
	}
}

func parseFloatDefault(raw any, fallback float64) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return fallback
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fallback
		}
		return n
	default:
		return fallback
	}
}

func requireString(params map[string]any, key string) (string, error) {
	v, _ := params[key].(string)
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("missing required param: %s", key)
	}
	return v, nil
}

func requireFloat(params map[string]any, key string) (float64, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required param: %s", key)
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid param %s: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid param %s", key)
	}
}

func optionalInt(params map[string]any, key string) *int {
	v, ok := params[key]
	if !ok || v == nil {
		return nil
	}
	if n, ok := asInt64(v); ok {
		i := int(n)
		return &i
	}
	return nil
}

func optionalString(params map[string]any, key string) *string {
	v, _ := params[key].(string)
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float32:
		return int64(x), true
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
