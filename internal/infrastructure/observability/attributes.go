package observability

import (
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
)

// toAttributes converts in key order so span attributes are deterministic.
func toAttributes(attrs map[string]any) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]attribute.KeyValue, 0, len(attrs))
	for _, k := range keys {
		result = append(result, toAttribute(k, attrs[k]))
	}
	return result
}

func toAttribute(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(key, val)
	case bool:
		return attribute.Bool(key, val)
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case float64:
		return attribute.Float64(key, val)
	case float32:
		return attribute.Float64(key, float64(val))
	case []string:
		return attribute.StringSlice(key, val)
	case []bool:
		return attribute.BoolSlice(key, val)
	case []int:
		return attribute.IntSlice(key, val)
	case fmt.Stringer:
		return attribute.String(key, val.String())
	default:
		return attribute.String(key, fmt.Sprint(val))
	}
}
