package analysis

import "fmt"

// StringInput returns inputs[key] as a string. Required values report a
// routine-friendly error.
func StringInput(inputs map[string]any, key string) (string, error) {
	v, ok := inputs[key]
	if !ok {
		return "", fmt.Errorf("missing required input %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("input %q must be a non-empty string", key)
	}
	return s, nil
}

// IntInput returns inputs[key] as an int, or def when absent. YAML and JSON
// decoders hand numbers over as int, int64, or float64.
func IntInput(inputs map[string]any, key string, def int) (int, error) {
	v, ok := inputs[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("input %q must be a number", key)
	}
}

// StringsInput returns inputs[key] as a string slice, or nil when absent.
func StringsInput(inputs map[string]any, key string) ([]string, error) {
	v, ok := inputs[key]
	if !ok {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, nil
		}
		return nil, fmt.Errorf("input %q must be a list of strings", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("input %q must be a list of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}
