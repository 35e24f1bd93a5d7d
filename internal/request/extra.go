package request

import (
	"encoding/json"
	"strings"
)

// ParseExtraConfig decodes the ExtraConfig JSON object. Blank input means
// no extra fields.
func ParseExtraConfig(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	m := make(map[string]interface{})
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeExtra layers maps left to right; later maps win.
func MergeExtra(layers ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// StripEmptyFields drops nil values, blank strings and containers that end
// up empty, recursively. Setting a field to "" in ExtraConfig removes it.
func StripEmptyFields(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if v, keep := prune(v); keep {
			out[k] = v
		}
	}
	return out
}

func prune(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return t, strings.TrimSpace(t) != ""
	case map[string]interface{}:
		m := StripEmptyFields(t)
		return m, len(m) > 0
	case []interface{}:
		arr := make([]interface{}, 0, len(t))
		for _, item := range t {
			if item, keep := prune(item); keep {
				arr = append(arr, item)
			}
		}
		return arr, len(arr) > 0
	default:
		return v, true
	}
}
