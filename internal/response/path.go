package response

import (
	"fmt"
	"strconv"
	"strings"
)

type step struct {
	key   string
	index int // -1 for a key step
}

// parsePath splits "a.b[0][1].c" into key and index steps.
func parsePath(path string) ([]step, error) {
	var steps []step
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("empty segment in %q", path)
		}
		key := part
		rest := ""
		if br := strings.IndexByte(part, '['); br >= 0 {
			key, rest = part[:br], part[br:]
		}
		if key != "" {
			steps = append(steps, step{key: key, index: -1})
		}
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, fmt.Errorf("invalid index syntax: %s", part)
			}
			n, err := strconv.Atoi(rest[1:end])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid index in %s", part)
			}
			steps = append(steps, step{index: n})
			rest = rest[end+1:]
		}
	}
	return steps, nil
}

func extractByPath(root interface{}, path string) (string, bool) {
	steps, err := parsePath(path)
	if err != nil {
		return "", false
	}
	cur := root
	for _, s := range steps {
		if s.index < 0 {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return "", false
			}
			if cur, ok = m[s.key]; !ok {
				return "", false
			}
			continue
		}
		arr, ok := cur.([]interface{})
		if !ok || s.index >= len(arr) {
			return "", false
		}
		cur = arr[s.index]
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}
