package response

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Lookup reads a scalar from a JSON reply by dotted path with optional
// indexes, e.g. "result.actions[0]".
func Lookup(body []byte, path string) (string, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", false
	}
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return "", false
	}
	return extractByPath(root, path)
}

// WantsUndo reports whether the reply asks for the stroke to be taken back:
// the value at path is a true boolean, "true"/"1", or a positive number.
func WantsUndo(body []byte, path string) bool {
	v, ok := Lookup(body, path)
	if !ok {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	n, err := strconv.ParseFloat(v, 64)
	return err == nil && n > 0
}
