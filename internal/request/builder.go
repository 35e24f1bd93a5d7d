package request

import "time"

type StrokeInput struct {
	ID      string
	Session string
	Time    time.Time
	Keys    []string
	Extra   map[string]interface{}
}

// BuildStrokePayload is the JSON body forwarded for one stroke. Extra fields
// override the built-in ones; empty values are dropped.
func BuildStrokePayload(in StrokeInput) map[string]interface{} {
	payload := make(map[string]interface{})
	payload["id"] = in.ID
	payload["session"] = in.Session
	keys := make([]interface{}, 0, len(in.Keys))
	for _, k := range in.Keys {
		keys = append(keys, k)
	}
	payload["keys"] = keys
	if !in.Time.IsZero() {
		payload["time"] = in.Time.UTC().Format(time.RFC3339Nano)
	}
	for k, v := range in.Extra {
		payload[k] = v
	}
	return StripEmptyFields(payload)
}
