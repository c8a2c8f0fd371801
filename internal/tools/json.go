package tools

import "encoding/json"

// marshalJSON renders v as a JSON string. A marshal failure is not a
// condition a tool result should ever surface to a model, so it degrades to
// a fixed error payload instead of propagating.
func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to marshal tool result"}`
	}
	return string(b)
}
