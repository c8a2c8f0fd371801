package utils

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// ParseToolArguments parses a tool call's accumulated argument text as a
// JSON object (spec §4.5 "parse arguments as JSON"). Streamed model output
// is not always well-formed JSON by the time a turn ends, so a failed
// unmarshal is retried once against jsonrepair's best-effort fix-up
// (unquoted keys, trailing commas, Python literals, truncated braces)
// before the caller falls back to an empty object.
func ParseToolArguments(content string) (map[string]any, error) {
	var result map[string]any
	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments and failed to repair JSON: unmarshal error: %w, repair error: %v", err, repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal repaired arguments: %w (original: %s, repaired: %s)", err, content, repaired)
	}
	return result, nil
}
