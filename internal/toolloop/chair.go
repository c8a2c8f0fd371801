package toolloop

import (
	"context"
	"fmt"
)

// ChairResult is the outcome of one tool-less chair invocation: either a
// non-empty Text on success, or Error set on failure.
type ChairResult struct {
	Text    string
	Success bool
	Error   string
}

// RunChair drives a single tool-less turn for the chair model (spec §4.5
// "Chair variant": no tools, no tool loop, one stream call, take text).
// The payload builder is supplied by the caller since the chair may be
// backed by either the Anthropic or the Responses-family encoding
// (spec §4.7 "Chair selection").
func RunChair(ctx context.Context, stream StreamFunc, buildPayload func(systemPrompt, userPrompt string) map[string]any, systemPrompt, userPrompt string) ChairResult {
	payload := buildPayload(systemPrompt, userPrompt)
	result, err := stream(ctx, payload)
	if err != nil {
		return ChairResult{Success: false, Error: fmt.Sprintf("stream error: %v", err)}
	}
	return ChairResult{Text: result.Text, Success: true}
}
