package toolloop

import (
	"context"
	"fmt"

	"github.com/basinlabs/conclave/internal/llmcore"
)

// RunResponsesReview drives the single-agent code-review loop (spec §1:
// "a single-agent code review loop that chains a tool-using model across
// turns using server-side response-ID continuation"). Unlike RunResponses,
// which replays the full input-item history every turn, this driver sends
// only the new items each turn and relies on previous_response_id so the
// server retains prior turns — the Responses API's session-continuation
// mode (spec §3 "response_id is populated only by the Responses decoder").
func RunResponsesReview(ctx context.Context, model string, stream StreamFunc, cfg RunConfig) *Session {
	session := newSession("responses", model)
	toolDefs := responsesToolDefs(cfg.ToolDefs)

	previousResponseID := cfg.PreviousResponseID
	pendingItems := []map[string]any{
		{"role": "user", "content": cfg.UserPrompt},
	}

	for step := 0; step < MaxSteps; step++ {
		payload := map[string]any{
			"model": model,
			"input": pendingItems,
		}
		if cfg.SystemPrompt != "" {
			payload["instructions"] = cfg.SystemPrompt
		}
		if previousResponseID != "" {
			payload["previous_response_id"] = previousResponseID
		}
		if len(toolDefs) > 0 {
			payload["tools"] = toolDefs
		}

		result, err := stream(ctx, payload)
		if err != nil {
			session.ResponseID = previousResponseID
			session.finalize("", false, fmt.Sprintf("stream error: %v", err))
			return session
		}
		if result.ResponseID != "" {
			previousResponseID = result.ResponseID
		}
		session.ResponseID = previousResponseID

		if result.StopReason == llmcore.StopToolUse && len(result.ToolCalls) > 0 {
			executed := executeCalls(ctx, cfg.ProjectPath, result.ToolCalls)
			pendingItems = make([]map[string]any, 0, len(executed))
			for _, ex := range executed {
				pendingItems = append(pendingItems, map[string]any{
					"type":    "function_call_output",
					"call_id": ex.call.ID,
					"output":  ex.output,
				})
				if ex.isErr {
					session.addToolCall(ex.call.Name, ex.call.Arguments, "", ex.output)
				} else {
					session.addToolCall(ex.call.Name, ex.call.Arguments, ex.output, "")
				}
			}
			continue
		}

		finalizeFromStop(session, result.StopReason, result.Text)
		return session
	}

	session.finalize("", false, "tool loop exceeded maximum steps")
	return session
}
