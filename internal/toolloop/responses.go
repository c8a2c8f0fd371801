package toolloop

import (
	"context"
	"fmt"

	"github.com/basinlabs/conclave/internal/llmcore"
)

// StreamFunc calls C4 for one turn against a fixed provider/model/endpoint
// configuration. Providers close over their URL and credentials and expose
// this shape so the tool-loop drivers stay transport-agnostic.
type StreamFunc func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error)

func responsesToolDefs(defs []llmcore.ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, map[string]any{
			"type":        "function",
			"name":        d.Name,
			"description": d.Description,
			"parameters":  d.Parameters,
		})
	}
	return out
}

// RunResponses runs one Responses-family participant's tool loop (spec
// §4.5 "Responses-family encoding"): a flat input-item list, each tool
// call expanded into a function_call item followed by a function_call_output
// item once executed.
func RunResponses(ctx context.Context, model string, stream StreamFunc, cfg RunConfig) *Session {
	session := newSession("responses", model)

	history := []map[string]any{
		{"role": "user", "content": cfg.UserPrompt},
	}
	toolDefs := responsesToolDefs(cfg.ToolDefs)

	for step := 0; step < MaxSteps; step++ {
		payload := map[string]any{
			"model": model,
			"input": history,
		}
		if cfg.SystemPrompt != "" {
			payload["instructions"] = cfg.SystemPrompt
		}
		if len(toolDefs) > 0 {
			payload["tools"] = toolDefs
		}

		result, err := stream(ctx, payload)
		if err != nil {
			session.finalize("", false, fmt.Sprintf("stream error: %v", err))
			return session
		}

		if result.StopReason == llmcore.StopToolUse && len(result.ToolCalls) > 0 {
			for _, call := range result.ToolCalls {
				history = append(history, map[string]any{
					"type":      "function_call",
					"call_id":   call.ID,
					"name":      call.Name,
					"arguments": call.Arguments,
				})
			}
			executed := executeCalls(ctx, cfg.ProjectPath, result.ToolCalls)
			for _, ex := range executed {
				history = append(history, map[string]any{
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
