package toolloop

import (
	"context"
	"fmt"

	"github.com/basinlabs/conclave/internal/llmcore"
)

func geminiToolDefs(defs []llmcore.ToolDefinition) []map[string]any {
	decls := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  d.Parameters,
		})
	}
	if len(decls) == 0 {
		return nil
	}
	return []map[string]any{{"functionDeclarations": decls}}
}

// RunGemini runs one Gemini participant's tool loop (spec §4.5
// "Gemini-specific encoding"): role/parts history, with each function call
// part required to echo back its thoughtSignature on the following turn —
// dropping it causes the next call to fail silently, so it is threaded
// through verbatim from the ToolCall that carried it.
func RunGemini(ctx context.Context, model string, stream StreamFunc, cfg RunConfig) *Session {
	session := newSession("gemini", model)

	history := []map[string]any{
		{"role": "user", "parts": []map[string]any{{"text": cfg.UserPrompt}}},
	}
	tools := geminiToolDefs(cfg.ToolDefs)

	for step := 0; step < MaxSteps; step++ {
		payload := map[string]any{
			"contents": history,
		}
		if cfg.SystemPrompt != "" {
			payload["systemInstruction"] = map[string]any{
				"parts": []map[string]any{{"text": cfg.SystemPrompt}},
			}
		}
		if tools != nil {
			payload["tools"] = tools
			payload["toolConfig"] = map[string]any{
				"functionCallingConfig": map[string]any{"mode": "AUTO"},
			}
		}

		result, err := stream(ctx, payload)
		if err != nil {
			session.finalize("", false, fmt.Sprintf("stream error: %v", err))
			return session
		}

		if result.StopReason == llmcore.StopToolUse && len(result.ToolCalls) > 0 {
			modelParts := []map[string]any{}
			if result.Text != "" {
				modelParts = append(modelParts, map[string]any{"text": result.Text})
			}
			for _, call := range result.ToolCalls {
				args := parseArguments(call.Arguments)
				part := map[string]any{
					"functionCall": map[string]any{
						"name": call.Name,
						"args": args,
					},
				}
				if call.ThoughtSignature != "" {
					part["thoughtSignature"] = call.ThoughtSignature
				}
				modelParts = append(modelParts, part)
			}
			history = append(history, map[string]any{"role": "model", "parts": modelParts})

			executed := executeCalls(ctx, cfg.ProjectPath, result.ToolCalls)
			responseParts := make([]map[string]any, 0, len(executed))
			for _, ex := range executed {
				responseParts = append(responseParts, map[string]any{
					"functionResponse": map[string]any{
						"name": ex.call.Name,
						"response": map[string]any{
							"ok":     !ex.isErr,
							"result": ex.output,
						},
					},
				})
				if ex.isErr {
					session.addToolCall(ex.call.Name, ex.call.Arguments, "", ex.output)
				} else {
					session.addToolCall(ex.call.Name, ex.call.Arguments, ex.output, "")
				}
			}
			history = append(history, map[string]any{"role": "user", "parts": responseParts})
			continue
		}

		finalizeFromStop(session, result.StopReason, result.Text)
		return session
	}

	session.finalize("", false, "tool loop exceeded maximum steps")
	return session
}
