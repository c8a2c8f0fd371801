package toolloop

import (
	"context"
	"fmt"

	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/utils"
)

func anthropicToolDefs(defs []llmcore.ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, map[string]any{
			"name":         d.Name,
			"description":  d.Description,
			"input_schema": d.Parameters,
		})
	}
	return out
}

// RunAnthropic runs one Anthropic participant's tool loop (spec §4.5
// "Anthropic-specific encoding"): the assistant turn is a content-block
// list; tool calls round-trip as tool_use/tool_result blocks, with
// is_error set when argument parsing failed or the tool itself errored.
func RunAnthropic(ctx context.Context, model string, stream StreamFunc, cfg RunConfig) *Session {
	session := newSession("anthropic", model)

	history := []map[string]any{
		{"role": "user", "content": cfg.UserPrompt},
	}
	toolDefs := anthropicToolDefs(cfg.ToolDefs)

	for step := 0; step < MaxSteps; step++ {
		payload := map[string]any{
			"model":      model,
			"max_tokens": 8192,
			"messages":   history,
		}
		if cfg.SystemPrompt != "" {
			payload["system"] = cfg.SystemPrompt
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
			assistantBlocks := []map[string]any{}
			if result.Text != "" {
				assistantBlocks = append(assistantBlocks, map[string]any{"type": "text", "text": result.Text})
			}
			parsedArgs := make([]map[string]any, len(result.ToolCalls))
			for i, call := range result.ToolCalls {
				args := parseArguments(call.Arguments)
				parsedArgs[i] = args
				assistantBlocks = append(assistantBlocks, map[string]any{
					"type":  "tool_use",
					"id":    call.ID,
					"name":  call.Name,
					"input": args,
				})
			}
			history = append(history, map[string]any{"role": "assistant", "content": assistantBlocks})

			executed := executeCalls(ctx, cfg.ProjectPath, result.ToolCalls)
			resultBlocks := make([]map[string]any, 0, len(executed))
			for _, ex := range executed {
				isErr := ex.isErr
				if ex.call.Arguments != "" {
					if _, parseErr := utils.ParseToolArguments(ex.call.Arguments); parseErr != nil {
						isErr = true
					}
				}
				resultBlocks = append(resultBlocks, map[string]any{
					"type":        "tool_result",
					"tool_use_id": ex.call.ID,
					"content":     ex.output,
					"is_error":    isErr,
				})
				if ex.isErr {
					session.addToolCall(ex.call.Name, ex.call.Arguments, "", ex.output)
				} else {
					session.addToolCall(ex.call.Name, ex.call.Arguments, ex.output, "")
				}
			}
			history = append(history, map[string]any{"role": "user", "content": resultBlocks})
			continue
		}

		finalizeFromStop(session, result.StopReason, result.Text)
		return session
	}

	session.finalize("", false, "tool loop exceeded maximum steps")
	return session
}
