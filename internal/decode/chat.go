package decode

import (
	"encoding/json"

	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/sse"
)

// ChatDecoder decodes the OpenAI Chat-Completions SSE dialect (spec
// §4.2.2). Event type is ignored entirely; only Data is inspected, matching
// the wire format chat completions actually uses (no "event:" line).
type ChatDecoder struct{}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Decode converts one Chat-Completions SSE event into zero or more Actions.
func (ChatDecoder) Decode(ev sse.Event) []llmcore.Action {
	if ev.Data == "[DONE]" {
		return []llmcore.Action{llmcore.MessageComplete(llmcore.StopEndTurn)}
	}

	var chunk chatChunk
	if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
		return nil
	}

	if chunk.Error != nil {
		return []llmcore.Action{llmcore.ErrorAction(chunk.Error.Message)}
	}

	var actions []llmcore.Action
	if len(chunk.Choices) == 0 {
		return actions
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != "" {
		actions = append(actions, llmcore.TextDelta(0, choice.Delta.Content))
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		switch *choice.FinishReason {
		case "stop":
			actions = append(actions, llmcore.MessageComplete(llmcore.StopEndTurn))
		case "length":
			actions = append(actions, llmcore.MessageComplete(llmcore.StopMaxTokens))
		default:
			actions = append(actions, llmcore.MessageComplete(llmcore.StopUnknown))
		}
	}

	return actions
}
