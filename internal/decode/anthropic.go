package decode

import (
	"encoding/json"

	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/sse"
)

// AnthropicDecoder decodes the Anthropic Messages SSE dialect (spec §4.2.3).
// Stateless, like the teacher's transformAnthropicStreamEvent in
// providers/ai/anthropic/stream.go, but emitting the shared Action union
// instead of the teacher's ai.StreamEvent.
type AnthropicDecoder struct{}

type anthropicContentBlock struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type anthropicDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	PartialJSON string `json:"partial_json"`
	StopReason  string `json:"stop_reason"`
}

type anthropicEventPayload struct {
	Index        int                    `json:"index"`
	ContentBlock *anthropicContentBlock `json:"content_block"`
	Delta        *anthropicDelta        `json:"delta"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Decode converts one Anthropic SSE event into zero or more Actions.
func (AnthropicDecoder) Decode(ev sse.Event) []llmcore.Action {
	switch ev.EventType {
	case "content_block_start":
		var p anthropicEventPayload
		if err := json.Unmarshal([]byte(ev.Data), &p); err != nil {
			return nil
		}
		if p.ContentBlock == nil || p.ContentBlock.Type != "tool_use" {
			return nil
		}
		return []llmcore.Action{llmcore.ToolUseStart(p.Index, p.ContentBlock.ID, p.ContentBlock.Name, "")}

	case "content_block_delta":
		var p anthropicEventPayload
		if err := json.Unmarshal([]byte(ev.Data), &p); err != nil {
			return nil
		}
		if p.Delta == nil {
			return nil
		}
		switch p.Delta.Type {
		case "text_delta":
			return []llmcore.Action{llmcore.TextDelta(p.Index, p.Delta.Text)}
		case "input_json_delta":
			return []llmcore.Action{llmcore.InputJSONDelta(p.Index, p.Delta.PartialJSON)}
		default:
			return nil
		}

	case "content_block_stop":
		var p anthropicEventPayload
		if err := json.Unmarshal([]byte(ev.Data), &p); err != nil {
			return nil
		}
		return []llmcore.Action{llmcore.ContentBlockStop(p.Index)}

	case "message_delta":
		var p anthropicEventPayload
		if err := json.Unmarshal([]byte(ev.Data), &p); err != nil {
			return nil
		}
		if p.Delta == nil {
			return []llmcore.Action{llmcore.MessageComplete(llmcore.StopUnknown)}
		}
		return []llmcore.Action{llmcore.MessageComplete(mapAnthropicStopReason(p.Delta.StopReason))}

	case "ping":
		return []llmcore.Action{llmcore.PingAction()}

	case "error":
		var p anthropicEventPayload
		_ = json.Unmarshal([]byte(ev.Data), &p)
		msg := ""
		if p.Error != nil {
			msg = p.Error.Message
		}
		return []llmcore.Action{llmcore.ErrorAction(msg)}

	case "message_start", "message_stop":
		return nil

	default:
		return nil
	}
}

func mapAnthropicStopReason(reason string) llmcore.StopReason {
	switch reason {
	case "end_turn":
		return llmcore.StopEndTurn
	case "tool_use":
		return llmcore.StopToolUse
	case "max_tokens":
		return llmcore.StopMaxTokens
	default:
		return llmcore.StopUnknown
	}
}
