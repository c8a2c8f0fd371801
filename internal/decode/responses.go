// Package decode implements the four provider decoders (spec component C2):
// functions from one sse.Event to zero or more llmcore.Action values (pure
// for Responses, Chat and Anthropic; GeminiDecoder keeps per-turn state),
// following the teacher's per-provider stream-transform idiom
// (providers/ai/anthropic/stream.go, providers/ai/openai/stream.go,
// providers/ai/gemini/stream.go) but operating on our own raw SSE framer
// output instead of the teacher's line-based SSEScanner.
package decode

import (
	"encoding/json"

	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/sse"
)

// ResponsesDecoder decodes the OpenAI "Responses" SSE dialect (spec §4.2.1).
// It holds no state; every call is a pure function of the event.
type ResponsesDecoder struct{}

type responsesOutputItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Name   string `json:"name"`
}

type responsesIncompleteDetails struct {
	Reason string `json:"reason"`
}

type responsesCompletedPayload struct {
	Response struct {
		Status             string                      `json:"status"`
		IncompleteDetails  *responsesIncompleteDetails `json:"incomplete_details"`
		Output             []responsesOutputItem       `json:"output"`
	} `json:"response"`
}

type responsesOutputItemEvent struct {
	OutputIndex int                 `json:"output_index"`
	Item        responsesOutputItem `json:"item"`
}

type responsesTextDeltaEvent struct {
	OutputIndex int    `json:"output_index"`
	Delta       string `json:"delta"`
}

type responsesArgsDeltaEvent struct {
	OutputIndex int    `json:"output_index"`
	Delta       string `json:"delta"`
}

type responsesArgsDoneEvent struct {
	OutputIndex int    `json:"output_index"`
	Arguments   string `json:"arguments"`
}

type responsesErrorEvent struct {
	Message string `json:"message"`
}

// Decode converts one Responses-family SSE event into zero or more Actions.
func (ResponsesDecoder) Decode(ev sse.Event) []llmcore.Action {
	switch ev.EventType {
	case "response.output_item.added":
		var payload struct {
			OutputIndex int                 `json:"output_index"`
			Item        responsesOutputItem `json:"item"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return nil
		}
		if payload.Item.Type != "function_call" {
			return nil
		}
		return []llmcore.Action{llmcore.ToolUseStart(payload.OutputIndex, payload.Item.CallID, payload.Item.Name, "")}

	case "response.output_text.delta":
		var payload responsesTextDeltaEvent
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return nil
		}
		return []llmcore.Action{llmcore.TextDelta(payload.OutputIndex, payload.Delta)}

	case "response.function_call_arguments.delta":
		var payload responsesArgsDeltaEvent
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return nil
		}
		return []llmcore.Action{llmcore.InputJSONDelta(payload.OutputIndex, payload.Delta)}

	case "response.function_call_arguments.done":
		var payload responsesArgsDoneEvent
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return nil
		}
		return []llmcore.Action{llmcore.InputJSONFinal(payload.OutputIndex, payload.Arguments)}

	case "response.output_item.done":
		var payload responsesOutputItemEvent
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return nil
		}
		if payload.Item.Type != "message" && payload.Item.Type != "reasoning" {
			return nil
		}
		return []llmcore.Action{llmcore.ContentBlockStop(payload.OutputIndex)}

	case "response.completed":
		var payload responsesCompletedPayload
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return nil
		}
		reason := mapResponsesStopReason(payload)
		return []llmcore.Action{llmcore.MessageComplete(reason)}

	case "error":
		var payload responsesErrorEvent
		_ = json.Unmarshal([]byte(ev.Data), &payload)
		return []llmcore.Action{llmcore.ErrorAction(payload.Message)}

	default:
		return nil
	}
}

func mapResponsesStopReason(payload responsesCompletedPayload) llmcore.StopReason {
	var reason llmcore.StopReason
	switch {
	case payload.Response.Status == "completed":
		reason = llmcore.StopEndTurn
	case payload.Response.Status == "incomplete" && payload.Response.IncompleteDetails != nil && payload.Response.IncompleteDetails.Reason == "max_output_tokens":
		reason = llmcore.StopMaxTokens
	case payload.Response.Status == "incomplete":
		reason = llmcore.StopEndTurn
	default:
		reason = llmcore.StopUnknown
	}

	for _, item := range payload.Response.Output {
		if item.Type == "function_call" {
			return llmcore.StopToolUse
		}
	}
	return reason
}

// ResponseCreatedID extracts response.id from a "response.created" event.
// This is done outside the decoder proper: spec §4.2.1 assigns this
// extraction to the Stream Driver (C4), not the decoder, because the
// resulting response_id is turn-level metadata rather than an Action.
func ResponseCreatedID(ev sse.Event) (string, bool) {
	if ev.EventType != "response.created" {
		return "", false
	}
	var payload struct {
		Response struct {
			ID string `json:"id"`
		} `json:"response"`
	}
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		return "", false
	}
	if payload.Response.ID == "" {
		return "", false
	}
	return payload.Response.ID, true
}
