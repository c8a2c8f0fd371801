package decode

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/sse"
)

// GeminiDecoder decodes the Gemini streamGenerateContent SSE dialect (spec
// §4.2.4). Unlike the other three families it is stateful across the
// chunks of one turn: part_ordinal → logical index assignment must persist,
// and Gemini delivers part text incrementally (not cumulative, unlike the
// teacher's providers/ai/gemini/stream.go which tracks a cumulative rune
// count to compute a delta — this dialect needs no such bookkeeping because
// spec §4.2.4 defines the wire text itself as incremental).
//
// A new GeminiDecoder must be constructed per turn (spec §9 "Streaming
// state ownership"): logical block counters restart at zero for every turn
// of a conversation.
type GeminiDecoder struct {
	partToIndex        map[int]int
	textParts          map[int]bool
	knownFunctionCalls map[int]string
	thoughtSignatures  map[int]string
	nextIndex          int
}

// NewGeminiDecoder returns a decoder with fresh per-turn state.
func NewGeminiDecoder() *GeminiDecoder {
	return &GeminiDecoder{
		partToIndex:        make(map[int]int),
		textParts:          make(map[int]bool),
		knownFunctionCalls: make(map[int]string),
		thoughtSignatures:  make(map[int]string),
	}
}

type geminiPart struct {
	Text             string          `json:"text"`
	FunctionCall     *geminiFuncCall `json:"functionCall"`
	ThoughtSignature string          `json:"thoughtSignature"`
}

type geminiFuncCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type geminiPayload struct {
	Candidates []struct {
		Content *struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Decode converts one Gemini SSE event into zero or more Actions, mutating
// the decoder's per-turn state as new parts and function calls appear.
func (g *GeminiDecoder) Decode(ev sse.Event) []llmcore.Action {
	var payload geminiPayload
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		return nil
	}

	if payload.Error != nil {
		return []llmcore.Action{llmcore.ErrorAction(payload.Error.Message)}
	}

	if len(payload.Candidates) == 0 {
		return nil
	}
	candidate := payload.Candidates[0]

	var actions []llmcore.Action

	if candidate.Content != nil {
		for partOrdinal, part := range candidate.Content.Parts {
			if part.Text != "" {
				if !g.textParts[partOrdinal] {
					g.allocateIndex(partOrdinal)
					g.textParts[partOrdinal] = true
				}
				actions = append(actions, llmcore.TextDelta(g.partToIndex[partOrdinal], part.Text))
			}

			if part.FunctionCall != nil && part.FunctionCall.Name != "" {
				if _, known := g.knownFunctionCalls[partOrdinal]; !known {
					index := g.allocateIndex(partOrdinal)
					id := "call_" + uuid.NewString()
					g.knownFunctionCalls[partOrdinal] = id
					if part.ThoughtSignature != "" {
						g.thoughtSignatures[partOrdinal] = part.ThoughtSignature
					}

					args := part.FunctionCall.Args
					if len(args) == 0 {
						args = json.RawMessage("{}")
					}

					actions = append(actions,
						llmcore.ToolUseStart(index, id, part.FunctionCall.Name, g.thoughtSignatures[partOrdinal]),
						llmcore.InputJSONDelta(index, string(args)),
					)
				}
			}
		}
	}

	if candidate.FinishReason != "" {
		for partOrdinal := range g.textParts {
			actions = append(actions, llmcore.ContentBlockStop(g.partToIndex[partOrdinal]))
		}
		for partOrdinal := range g.knownFunctionCalls {
			actions = append(actions, llmcore.ContentBlockStop(g.partToIndex[partOrdinal]))
		}

		reason := mapGeminiFinishReason(candidate.FinishReason)
		if len(g.knownFunctionCalls) > 0 {
			reason = llmcore.StopToolUse
		}
		actions = append(actions, llmcore.MessageComplete(reason))
	}

	return actions
}

// allocateIndex assigns a fresh, strictly increasing logical index to
// partOrdinal if it has none yet, and returns the (possibly pre-existing)
// index. Once assigned, a part_ordinal's index is never remapped (spec §8
// "Gemini state monotonicity").
func (g *GeminiDecoder) allocateIndex(partOrdinal int) int {
	if idx, ok := g.partToIndex[partOrdinal]; ok {
		return idx
	}
	idx := g.nextIndex
	g.partToIndex[partOrdinal] = idx
	g.nextIndex++
	return idx
}

func mapGeminiFinishReason(reason string) llmcore.StopReason {
	switch reason {
	case "STOP":
		return llmcore.StopEndTurn
	case "MAX_TOKENS":
		return llmcore.StopMaxTokens
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT", "BLOCKLIST":
		// Content blocked; a warning may be logged by the caller.
		return llmcore.StopEndTurn
	default:
		return llmcore.StopUnknown
	}
}
