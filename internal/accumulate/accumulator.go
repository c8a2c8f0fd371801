// Package accumulate implements the Turn Accumulator (spec component C3):
// it folds a decoder's Action sequence into one canonical TurnResult, the
// same shape of job the teacher's ai.ChatStream.Collect does for its single
// unified event schema — generalized here to the four-decoder action set
// and to the insertion/lookup rules spec §4.3 requires for tool-call slots.
package accumulate

import (
	"strings"

	"github.com/basinlabs/conclave/internal/llmcore"
)

// Accumulator owns the mutable state for exactly one turn (spec §3
// Ownership: it does not outlive the turn). Zero value is ready to use.
type Accumulator struct {
	text       strings.Builder
	toolCalls  []llmcore.ToolCall
	stopReason llmcore.StopReason
	gotStop    bool
	hadError   bool

	// slotIndices[i] is the logical index that produced toolCalls[i]. Kept
	// parallel to toolCalls rather than folded into llmcore.ToolCall so the
	// public ToolCall type stays a plain data value.
	slotIndices []int
}

// New returns an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Apply folds one Action into the accumulator's state.
func (a *Accumulator) Apply(action llmcore.Action) {
	switch action.Kind {
	case llmcore.ActionTextDelta:
		a.appendText(action.Text)

	case llmcore.ActionToolUseStart:
		a.toolCalls = append(a.toolCalls, llmcore.ToolCall{
			ID:               action.ToolID,
			Name:             action.ToolName,
			ThoughtSignature: action.ThoughtSignature,
		})
		// The slot's logical index is tracked out-of-band since ToolCall
		// itself does not expose it; see mostRecentSlot below.
		a.slotIndices = append(a.slotIndices, action.Index)

	case llmcore.ActionInputJSONDelta:
		if i, ok := a.mostRecentSlot(action.Index); ok {
			a.toolCalls[i].Arguments += action.PartialJSON
		}

	case llmcore.ActionInputJSONFinal:
		if i, ok := a.mostRecentSlot(action.Index); ok {
			a.toolCalls[i].Arguments = action.FinalJSON
		}

	case llmcore.ActionContentBlockStop, llmcore.ActionPing:
		// no-op on the accumulator (spec §4.3)

	case llmcore.ActionMessageComplete:
		a.stopReason = action.StopReason
		a.gotStop = true

	case llmcore.ActionError:
		a.hadError = true
		if a.text.Len() == 0 {
			a.text.WriteString("[SSE Error] " + action.Message)
		}
		a.stopReason = llmcore.StopUnknown
		a.gotStop = true
	}
}

// mostRecentSlot finds the most recently appended tool-call slot whose
// logical index matches, per spec §4.3 / §9 ("find most-recent slot with
// matching logical index" — tolerates interleaved blocks without
// back-pointers).
func (a *Accumulator) mostRecentSlot(index int) (int, bool) {
	for i := len(a.slotIndices) - 1; i >= 0; i-- {
		if a.slotIndices[i] == index {
			return i, true
		}
	}
	return 0, false
}

func (a *Accumulator) appendText(delta string) {
	a.text.WriteString(delta)
}

// IntoResult finalizes the accumulator into a TurnResult, inferring
// StopReason when the provider never emitted MessageComplete (spec §4.3).
func (a *Accumulator) IntoResult(responseID string) llmcore.TurnResult {
	stop := a.stopReason
	if !a.gotStop {
		switch {
		case len(a.toolCalls) > 0:
			stop = llmcore.StopToolUse
		case a.text.Len() > 0:
			stop = llmcore.StopEndTurn
		default:
			stop = llmcore.StopUnknown
		}
	}
	if a.hadError {
		stop = llmcore.StopUnknown
	}

	return llmcore.TurnResult{
		ResponseID: responseID,
		Text:       a.text.String(),
		ToolCalls:  append([]llmcore.ToolCall(nil), a.toolCalls...),
		StopReason: stop,
	}
}
