// Package toolloop implements the Tool Loop Driver (spec component C5): one
// driver per provider family that maintains a provider-shaped conversation,
// streams turns via internal/stream, dispatches tool calls through
// internal/tools, and re-encodes results back into the provider's native
// history format — generalizing the teacher's patterns/react.ReactClient
// loop (memory-provider-backed, single encoding) to three distinct
// wire encodings and the provider-opacity rules spec §4.5 requires
// (Gemini's thoughtSignature in particular).
package toolloop

import "time"

// MaxSteps bounds the tool loop per spec §4.5.
const MaxSteps = 100

// Step is one recorded tool invocation within a ParticipantSession (spec §3
// ParticipantStep). StepOrdinal is 1-based and dense (spec's "Session step
// numbering" testable property).
type Step struct {
	StepOrdinal int
	Kind        string // always "tool_call"
	ToolName    string
	ToolInput   string
	ToolOutput  string // set on success
	ToolError   string // set on failure
	TimestampMs int64
}

// Session is the per-participant record of one tool-loop run (spec §3
// ParticipantSession). Lifecycle: created by a provider's RunX entry point,
// mutated by addToolCall, sealed by finalize — never mutated afterward.
type Session struct {
	Provider     string
	Model        string
	Steps        []Step
	FinalContent string
	Success      bool
	Error        string
	// ResponseID is the last Responses-family response id observed, set
	// only by RunResponsesReview; every other driver leaves it empty.
	// Persisting it lets a later CLI invocation resume the same
	// server-side conversation via previous_response_id.
	ResponseID string
	finalized  bool
}

func newSession(provider, model string) *Session {
	return &Session{Provider: provider, Model: model}
}

// NewFailedSession builds an already-finalized failed Session, for callers
// outside this package that need to synthesize one directly — e.g. the
// meeting orchestrator's retry-exhaustion path (spec §4.7 step 3b).
func NewFailedSession(provider, model, errMsg string) *Session {
	s := newSession(provider, model)
	s.finalize("", false, errMsg)
	return s
}

// addToolCall appends a step, auto-numbering StepOrdinal from 1. Calling it
// after finalize is a programmer error and is ignored defensively.
func (s *Session) addToolCall(name, input, output, toolErr string) {
	if s.finalized {
		return
	}
	s.Steps = append(s.Steps, Step{
		StepOrdinal: len(s.Steps) + 1,
		Kind:        "tool_call",
		ToolName:    name,
		ToolInput:   input,
		ToolOutput:  output,
		ToolError:   toolErr,
		TimestampMs: nowMs(),
	})
}

// finalize performs the terminal write of FinalContent/Success/Error. Per
// spec §3 invariants, a failed session carries either a non-empty Error or
// a non-empty FinalContent describing the failure.
func (s *Session) finalize(content string, success bool, errMsg string) {
	if s.finalized {
		return
	}
	s.FinalContent = content
	s.Success = success
	s.Error = errMsg
	s.finalized = true
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
