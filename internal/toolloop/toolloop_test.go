package toolloop

import (
	"context"
	"errors"
	"testing"

	"github.com/basinlabs/conclave/internal/llmcore"
)

func TestParseArguments_FallsBackToEmptyObject(t *testing.T) {
	if got := parseArguments(""); len(got) != 0 {
		t.Errorf("expected empty map for empty input, got %+v", got)
	}
	if got := parseArguments("{not json"); len(got) != 0 {
		t.Errorf("expected empty map fallback for unparseable input, got %+v", got)
	}
	got := parseArguments(`{"pattern":"*.go"}`)
	if got["pattern"] != "*.go" {
		t.Errorf("expected pattern field to parse through, got %+v", got)
	}
}

func TestSession_AddToolCallAutoNumbersAndLocksAfterFinalize(t *testing.T) {
	s := newSession("anthropic", "claude-test")
	s.addToolCall("Glob", `{"pattern":"*"}`, "[]", "")
	s.addToolCall("Grep", `{"query":"x"}`, "", "boom")
	if len(s.Steps) != 2 || s.Steps[0].StepOrdinal != 1 || s.Steps[1].StepOrdinal != 2 {
		t.Fatalf("unexpected step numbering: %+v", s.Steps)
	}

	s.finalize("done", true, "")
	s.addToolCall("Read", `{}`, "ignored", "")
	if len(s.Steps) != 2 {
		t.Errorf("addToolCall after finalize should be a no-op, got %d steps", len(s.Steps))
	}

	s.finalize("overwritten", false, "should not apply")
	if s.FinalContent != "done" || !s.Success {
		t.Errorf("finalize after finalize should be a no-op, got %+v", s)
	}
}

func TestRunResponses_EndTurnFinalizesSuccess(t *testing.T) {
	stream := func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error) {
		return llmcore.TurnResult{Text: "all good", StopReason: llmcore.StopEndTurn}, nil
	}
	session := RunResponses(context.Background(), "gpt-5", stream, RunConfig{UserPrompt: "review this"})
	if !session.Success || session.FinalContent != "all good" {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestRunResponses_ToolUseThenEndTurn(t *testing.T) {
	calls := 0
	stream := func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error) {
		calls++
		if calls == 1 {
			return llmcore.TurnResult{
				StopReason: llmcore.StopToolUse,
				ToolCalls: []llmcore.ToolCall{
					{ID: "call_1", Name: "UnknownTool", Arguments: `{"pattern":"*.go"}`},
				},
			}, nil
		}
		return llmcore.TurnResult{Text: "finished", StopReason: llmcore.StopEndTurn}, nil
	}
	session := RunResponses(context.Background(), "gpt-5", stream, RunConfig{UserPrompt: "go"})
	if !session.Success || session.FinalContent != "finished" {
		t.Errorf("unexpected session: %+v", session)
	}
	if len(session.Steps) != 1 || session.Steps[0].ToolError == "" {
		t.Errorf("expected one failed step for unknown tool, got %+v", session.Steps)
	}
}

func TestRunResponses_StreamErrorFinalizesFailure(t *testing.T) {
	stream := func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error) {
		return llmcore.TurnResult{}, errors.New("boom")
	}
	session := RunResponses(context.Background(), "gpt-5", stream, RunConfig{UserPrompt: "go"})
	if session.Success || session.Error == "" {
		t.Errorf("expected failed session, got %+v", session)
	}
}

func TestRunAnthropic_UnexpectedStopFinalizesFailure(t *testing.T) {
	stream := func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error) {
		return llmcore.TurnResult{Text: "cut off", StopReason: llmcore.StopMaxTokens}, nil
	}
	session := RunAnthropic(context.Background(), "claude-test", stream, RunConfig{UserPrompt: "go"})
	if session.Success {
		t.Errorf("expected failure for non-EndTurn stop reason, got %+v", session)
	}
}

func TestRunGemini_MaxStepsExceeded(t *testing.T) {
	stream := func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error) {
		return llmcore.TurnResult{
			StopReason: llmcore.StopToolUse,
			ToolCalls:  []llmcore.ToolCall{{ID: "c", Name: "UnknownTool", Arguments: "{}"}},
		}, nil
	}
	session := RunGemini(context.Background(), "gemini-test", stream, RunConfig{UserPrompt: "go"})
	if session.Success || session.Error != "tool loop exceeded maximum steps" {
		t.Errorf("expected max-steps failure, got %+v", session)
	}
}

func TestRunChair_Success(t *testing.T) {
	stream := func(ctx context.Context, payload map[string]any) (llmcore.TurnResult, error) {
		return llmcore.TurnResult{Text: "synthesis", StopReason: llmcore.StopEndTurn}, nil
	}
	result := RunChair(context.Background(), stream, func(sys, user string) map[string]any {
		return map[string]any{"system": sys, "user": user}
	}, "be terse", "summarize")
	if !result.Success || result.Text != "synthesis" {
		t.Errorf("unexpected chair result: %+v", result)
	}
}
