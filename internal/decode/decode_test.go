package decode

import (
	"testing"

	"github.com/basinlabs/conclave/internal/accumulate"
	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/sse"
)

func TestResponsesDecoder_RoundTrip(t *testing.T) {
	acc := accumulate.New()
	var responseID string

	events := []sse.Event{
		{EventType: "response.created", Data: `{"response":{"id":"resp_test123"}}`},
		{EventType: "response.output_text.delta", Data: `{"output_index":0,"delta":"Found "}`},
		{EventType: "response.output_text.delta", Data: `{"output_index":0,"delta":"issues."}`},
		{EventType: "response.completed", Data: `{"response":{"status":"completed","output":[{"type":"message"}]}}`},
	}

	var d ResponsesDecoder
	for _, ev := range events {
		if id, ok := ResponseCreatedID(ev); ok {
			responseID = id
		}
		for _, action := range d.Decode(ev) {
			acc.Apply(action)
		}
	}

	result := acc.IntoResult(responseID)
	if result.ResponseID != "resp_test123" {
		t.Fatalf("response id = %q", result.ResponseID)
	}
	if result.Text != "Found issues." {
		t.Fatalf("text = %q", result.Text)
	}
	if result.StopReason != llmcore.StopEndTurn {
		t.Fatalf("stop reason = %v", result.StopReason)
	}
	if len(result.ToolCalls) != 0 {
		t.Fatalf("expected no tool calls, got %+v", result.ToolCalls)
	}
}

func TestChatDecoder_Done(t *testing.T) {
	acc := accumulate.New()
	var d ChatDecoder

	events := []sse.Event{
		{Data: `{"choices":[{"delta":{"content":"Hello "},"index":0}]}`},
		{Data: `{"choices":[{"delta":{"content":"there."},"index":0}]}`},
		{Data: "[DONE]"},
	}
	for _, ev := range events {
		for _, action := range d.Decode(ev) {
			acc.Apply(action)
		}
	}

	result := acc.IntoResult("")
	if result.Text != "Hello there." {
		t.Fatalf("text = %q", result.Text)
	}
	if result.StopReason != llmcore.StopEndTurn {
		t.Fatalf("stop reason = %v", result.StopReason)
	}
}

func TestAnthropicDecoder_ToolUseRoundTrip(t *testing.T) {
	acc := accumulate.New()
	var d AnthropicDecoder

	events := []sse.Event{
		{EventType: "content_block_delta", Data: `{"index":0,"delta":{"type":"text_delta","text":"I'll check."}}`},
		{EventType: "content_block_stop", Data: `{"index":0}`},
		{EventType: "content_block_start", Data: `{"index":1,"content_block":{"type":"tool_use","id":"toolu_abc","name":"Glob"}}`},
		{EventType: "content_block_delta", Data: `{"index":1,"delta":{"type":"input_json_delta","partial_json":"{\"pattern\":\"*.rs\"}"}}`},
		{EventType: "content_block_stop", Data: `{"index":1}`},
		{EventType: "message_delta", Data: `{"delta":{"stop_reason":"tool_use"}}`},
	}
	for _, ev := range events {
		for _, action := range d.Decode(ev) {
			acc.Apply(action)
		}
	}

	result := acc.IntoResult("")
	if result.Text != "I'll check." {
		t.Fatalf("text = %q", result.Text)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	tc := result.ToolCalls[0]
	if tc.ID != "toolu_abc" || tc.Name != "Glob" || tc.Arguments != `{"pattern":"*.rs"}` {
		t.Fatalf("unexpected tool call: %+v", tc)
	}
	if result.StopReason != llmcore.StopToolUse {
		t.Fatalf("stop reason = %v", result.StopReason)
	}
}

func TestGeminiDecoder_ThoughtSignatureRoundTrip(t *testing.T) {
	acc := accumulate.New()
	d := NewGeminiDecoder()

	events := []sse.Event{
		{Data: `{"candidates":[{"content":{"parts":[{"functionCall":{"name":"Read","args":{"path":"lib.rs"}},"thoughtSignature":"sig_test"}]}}]}`},
		{Data: `{"candidates":[{"content":{"parts":[]},"finishReason":"STOP"}]}`},
	}
	for _, ev := range events {
		for _, action := range d.Decode(ev) {
			acc.Apply(action)
		}
	}

	result := acc.IntoResult("")
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	if result.ToolCalls[0].ThoughtSignature != "sig_test" {
		t.Fatalf("thought signature = %q", result.ToolCalls[0].ThoughtSignature)
	}
	if result.StopReason != llmcore.StopToolUse {
		t.Fatalf("stop reason = %v, want ToolUse override", result.StopReason)
	}
}

func TestGeminiDecoder_IndexMonotonicity(t *testing.T) {
	d := NewGeminiDecoder()

	// Two text parts in one chunk: ordinal 0 is seen first and gets the
	// lower index, ordinal 1 the next one.
	d.Decode(sse.Event{Data: `{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}]}`})
	if d.partToIndex[0] != 0 || d.partToIndex[1] != 1 {
		t.Fatalf("unexpected index assignment: %+v", d.partToIndex)
	}

	// Re-feeding the same ordinals must not remap them.
	d.Decode(sse.Event{Data: `{"candidates":[{"content":{"parts":[{"text":"more-a"},{"text":"more-b"}]}}]}`})
	if d.partToIndex[0] != 0 || d.partToIndex[1] != 1 {
		t.Fatalf("index remapped: %+v", d.partToIndex)
	}
}

func TestGeminiDecoder_DoubleContentBlockStop(t *testing.T) {
	// Open Question decision: a part that is both text and a function call
	// ordinal is not possible in one part (mutually exclusive fields), but
	// a turn with one text part and one function-call part at different
	// ordinals legitimately produces two ContentBlockStop actions, one per
	// tracked set, as spec §9 describes literally.
	d := NewGeminiDecoder()
	d.Decode(sse.Event{Data: `{"candidates":[{"content":{"parts":[{"text":"hi"},{"functionCall":{"name":"Read","args":{}}}]}}]}`})
	actions := d.Decode(sse.Event{Data: `{"candidates":[{"content":{"parts":[]},"finishReason":"STOP"}]}`})

	stops := 0
	for _, a := range actions {
		if a.Kind == llmcore.ActionContentBlockStop {
			stops++
		}
	}
	if stops != 2 {
		t.Fatalf("expected 2 ContentBlockStop actions (one text part, one function-call part), got %d", stops)
	}
}

func TestAccumulator_ErrorPreservesPrefixAndFutureDeltasAppend(t *testing.T) {
	acc := accumulate.New()
	acc.Apply(llmcore.ErrorAction("boom"))
	acc.Apply(llmcore.TextDelta(0, " more"))
	result := acc.IntoResult("")
	if result.Text != "[SSE Error] boom more" {
		t.Fatalf("text = %q", result.Text)
	}
	if result.StopReason != llmcore.StopUnknown {
		t.Fatalf("stop reason = %v", result.StopReason)
	}
}

func TestAccumulator_FallbackInference(t *testing.T) {
	t.Run("tool calls present", func(t *testing.T) {
		acc := accumulate.New()
		acc.Apply(llmcore.ToolUseStart(0, "id", "Name", ""))
		if got := acc.IntoResult("").StopReason; got != llmcore.StopToolUse {
			t.Fatalf("got %v", got)
		}
	})
	t.Run("text present", func(t *testing.T) {
		acc := accumulate.New()
		acc.Apply(llmcore.TextDelta(0, "hi"))
		if got := acc.IntoResult("").StopReason; got != llmcore.StopEndTurn {
			t.Fatalf("got %v", got)
		}
	})
	t.Run("nothing present", func(t *testing.T) {
		acc := accumulate.New()
		if got := acc.IntoResult("").StopReason; got != llmcore.StopUnknown {
			t.Fatalf("got %v", got)
		}
	})
}
