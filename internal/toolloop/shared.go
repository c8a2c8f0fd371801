package toolloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/basinlabs/conclave/internal/llmcore"
	"github.com/basinlabs/conclave/internal/tools"
	"github.com/basinlabs/conclave/internal/utils"
)

// RunConfig carries everything a provider driver needs to run one
// participant's tool loop independent of wire encoding (spec §4.5).
type RunConfig struct {
	SystemPrompt string
	UserPrompt   string
	ToolDefs     []llmcore.ToolDefinition
	ProjectPath  string
	// PreviousResponseID seeds RunResponsesReview's first turn with a
	// response id from a prior process's session (spec §6 "CLI (code
	// review)" resumption), so a new invocation against the same session
	// name continues the same server-side conversation instead of
	// starting a fresh one.
	PreviousResponseID string
}

// parseArguments parses a tool call's raw argument text as a JSON object,
// falling back to an empty object on parse failure (spec §4.5 step 3:
// "parse arguments as JSON, falling back to {} on parse failure").
// ParseToolArguments retries through jsonrepair before giving up, matching
// the leniency the teacher's pattern/react loop already affords malformed
// model-produced JSON.
func parseArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	parsed, err := utils.ParseToolArguments(raw)
	if err != nil {
		return map[string]any{}
	}
	return parsed
}

// executedCall is one tool call alongside its dispatch outcome, in the
// original call order.
type executedCall struct {
	call   llmcore.ToolCall
	args   map[string]any
	output string
	isErr  bool
}

// executeCalls dispatches every tool call in calls concurrently through
// internal/tools and rejoins the results in original order (spec §4.7
// "Scheduling model": "the N tool calls produced by one turn may be
// dispatched concurrently and rejoined in original order before the next
// turn").
func executeCalls(ctx context.Context, projectPath string, calls []llmcore.ToolCall) []executedCall {
	results := make([]executedCall, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llmcore.ToolCall) {
			defer wg.Done()
			args := parseArguments(call.Arguments)
			out, err := tools.Execute(ctx, projectPath, call.Name, args)
			res := executedCall{call: call, args: args}
			if err != nil {
				res.output = err.Error()
				res.isErr = true
			} else {
				res.output = out
			}
			results[i] = res
		}(i, call)
	}
	wg.Wait()
	return results
}

// finalizeFromStop applies spec §4.5 steps 4-5: an EndTurn result
// succeeds, any other terminal stop reason (other than ToolUse, which the
// caller already handled) fails with a descriptive error.
func finalizeFromStop(session *Session, reason llmcore.StopReason, text string) {
	if reason == llmcore.StopEndTurn {
		session.finalize(text, true, "")
		return
	}
	session.finalize(text, false, fmt.Sprintf("stopped unexpectedly: %s", reason))
}
