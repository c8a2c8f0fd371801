package tools

import (
	"encoding/json"

	"github.com/basinlabs/conclave/internal/jsonschema"
	"github.com/basinlabs/conclave/internal/llmcore"
)

// toolKind identifies one of the four read-only repository tools
// independent of which naming convention a caller used to invoke it.
type toolKind int

const (
	kindGlob toolKind = iota
	kindGrep
	kindRead
	kindDiff
)

// toolNames lists every name a caller may use for each kind. The first
// entry is the "code-review" name, the second the "braintrust" name;
// spec §4.6 requires the executor accept either.
var toolNames = map[toolKind][]string{
	kindGlob: {"Glob", "glob_files"},
	kindGrep: {"Grep", "grep_search"},
	kindRead: {"Read", "read_file"},
	kindDiff: {"GitDiff", "git_diff"},
}

// kindByName is the inverse of toolNames, built once at package init.
var kindByName = func() map[string]toolKind {
	m := make(map[string]toolKind)
	for kind, names := range toolNames {
		for _, name := range names {
			m[name] = kind
		}
	}
	return m
}()

func schemaParameters[T any]() map[string]any {
	schema := jsonschema.GenerateJSONSchema[T]()
	raw, err := schema.JsonString()
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return map[string]any{"type": "object"}
	}
	return params
}

// Definitions returns the provider-agnostic tool definitions for the four
// read-only repository tools, one entry per naming convention so either a
// code-review-style or a braintrust-style participant model can be offered
// the same catalog under the name it expects.
func Definitions() []llmcore.ToolDefinition {
	globParams := schemaParameters[globInput]()
	grepParams := schemaParameters[grepInput]()
	readParams := schemaParameters[readInput]()
	diffParams := schemaParameters[diffInput]()

	return []llmcore.ToolDefinition{
		{Name: toolNames[kindGlob][0], Description: "Find files by glob pattern relative to the project root.", Parameters: globParams},
		{Name: toolNames[kindGlob][1], Description: "Find files by glob pattern relative to the project root.", Parameters: globParams},
		{Name: toolNames[kindGrep][0], Description: "Search file contents by regular expression.", Parameters: grepParams},
		{Name: toolNames[kindGrep][1], Description: "Search file contents by regular expression.", Parameters: grepParams},
		{Name: toolNames[kindRead][0], Description: "Read a range of lines from a single file.", Parameters: readParams},
		{Name: toolNames[kindRead][1], Description: "Read a range of lines from a single file.", Parameters: readParams},
		{Name: toolNames[kindDiff][0], Description: "Produce a unified diff of the project against a base branch.", Parameters: diffParams},
		{Name: toolNames[kindDiff][1], Description: "Produce a unified diff of the project against a base branch.", Parameters: diffParams},
	}
}
