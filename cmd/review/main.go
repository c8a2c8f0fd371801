// Command review runs the single-agent code review loop (spec §6 "CLI
// (code review)"): a tool-using Responses-family model chains across
// turns via server-side response-ID continuation, reading the repository
// through the read-only tool executor.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/basinlabs/conclave/internal/httpapi"
	"github.com/basinlabs/conclave/internal/observability"
	"github.com/basinlabs/conclave/internal/session"
	"github.com/basinlabs/conclave/internal/tools"
	"github.com/basinlabs/conclave/internal/toolloop"
)

const (
	exitOK           = 0
	exitUsageOrAuth  = 2
	exitExecutionErr = 3
)

var sessionNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

var projectPathFlag string

func main() {
	_ = godotenv.Load()
	os.Exit(run())
}

func run() int {
	var code int
	rootCmd := &cobra.Command{
		Use:   "review <session_name> <review_context>",
		Short: "Run a single-agent code review loop with response-ID continuation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionName, reviewContext := args[0], args[1]
			c, err := runReview(sessionName, reviewContext)
			code = c
			return err
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVar(&projectPathFlag, "project-path", ".", "repository root the read-only tools operate against")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code == exitOK {
			code = exitUsageOrAuth
		}
		return code
	}
	return code
}

func runReview(sessionName, reviewContext string) (int, error) {
	if !sessionNamePattern.MatchString(sessionName) {
		return exitUsageOrAuth, fmt.Errorf("invalid session name %q: must match %s", sessionName, sessionNamePattern.String())
	}

	creds, err := httpapi.LoadCredentials()
	if err != nil {
		return exitUsageOrAuth, fmt.Errorf("loading credentials: %w", err)
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-5"
	}
	maxIters := 25
	if v := os.Getenv("MAX_ITERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxIters = n
		}
	}
	projectPath := projectPathFlag
	if repoRoot := os.Getenv("REPO_ROOT"); repoRoot != "" {
		projectPath = repoRoot
	}
	projectPath = resolveProjectPath(projectPath)

	stateDir := os.Getenv("STATE_DIR")
	if stateDir == "" {
		stateDir = filepath.Join(".", ".reviews")
	}
	previousResponseID := loadPreviousResponseID(stateDir, sessionName)

	systemPrompt := buildReviewSystemPrompt(projectPath, sessionName)
	cfg := toolloop.RunConfig{
		SystemPrompt:       systemPrompt,
		UserPrompt:         reviewContext,
		ToolDefs:           tools.Definitions(),
		ProjectPath:        projectPath,
		PreviousResponseID: previousResponseID,
	}

	stream := creds.ResponsesStreamFunc(model)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(maxIters)*2*time.Minute)
	defer cancel()
	ctx = observability.ContextWithProvider(ctx, observability.New(nil))

	reviewSession := toolloop.RunResponsesReview(ctx, model, stream, cfg)

	if err := persistReviewSession(stateDir, sessionName, reviewSession); err != nil {
		fmt.Fprintln(os.Stderr, "warning: failed to persist review session:", err)
	}

	if !reviewSession.Success {
		fmt.Fprintln(os.Stderr, reviewSession.Error)
		return exitExecutionErr, fmt.Errorf("review failed: %s", reviewSession.Error)
	}

	fmt.Println(reviewSession.FinalContent)
	return exitOK, nil
}

// persistReviewSession writes the single session's record as
// <stateDir>/<sessionName>/session.json, reusing session.ParticipantRecord
// so review transcripts and meeting transcripts share one on-disk shape.
// The record's response_id is what loadPreviousResponseID reads back on a
// later invocation to resume this session's server-side conversation.
func persistReviewSession(stateDir, sessionName string, sess *toolloop.Session) error {
	dir := filepath.Join(stateDir, sessionName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating review session directory: %w", err)
	}
	record := session.ParticipantRecord{
		Provider:     sess.Provider,
		Model:        sess.Model,
		Steps:        sess.Steps,
		FinalContent: sess.FinalContent,
		Success:      sess.Success,
		Error:        sess.Error,
		ResponseID:   sess.ResponseID,
	}
	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling review session: %w", err)
	}
	path := filepath.Join(dir, "session.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// loadPreviousResponseID reads <stateDir>/<sessionName>/session.json from a
// prior invocation and returns its response_id, or "" if the session has
// never run (or the prior run never reached the Responses API). Mirrors the
// original session-resumption CLI's load_session, which seeds
// previous_response_id from exactly this on-disk field so a re-invocation
// against the same session name continues rather than restarts the
// conversation.
func loadPreviousResponseID(stateDir, sessionName string) string {
	path := filepath.Join(stateDir, sessionName, "session.json")
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var record session.ParticipantRecord
	if err := json.Unmarshal(b, &record); err != nil {
		return ""
	}
	return record.ResponseID
}

func resolveProjectPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// buildReviewSystemPrompt folds loadProjectMemory's output into the base
// review instructions (spec §6 "CLI (code review)" supplemented by
// project_memory::build_system_prompt): a repo that carries CLAUDE.md/rules
// guidance gets it appended verbatim so the reviewer inherits house
// conventions instead of reviewing against generic defaults.
func buildReviewSystemPrompt(projectPath, sessionName string) string {
	effort := os.Getenv("REASONING_EFFORT")
	base := "You are an automated code reviewer. Use the available read-only repository " +
		"tools (glob, grep, read, git diff) to inspect the codebase before making claims. " +
		"Report concrete, actionable findings grounded in what you actually read. " +
		"Dimensions: bugs, security, performance, code quality, refactoring opportunities. " +
		"You may read and analyze the repository but must never propose or make modifications."
	if effort != "" {
		base += fmt.Sprintf(" Reasoning effort: %s.", effort)
	}
	if mem := loadProjectMemory(projectPath); mem != "" {
		base += fmt.Sprintf("\n\n---\n\nProject memory for session %q:\n\n%s", sessionName, mem)
	}
	return base
}

// loadProjectMemory assembles house guidance from up to four sources, in
// the order project_memory::load_project_memory reads them: the user's
// global CLAUDE.md, the user's global rules, the repo's CLAUDE.md
// (.claude/CLAUDE.md takes precedence over the project root's CLAUDE.md,
// first one found wins), then
// the repo's own rules. Sections are joined with "\n\n---\n\n"; a missing
// source is skipped rather than treated as an error, since most repos carry
// none of these files.
func loadProjectMemory(projectPath string) string {
	var sections []string

	if home, err := os.UserHomeDir(); err == nil {
		if s := readFileIfExists(filepath.Join(home, ".claude", "CLAUDE.md")); s != "" {
			sections = append(sections, s)
		}
		sections = append(sections, readRulesDir(filepath.Join(home, ".claude", "rules"))...)
	}

	if s := readFileIfExists(filepath.Join(projectPath, ".claude", "CLAUDE.md")); s != "" {
		sections = append(sections, s)
	} else if s := readFileIfExists(filepath.Join(projectPath, "CLAUDE.md")); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections, readRulesDir(filepath.Join(projectPath, ".claude", "rules"))...)

	return strings.Join(sections, "\n\n---\n\n")
}

// readRulesDir reads every *.md file directly under dir, sorted by
// filename, matching project_memory.rs's deterministic rule ordering.
func readRulesDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		if s := readFileIfExists(filepath.Join(dir, name)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func readFileIfExists(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
