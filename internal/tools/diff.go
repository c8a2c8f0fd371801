package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"time"

	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// diffInput is the normalized input for the git-diff tool kind.
type diffInput struct {
	Branch string `json:"branch,omitempty" jsonschema_description:"base branch/ref to diff against; empty means HEAD~1"`
}

// branchNamePattern matches the subset of git ref syntax this tool accepts:
// letters, digits, slashes, dots, dashes and underscores. Anything else is
// rejected before it ever reaches a subprocess argument list.
var branchNamePattern = regexp.MustCompile(`^[A-Za-z0-9._/\-]+$`)

// runDiff produces a unified diff of the working tree against in.Branch
// (or HEAD~1 when no branch is given), trying progressively looser git
// invocations before falling back to a line-level diff against nothing
// when no git repository is usable at all.
func runDiff(projectPath string, in diffInput) (string, error) {
	if in.Branch != "" && !branchNamePattern.MatchString(in.Branch) {
		return "", fmt.Errorf("invalid branch name %q", in.Branch)
	}

	attempts := buildDiffAttempts(in.Branch)
	var lastErr error
	for _, args := range attempts {
		out, err := runGitDiff(projectPath, args)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}

	fallback, fallbackErr := fallbackDiff(projectPath)
	if fallbackErr != nil {
		return "", fmt.Errorf("git diff failed (%v); fallback diff failed: %w", lastErr, fallbackErr)
	}
	return fallback, nil
}

// buildDiffAttempts returns the fallback tiers of git invocations to try,
// from most to least precise.
func buildDiffAttempts(branch string) [][]string {
	if branch == "" {
		return [][]string{
			{"diff", "HEAD~1"},
			{"diff"},
		}
	}
	return [][]string{
		{"diff", branch + "...HEAD"},
		{"diff", branch, "HEAD"},
		{"diff", branch},
		{"diff", "HEAD~1"},
		{"diff"},
	}
}

func runGitDiff(projectPath string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = projectPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %v: %w (%s)", args, err, stderr.String())
	}
	return stdout.String(), nil
}

// fallbackDiff is the last-resort tier when no git invocation succeeds
// (e.g. not a git repository). It reads the non-denied files directly under
// projectPath (subdirectories are not visited) and reports a line diff of
// each against empty content, giving the caller changed-path hints instead
// of a hard error; it errors only when there is no such readable file.
func fallbackDiff(projectPath string) (string, error) {
	entries, err := os.ReadDir(projectPath)
	if err != nil {
		return "", fmt.Errorf("reading project path: %w", err)
	}

	dmp := diffmatchpatch.New()
	var out bytes.Buffer
	for _, entry := range entries {
		if entry.IsDir() || isDeniedPath(entry.Name()) {
			continue
		}
		content, readErr := os.ReadFile(projectPath + string(os.PathSeparator) + entry.Name())
		if readErr != nil {
			continue
		}
		diffs := dmp.DiffMain("", string(content), false)
		if len(diffs) == 0 {
			continue
		}
		fmt.Fprintf(&out, "--- /dev/null\n+++ %s\n", entry.Name())
		out.WriteString(dmp.DiffPrettyText(diffs))
		out.WriteString("\n")
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("no git repository and no readable files to diff")
	}
	return out.String(), nil
}
