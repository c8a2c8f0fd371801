package tools

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
)

// globInput is the normalized input for the file-glob tool kind.
type globInput struct {
	Pattern string `json:"pattern" jsonschema_description:"glob pattern to match file paths against, relative to the project root"`
}

// runGlob walks projectPath and returns every file whose path (relative to
// projectPath) matches pattern, skipping denied paths entirely. Results are
// sorted for deterministic output.
func runGlob(projectPath string, in globInput) (string, error) {
	if in.Pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	matcher, err := glob.Compile(in.Pattern, '/')
	if err != nil {
		return "", fmt.Errorf("invalid glob pattern %q: %w", in.Pattern, err)
	}

	var matches []string
	err = filepath.WalkDir(projectPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint: ignore unreadable entries, don't abort the whole walk
		}
		rel, relErr := filepath.Rel(projectPath, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if isDeniedPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if matcher.Match(rel) {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking project tree: %w", err)
	}

	sort.Strings(matches)
	return marshalJSON(map[string]any{"matches": matches, "count": len(matches)}), nil
}
