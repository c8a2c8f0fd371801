package tools

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

// grepInput is the normalized input for the content-grep tool kind.
type grepInput struct {
	Query string `json:"query" jsonschema_description:"regular expression to search file contents for"`
	Path  string `json:"path,omitempty" jsonschema_description:"optional subdirectory, relative to the project root, to restrict the search to"`
}

type grepMatch struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// maxGrepMatches bounds the result size so one tool call cannot return an
// unbounded amount of text back into a model's context window.
const maxGrepMatches = 200

// runGrep searches projectPath (optionally scoped to in.Path) for lines
// matching the regular expression in.Query, skipping denied paths.
func runGrep(projectPath string, in grepInput) (string, error) {
	if in.Query == "" {
		return "", fmt.Errorf("query is required")
	}
	re, err := regexp.Compile(in.Query)
	if err != nil {
		return "", fmt.Errorf("invalid grep pattern %q: %w", in.Query, err)
	}

	root := projectPath
	if in.Path != "" {
		if !isSafeRelativePath(in.Path) {
			return "", fmt.Errorf("path %q is not a safe relative path", in.Path)
		}
		root = filepath.Join(projectPath, in.Path)
	}

	var matches []grepMatch
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, relErr := filepath.Rel(projectPath, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if isDeniedPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || len(matches) >= maxGrepMatches {
			return nil
		}

		file, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() && len(matches) < maxGrepMatches {
			lineNo++
			line := scanner.Text()
			if re.MatchString(line) {
				matches = append(matches, grepMatch{File: rel, Line: lineNo, Text: line})
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking project tree: %w", err)
	}

	return marshalJSON(map[string]any{"matches": matches, "count": len(matches)}), nil
}
