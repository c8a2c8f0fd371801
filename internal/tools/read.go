package tools

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// readInput is the normalized input for the single-file-read tool kind.
type readInput struct {
	Path   string `json:"path" jsonschema_description:"file path to read, relative to the project root"`
	Offset int    `json:"offset,omitempty" jsonschema_description:"1-based first line to include; 0 means from the start"`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"maximum number of lines to return; 0 means the default of 2000"`
}

const defaultReadLimit = 2000

// runRead reads in.Path (relative to projectPath) from in.Offset for up to
// in.Limit lines, rejecting absolute paths, ".." segments, and any denied
// basename/extension (spec §4.6).
func runRead(projectPath string, in readInput) (string, error) {
	if !isSafeRelativePath(in.Path) {
		return "", fmt.Errorf("path %q is not a safe relative path", in.Path)
	}
	if isDeniedPath(in.Path) {
		return "", fmt.Errorf("path %q is denied", in.Path)
	}

	fullPath := filepath.Join(projectPath, in.Path)
	file, err := os.Open(fullPath)
	if err != nil {
		return "", fmt.Errorf("opening %q: %w", in.Path, err)
	}
	defer file.Close()

	offset := in.Offset
	if offset < 1 {
		offset = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo < offset {
			continue
		}
		if len(lines) >= limit {
			break
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %q: %w", in.Path, err)
	}

	return strings.Join(lines, "\n"), nil
}
