// Package tools implements the Tool Executor (spec component C6): dispatch
// by name to the four read-only repository tools, parameter-key
// normalization, a shared per-call timeout, and the deny-list enforced by
// the read and diff tools.
package tools

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// deniedBasenames are path components that are never readable regardless of
// extension (spec §4.6).
var deniedBasenames = []string{
	".git", ".svn", ".hg", "node_modules", "venv", "__pycache__",
	".env", ".DS_Store", "Thumbs.db",
}

// deniedExtensionGlobs compiles "*.<ext>" globs for the denied extension
// list (spec §4.6), reusing the same gobwas/glob matcher the file-glob tool
// uses for its own pattern compilation.
var deniedExtensionGlobs = compileExtensionGlobs([]string{
	"pyc", "pyo", "so", "dll", "dylib", "exe", "bin", "class", "jar", "sqlite", "db", "lock",
})

func compileExtensionGlobs(exts []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(exts))
	for _, ext := range exts {
		g, err := glob.Compile("*." + ext)
		if err != nil {
			continue
		}
		globs = append(globs, g)
	}
	return globs
}

// isDeniedPath reports whether relPath contains a denied basename as any
// path component, or has a denied extension.
func isDeniedPath(relPath string) bool {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for _, part := range parts {
		for _, denied := range deniedBasenames {
			if part == denied {
				return true
			}
		}
	}

	base := filepath.Base(relPath)
	for _, g := range deniedExtensionGlobs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// isSafeRelativePath validates that p is relative and has no ".." segment,
// the invariant the read tool must enforce on every path it is given
// (spec §4.6).
func isSafeRelativePath(p string) bool {
	if p == "" {
		return false
	}
	if filepath.IsAbs(p) {
		return false
	}
	cleaned := filepath.ToSlash(filepath.Clean(p))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
