// Package policy enforces the denylist and size/line limits that every file
// read and search result must pass before it reaches a caller.
package policy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/taggedzi/repo-mcp-go/internal/apperr"
)

// Limits are the runtime caps enforced on tool responses. Each field has a
// hard cap it can never exceed regardless of configuration (see the cap
// constants in repoconfig); Limits itself just holds the effective values.
type Limits struct {
	MaxFileBytes               int64
	MaxOpenLines               int
	MaxTotalBytesPerResponse   int64
	MaxSearchHits              int
	MaxReferences              int
}

// DefaultLimits mirrors the original tool's SecurityLimits defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxFileBytes:             1024 * 1024,
		MaxOpenLines:             500,
		MaxTotalBytesPerResponse: 256 * 1024,
		MaxSearchHits:            50,
		MaxReferences:            50,
	}
}

var denylistBasenamePatterns = []string{
	"*.pem",
	"*.key",
	"*.pfx",
	"*.p12",
	"id_rsa*",
}

// IsDenylisted reports whether the repo-relative path resolved is blocked by
// the fixed security denylist. This set can never be relaxed by
// configuration: callers only ever see it applied, never a way to disable it.
func IsDenylisted(repoRoot, resolved string) bool {
	relPath, err := filepath.Rel(repoRoot, resolved)
	if err != nil {
		relPath = resolved
	}
	relPath = filepath.ToSlash(relPath)
	lowered := strings.ToLower(relPath)
	basename := strings.ToLower(filepath.Base(relPath))

	if basename == ".env" {
		return true
	}
	for _, pattern := range denylistBasenamePatterns {
		if ok, _ := doublestar.Match(pattern, basename); ok {
			return true
		}
	}
	if strings.Contains("/"+lowered+"/", "/.git/") || lowered == ".git" {
		return true
	}
	if strings.HasPrefix(basename, "secrets.") {
		return true
	}
	return false
}

// EnforceFileAccess raises a PATH_BLOCKED error when the path is denylisted
// or, if the file exists, exceeds MaxFileBytes.
func EnforceFileAccess(repoRoot, resolved string, limits Limits) error {
	if IsDenylisted(repoRoot, resolved) {
		return apperr.Blocked(
			"File is denylisted by security policy.",
			"Use a non-sensitive file path under repo_root.",
		)
	}

	info, err := os.Stat(resolved)
	if err == nil && !info.IsDir() {
		if info.Size() > limits.MaxFileBytes {
			return apperr.Blocked(
				"File exceeds max_file_bytes limit.",
				"Request a smaller file or a narrower line range.",
			)
		}
	}
	return nil
}

// EnforceOpenLineLimits raises a PATH_BLOCKED error when the requested
// [startLine, endLine] span exceeds MaxOpenLines. endLine == 0 means
// "to end of file" and is never blocked here; the repo.open_file handler
// clamps the end line against the file's actual length.
func EnforceOpenLineLimits(startLine, endLine int, limits Limits) error {
	if endLine <= 0 {
		return nil
	}
	requested := endLine - startLine + 1
	if requested > limits.MaxOpenLines {
		return apperr.Blocked(
			"Requested line range exceeds max_open_lines limit.",
			"Reduce the requested line range.",
		)
	}
	return nil
}
