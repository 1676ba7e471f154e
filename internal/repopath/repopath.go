// Package repopath resolves caller-supplied path strings against a repository
// root, rejecting traversal and symlink-style escapes before any file I/O
// happens.
package repopath

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/taggedzi/repo-mcp-go/internal/apperr"
)

var windowsAbsolutePattern = regexp.MustCompile(`^[a-zA-Z]:[\\/]`)

// normalizeRelativeInput converts backslashes to forward slashes and reports
// whether the candidate looks like an absolute path (POSIX-rooted or a
// Windows drive letter).
func normalizeRelativeInput(candidate string) (string, bool) {
	normalized := strings.ReplaceAll(candidate, "\\", "/")
	if strings.HasPrefix(normalized, "/") {
		return normalized, true
	}
	if windowsAbsolutePattern.MatchString(normalized) {
		return normalized, true
	}
	return normalized, false
}

// Resolve resolves candidate against root, returning the blocked error when
// the result would escape root via traversal, an absolute path, or a
// symlink. The returned path is absolute and cleaned but symlinks within it
// are not themselves resolved here — callers that need to stat/read the file
// should use filepath.EvalSymlinks on the result and re-check containment,
// since a symlink inside the tree can still point outside root.
func Resolve(root, candidate string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", apperr.Wrap(apperr.InternalError, "resolve repo root", err)
	}
	absRoot = filepath.Clean(absRoot)

	normalized, isAbsoluteStyle := normalizeRelativeInput(candidate)
	if normalized == "" {
		return "", apperr.Blocked("Path is empty.", "Provide a repository-relative path such as 'src/module.go'.")
	}

	if isAbsoluteStyle {
		resolvedAbsolute := filepath.Clean(filepath.FromSlash(normalized))
		if !isWithin(absRoot, resolvedAbsolute) {
			return "", apperr.Blocked("Absolute path is outside repo_root.", "Use a path located under the configured repository root.")
		}
		return resolvedAbsolute, nil
	}

	parts := make([]string, 0)
	for _, part := range strings.Split(normalized, "/") {
		if part == "" || part == "." {
			continue
		}
		parts = append(parts, part)
	}
	for _, part := range parts {
		if part == ".." {
			return "", apperr.Blocked("Path traversal is blocked.", "Remove '..' segments and use a repository-relative path.")
		}
	}

	resolved := filepath.Clean(filepath.Join(append([]string{absRoot}, parts...)...))
	if !isWithin(absRoot, resolved) {
		return "", apperr.Blocked("Resolved path escapes repo_root.", "Use a path located under the configured repository root.")
	}
	return resolved, nil
}

// ResolveSymlinkSafe is Resolve followed by a real-path containment check:
// it follows any symlinks in the resolved path and verifies the final target
// still lives under root. Missing files are tolerated: when EvalSymlinks
// fails for any reason the lexically resolved path is returned unchecked;
// callers needing an existing file should stat afterward.
func ResolveSymlinkSafe(root, candidate string) (string, error) {
	resolved, err := Resolve(root, candidate)
	if err != nil {
		return "", err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", apperr.Wrap(apperr.InternalError, "resolve repo root", err)
	}
	absRoot = filepath.Clean(absRoot)

	real, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		// Path (or part of it) does not exist yet; nothing to de-reference.
		return resolved, nil
	}
	if !isWithin(absRoot, real) {
		return "", apperr.Blocked("Resolved path escapes repo_root via symlink.", "Avoid symlinks that point outside the repository root.")
	}
	return resolved, nil
}

func isWithin(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
