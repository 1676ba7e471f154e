package tools

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/taggedzi/repo-mcp-go/internal/apperr"
	"github.com/taggedzi/repo-mcp-go/internal/policy"
	"github.com/taggedzi/repo-mcp-go/internal/repopath"
)

func listFilesHandler(deps Deps) Handler {
	return func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
		glob, _ := argString(args, "glob")
		includeHidden, _ := argBool(args, "include_hidden")
		maxResults, hasMax := argInt(args, "max_results")
		if !hasMax || maxResults <= 0 {
			maxResults = deps.Limits.MaxSearchHits
		}
		if maxResults > deps.Limits.MaxSearchHits {
			return nil, apperr.New(apperr.InvalidParams, "max_results exceeds max_search_hits")
		}

		records, err := deps.Store.LoadFileRecords()
		if err != nil {
			return nil, err
		}

		paths := make([]string, 0, len(records))
		for _, r := range records {
			if !includeHidden && hasHiddenSegment(r.Path) {
				continue
			}
			if glob != "" {
				if ok, _ := doublestar.Match(glob, r.Path); !ok {
					continue
				}
			}
			resolved, err := repopath.Resolve(deps.Config.RepoRoot, r.Path)
			if err == nil && policy.IsDenylisted(deps.Config.RepoRoot, resolved) {
				continue
			}
			paths = append(paths, r.Path)
		}
		sort.Strings(paths)

		truncated := false
		if len(paths) > maxResults {
			paths = paths[:maxResults]
			truncated = true
		}

		return map[string]interface{}{
			"paths":     paths,
			"truncated": truncated,
			"total":     len(records),
		}, nil
	}
}

func hasHiddenSegment(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, ".") && segment != "." && segment != ".." {
			return true
		}
	}
	return false
}

type numberedLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

func openFileHandler(deps Deps) Handler {
	return func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
		path, err := requireString(args, "path")
		if err != nil {
			return nil, err
		}
		startLine, ok := argInt(args, "start_line")
		if !ok || startLine < 1 {
			startLine = 1
		}
		endLine, hasEnd := argInt(args, "end_line")

		resolved, err := repopath.ResolveSymlinkSafe(deps.Config.RepoRoot, path)
		if err != nil {
			return nil, err
		}
		if err := policy.EnforceFileAccess(deps.Config.RepoRoot, resolved, deps.Limits); err != nil {
			return nil, err
		}

		lines, err := readAllLines(resolved)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, apperr.New(apperr.InvalidParams, "file does not exist: "+path)
			}
			return nil, apperr.Wrap(apperr.InternalError, "read file", err)
		}
		total := len(lines)

		if !hasEnd || endLine <= 0 {
			if total > deps.Limits.MaxOpenLines {
				return nil, apperr.Blocked(
					"File exceeds max_open_lines; request an explicit end_line range.",
					"Pass end_line to read a bounded slice of the file.",
				)
			}
			endLine = total
		} else {
			if err := policy.EnforceOpenLineLimits(startLine, endLine, deps.Limits); err != nil {
				return nil, err
			}
		}
		if endLine > total {
			endLine = total
		}
		if startLine > total || startLine < 1 {
			return nil, apperr.New(apperr.InvalidParams, "start_line out of range")
		}

		numbered := make([]numberedLine, 0, endLine-startLine+1)
		for i := startLine; i <= endLine; i++ {
			numbered = append(numbered, numberedLine{Line: i, Text: lines[i-1]})
		}

		return map[string]interface{}{
			"path":          path,
			"numbered_lines": numbered,
			"truncated":     endLine < total,
		}, nil
	}
}

func readAllLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// readLinesExcerpt reads an inclusive [startLine, endLine] slice of a file;
// it is the context-bundle engine's excerpt reader.
func readLinesExcerpt(path string, startLine, endLine int) (string, error) {
	lines, err := readAllLines(path)
	if err != nil {
		return "", err
	}
	if startLine < 1 {
		startLine = 1
	}
	if endLine < startLine || endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > len(lines) {
		return "", nil
	}
	return strings.Join(lines[startLine-1:endLine], "\n"), nil
}
