package tools

import (
	"context"
	"os"
	"strings"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
	"github.com/taggedzi/repo-mcp-go/internal/apperr"
	"github.com/taggedzi/repo-mcp-go/internal/policy"
	"github.com/taggedzi/repo-mcp-go/internal/repopath"
)

func referencesHandler(deps Deps) Handler {
	return func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
		symbol, err := requireString(args, "symbol")
		if err != nil {
			return nil, err
		}
		scopedPath, _ := argString(args, "path")

		topK, _ := argInt(args, "top_k")
		topK, err = clampTopK(topK, deps.Limits.MaxReferences, deps.Limits.MaxReferences)
		if err != nil {
			return nil, err
		}

		paths, err := candidatePaths(deps, scopedPath)
		if err != nil {
			return nil, err
		}

		filesByAdapter, adaptersByName := groupFilesByAdapter(deps, paths)

		shortName := symbol
		if idx := strings.LastIndex(symbol, "."); idx >= 0 {
			shortName = symbol[idx+1:]
		}
		query := []adapter.SymbolQuery{{Name: symbol, ShortName: shortName}}

		var all []adapter.SymbolReference
		for name, files := range filesByAdapter {
			lang := adaptersByName[name]
			results, err := lang.ReferencesForSymbols(query, files, 0)
			if err != nil {
				continue
			}
			all = append(all, results[symbol]...)
		}

		normalized, err := adapter.NormalizeAndSortReferences(all)
		if err != nil {
			return nil, apperr.Wrap(apperr.InternalError, "normalize references", err)
		}

		totalCandidates := len(normalized)
		truncated := false
		if len(normalized) > topK {
			normalized = normalized[:topK]
			truncated = true
		}

		out := make([]map[string]interface{}, len(normalized))
		for i, r := range normalized {
			out[i] = map[string]interface{}{
				"symbol":     r.Symbol,
				"path":       r.Path,
				"line":       r.Line,
				"kind":       r.Kind,
				"evidence":   r.Evidence,
				"strategy":   r.Strategy,
				"confidence": r.Confidence,
			}
		}

		return map[string]interface{}{
			"symbol":           symbol,
			"references":       out,
			"truncated":        truncated,
			"total_candidates": totalCandidates,
		}, nil
	}
}

// groupFilesByAdapter reads every path under policy, grouping surviving file
// text by the adapter selected for it so a caller can invoke each adapter's
// batch resolver once per request instead of once per file.
func groupFilesByAdapter(deps Deps, paths []string) (map[string]map[string]string, map[string]adapter.LanguageAdapter) {
	filesByAdapter := make(map[string]map[string]string)
	adaptersByName := make(map[string]adapter.LanguageAdapter)

	for _, p := range paths {
		lang, err := deps.Registry.Select(p)
		if err != nil {
			continue
		}
		resolved, err := repopath.ResolveSymlinkSafe(deps.Config.RepoRoot, p)
		if err != nil {
			continue
		}
		if err := policy.EnforceFileAccess(deps.Config.RepoRoot, resolved, deps.Limits); err != nil {
			continue
		}
		text, err := os.ReadFile(resolved)
		if err != nil {
			continue
		}
		if filesByAdapter[lang.Name()] == nil {
			filesByAdapter[lang.Name()] = make(map[string]string)
			adaptersByName[lang.Name()] = lang
		}
		filesByAdapter[lang.Name()][p] = string(text)
	}
	return filesByAdapter, adaptersByName
}

func candidatePaths(deps Deps, scopedPath string) ([]string, error) {
	if scopedPath != "" {
		return []string{scopedPath}, nil
	}
	records, err := deps.Store.LoadFileRecords()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(records))
	for i, r := range records {
		paths[i] = r.Path
	}
	return paths, nil
}
