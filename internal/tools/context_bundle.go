package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
	"github.com/taggedzi/repo-mcp-go/internal/bundle"
	"github.com/taggedzi/repo-mcp-go/internal/pipeline"
	"github.com/taggedzi/repo-mcp-go/internal/tokenizer"
)

func buildContextBundleHandler(deps Deps) Handler {
	return func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
		prompt, err := requireString(args, "prompt")
		if err != nil {
			return nil, err
		}
		includeTests, _ := argBool(args, "include_tests")
		baseTopK, hasTopK := argInt(args, "base_top_k")
		if !hasTopK || baseTopK <= 0 {
			baseTopK = 10
		}

		maxFiles, hasMaxFiles := argInt(args, "max_files")
		if !hasMaxFiles || maxFiles <= 0 {
			maxFiles = 20
		}
		maxTotalLines, hasMaxLines := argInt(args, "max_total_lines")
		if !hasMaxLines || maxTotalLines <= 0 {
			maxTotalLines = 2000
		}

		result, err := bundle.BuildContextBundle(bundle.Options{
			Prompt:                prompt,
			Budget:                bundle.Budget{MaxFiles: maxFiles, MaxTotalLines: maxTotalLines},
			BaseTopK:              baseTopK,
			IncludeTests:          includeTests,
			Search:                searchAdapter(deps),
			ReadLines:             readLinesExcerpt,
			Outline:               outlineAdapter(deps),
			ReferenceLookupScoped: referenceLookupScopedAdapter(deps),
		})
		if err != nil {
			return nil, err
		}

		out := map[string]interface{}{
			"bundle_id":          result.BundleID,
			"prompt_fingerprint": result.PromptFingerprint,
			"strategy":           result.Strategy,
			"budget":             result.Budget,
			"totals":             result.Totals,
			"selections":         result.Selections,
			"citations":          result.Citations,
			"audit":              result.Audit,
		}

		if estimate, warn := bundleTokenEstimate(result); estimate != nil {
			out["estimated_tokens"] = estimate
		} else if warn != "" {
			addWarning(out, warn)
		}

		if warn := writeBundleArtifacts(deps, result); warn != "" {
			addWarning(out, warn)
		}

		return out, nil
	}
}

// bundleTokenEstimate approximates the token cost of a bundle's selected
// excerpts plus their rendering overhead. Purely informational: the
// dispatcher's exact byte-length budget check is what actually governs
// response size, never this estimate.
func bundleTokenEstimate(result bundle.Result) (map[string]interface{}, string) {
	tok, err := bestEffortTokenizer()
	if err != nil {
		return nil, "token estimate unavailable: " + err.Error()
	}

	counter := tokenizer.NewTokenCounter(tok)
	files := make([]*pipeline.FileDescriptor, len(result.Selections))
	for i, sel := range result.Selections {
		files[i] = &pipeline.FileDescriptor{Path: sel.Path, Content: sel.Excerpt}
	}
	total, err := counter.CountFiles(context.Background(), files)
	if err != nil {
		return nil, "token estimate unavailable: " + err.Error()
	}

	return map[string]interface{}{
		"encoding":          tok.Name(),
		"excerpt_tokens":    total,
		"overhead_estimate": counter.EstimateOverhead(len(result.Selections), 0),
	}, ""
}

func searchAdapter(deps Deps) bundle.SearchFunc {
	return func(query string, topK int) ([]bundle.Hit, error) {
		hits, err := deps.Store.Search(query, topK, "", "")
		if err != nil {
			return nil, err
		}
		out := make([]bundle.Hit, len(hits))
		for i, h := range hits {
			out[i] = bundle.Hit{
				Path: h.Path, StartLine: h.StartLine, EndLine: h.EndLine,
				Score: h.Score, SourceQuery: query,
			}
		}
		return out, nil
	}
}

func outlineAdapter(deps Deps) bundle.OutlineFunc {
	return func(path string) ([]adapter.OutlineSymbol, error) {
		filesByAdapter, adaptersByName := groupFilesByAdapter(deps, []string{path})
		for name, files := range filesByAdapter {
			text, ok := files[path]
			if !ok {
				continue
			}
			return adaptersByName[name].Outline(path, text)
		}
		return nil, nil
	}
}

func referenceLookupScopedAdapter(deps Deps) bundle.ReferenceLookupScopedManyFunc {
	return func(symbolPaths map[string][]string) (map[string]map[string][]int, error) {
		pathSet := make(map[string]bool)
		for _, paths := range symbolPaths {
			for _, p := range paths {
				pathSet[p] = true
			}
		}
		allPaths := make([]string, 0, len(pathSet))
		for p := range pathSet {
			allPaths = append(allPaths, p)
		}

		filesByAdapter, adaptersByName := groupFilesByAdapter(deps, allPaths)

		queries := make([]adapter.SymbolQuery, 0, len(symbolPaths))
		for name := range symbolPaths {
			shortName := name
			if idx := strings.LastIndex(name, "."); idx >= 0 {
				shortName = name[idx+1:]
			}
			queries = append(queries, adapter.SymbolQuery{Name: name, ShortName: shortName})
		}

		results := make(map[string]map[string][]int)
		for adapterName, files := range filesByAdapter {
			lang := adaptersByName[adapterName]
			refsBySymbol, err := lang.ReferencesForSymbols(queries, files, 0)
			if err != nil {
				continue
			}
			for symbol, refs := range refsBySymbol {
				allowed := symbolPaths[symbol]
				allowedSet := make(map[string]bool, len(allowed))
				for _, p := range allowed {
					allowedSet[p] = true
				}
				for _, r := range refs {
					if !allowedSet[r.Path] {
						continue
					}
					if results[symbol] == nil {
						results[symbol] = make(map[string][]int)
					}
					results[symbol][r.Path] = append(results[symbol][r.Path], r.Line)
				}
			}
		}
		return results, nil
	}
}

// writeBundleArtifacts persists the last bundle result as both JSON and a
// human-readable markdown summary under the data directory. Failures here
// are non-fatal: the caller still gets its bundle, just with a warning.
func writeBundleArtifacts(deps Deps, result bundle.Result) string {
	dataDir := filepath.Join(deps.Config.RepoRoot, deps.Config.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "could not write last_bundle artifacts: " + err.Error()
	}

	jsonPath := filepath.Join(dataDir, "last_bundle.json")
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "could not encode last_bundle.json: " + err.Error()
	}
	if err := os.WriteFile(jsonPath, encoded, 0o644); err != nil {
		return "could not write last_bundle.json: " + err.Error()
	}

	mdPath := filepath.Join(dataDir, "last_bundle.md")
	if err := os.WriteFile(mdPath, []byte(renderBundleMarkdown(result)), 0o644); err != nil {
		return "could not write last_bundle.md: " + err.Error()
	}
	return ""
}

func renderBundleMarkdown(result bundle.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Context bundle %s\n\n", result.BundleID)
	fmt.Fprintf(&sb, "Strategy: %s\n\n", result.Strategy)
	fmt.Fprintf(&sb, "Selected %d file(s), %d line(s) (truncated: %t)\n\n",
		result.Totals.SelectedFiles, result.Totals.SelectedLines, result.Totals.Truncated)
	for _, sel := range result.Selections {
		fmt.Fprintf(&sb, "## %s:%d-%d\n\n", sel.Path, sel.StartLine, sel.EndLine)
		fmt.Fprintf(&sb, "%s\n\n", sel.Rationale)
		sb.WriteString("```\n")
		sb.WriteString(sel.Excerpt)
		sb.WriteString("\n```\n\n")
	}
	return sb.String()
}
