package tools

import (
	"context"

	"github.com/taggedzi/repo-mcp-go/internal/applog"
	"github.com/taggedzi/repo-mcp-go/internal/pipeline"
	"github.com/taggedzi/repo-mcp-go/internal/tokenizer"
)

func statusHandler(deps Deps) Handler {
	logger := applog.New("tools.status")
	return func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
		status, err := deps.Store.Status()
		if err != nil {
			return nil, err
		}

		result := map[string]interface{}{
			"index_status":        status.State,
			"indexed_file_count":  status.FileCount,
			"indexed_chunk_count": status.ChunkCount,
			"config": map[string]interface{}{
				"repo_root":          deps.Config.RepoRoot,
				"data_dir":           deps.Config.DataDir,
				"include_extensions": deps.Config.Index.IncludeExtensions,
				"exclude_globs":      deps.Config.Index.ExcludeGlobs,
			},
			"index": map[string]interface{}{
				"state":             status.State,
				"schema_version":    status.SchemaVersion,
				"file_count":        status.FileCount,
				"chunk_count":       status.ChunkCount,
				"last_refresh_time": status.LastRefreshTime,
			},
			"chunking": map[string]interface{}{
				"chunk_lines":         deps.Config.Index.ChunkLines,
				"chunk_overlap_lines": deps.Config.Index.ChunkOverlapLines,
			},
			"adapters": deps.Registry.Names(),
			"limits": map[string]interface{}{
				"max_file_bytes":               deps.Limits.MaxFileBytes,
				"max_open_lines":               deps.Limits.MaxOpenLines,
				"max_total_bytes_per_response": deps.Limits.MaxTotalBytesPerResponse,
				"max_search_hits":              deps.Limits.MaxSearchHits,
				"max_references":               deps.Limits.MaxReferences,
			},
			"tools": Names(),
		}

		if status.State == "ready" {
			if estimate, warn := tokenEstimate(deps); estimate != nil {
				result["token_estimate"] = estimate
			} else if warn != "" {
				logger.Warn("token estimate unavailable", "reason", warn)
				addWarning(result, warn)
			}
		}

		return result, nil
	}
}

// tokenEstimate counts tokens across indexed chunk text with the default
// tiktoken encoding, or with the character-count estimator when that
// encoding cannot be loaded (the "encoding" field names which). Any other
// failure degrades to a warning, never a failed repo.status call.
func tokenEstimate(deps Deps) (map[string]interface{}, string) {
	tok, err := bestEffortTokenizer()
	if err != nil {
		return nil, "token estimate unavailable: " + err.Error()
	}

	chunks, err := deps.Store.LoadChunks()
	if err != nil {
		return nil, "token estimate unavailable: could not load chunks"
	}

	counter := tokenizer.NewTokenCounter(tok)
	files := make([]*pipeline.FileDescriptor, len(chunks))
	for i, c := range chunks {
		files[i] = &pipeline.FileDescriptor{Path: c.Path, Content: c.Text}
	}
	total, err := counter.CountFiles(context.Background(), files)
	if err != nil {
		return nil, "token estimate unavailable: " + err.Error()
	}

	return map[string]interface{}{
		"encoding":          tok.Name(),
		"total_tokens":      total,
		"chunk_count":       len(chunks),
		"overhead_estimate": counter.EstimateOverhead(len(chunks), 0),
	}, ""
}

func addWarning(result map[string]interface{}, warning string) {
	existing, _ := result["__warnings__"].([]string)
	result["__warnings__"] = append(existing, warning)
}
