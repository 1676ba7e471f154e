package tools

import (
	"context"

	"github.com/taggedzi/repo-mcp-go/internal/apperr"
)

func searchHandler(deps Deps) Handler {
	return func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
		query, err := requireString(args, "query")
		if err != nil {
			return nil, err
		}

		mode, hasMode := argString(args, "mode")
		if hasMode && mode != "bm25" {
			return nil, apperr.New(apperr.InvalidParams, "mode must be \"bm25\"")
		}

		topK, _ := argInt(args, "top_k")
		topK, err = clampTopK(topK, deps.Limits.MaxSearchHits, deps.Limits.MaxSearchHits)
		if err != nil {
			return nil, err
		}

		fileGlob, _ := argString(args, "file_glob")
		pathPrefix, _ := argString(args, "path_prefix")

		hits, err := deps.Store.Search(query, topK, pathPrefix, fileGlob)
		if err != nil {
			return nil, err
		}

		out := make([]map[string]interface{}, len(hits))
		for i, h := range hits {
			out[i] = map[string]interface{}{
				"path":       h.Path,
				"start_line": h.StartLine,
				"end_line":   h.EndLine,
				"chunk_id":   h.ChunkID,
				"score":      h.Score,
				"snippet":    h.Snippet,
			}
		}

		return map[string]interface{}{
			"mode":  "bm25",
			"query": query,
			"hits":  out,
		}, nil
	}
}
