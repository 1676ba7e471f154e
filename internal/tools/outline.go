package tools

import (
	"context"
	"os"

	"github.com/taggedzi/repo-mcp-go/internal/apperr"
	"github.com/taggedzi/repo-mcp-go/internal/policy"
	"github.com/taggedzi/repo-mcp-go/internal/repopath"
)

func outlineHandler(deps Deps) Handler {
	return func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
		path, err := requireString(args, "path")
		if err != nil {
			return nil, err
		}

		resolved, err := repopath.ResolveSymlinkSafe(deps.Config.RepoRoot, path)
		if err != nil {
			return nil, err
		}
		if err := policy.EnforceFileAccess(deps.Config.RepoRoot, resolved, deps.Limits); err != nil {
			return nil, err
		}

		text, err := os.ReadFile(resolved)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, apperr.New(apperr.InvalidParams, "file does not exist: "+path)
			}
			return nil, apperr.Wrap(apperr.InternalError, "read file", err)
		}

		lang, err := deps.Registry.Select(path)
		if err != nil {
			return nil, apperr.Wrap(apperr.InvalidParams, "select adapter", err)
		}

		symbols, err := lang.Outline(path, string(text))
		if err != nil {
			return nil, apperr.Wrap(apperr.InternalError, "outline file", err)
		}

		out := make([]map[string]interface{}, len(symbols))
		for i, s := range symbols {
			out[i] = map[string]interface{}{
				"kind":           s.Kind,
				"name":           s.Name,
				"signature":      s.Signature,
				"start_line":     s.StartLine,
				"end_line":       s.EndLine,
				"doc":            s.Doc,
				"parent_symbol":  s.ParentSymbol,
				"scope_kind":     s.ScopeKind,
				"is_conditional": s.IsConditional,
				"decl_context":   s.DeclContext,
			}
		}

		result := map[string]interface{}{
			"path":    path,
			"adapter": lang.Name(),
			"symbols": out,
		}

		if tok, tokErr := bestEffortTokenizer(); tokErr == nil {
			result["estimated_tokens"] = tok.Count(string(text))
		}

		return result, nil
	}
}
