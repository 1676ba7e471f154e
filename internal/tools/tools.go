// Package tools implements the nine read-only repo.* tool handlers exposed
// over the request dispatcher: status, file listing/reading, index refresh,
// search, outline, references, context-bundle assembly, and audit-log
// playback. Every handler validates its own arguments strictly and returns
// a JSON-shaped result map; warnings a handler wants surfaced to the caller
// go under the reserved "__warnings__" key, which the dispatcher lifts into
// the response envelope.
package tools

import (
	"context"

	"github.com/taggedzi/repo-mcp-go/internal/adapter/registry"
	"github.com/taggedzi/repo-mcp-go/internal/apperr"
	"github.com/taggedzi/repo-mcp-go/internal/audit"
	"github.com/taggedzi/repo-mcp-go/internal/indexstore"
	"github.com/taggedzi/repo-mcp-go/internal/policy"
	"github.com/taggedzi/repo-mcp-go/internal/repoconfig"
	"github.com/taggedzi/repo-mcp-go/internal/tokenizer"
)

// Deps are the shared collaborators every handler is built against.
type Deps struct {
	Config   repoconfig.Effective
	Limits   policy.Limits
	Store    *indexstore.Store
	Registry *registry.Registry
	Audit    *audit.Logger
}

// Handler executes one tool call and returns its JSON-shaped result.
type Handler func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error)

// Registry maps tool name to its handler.
func NewRegistry(deps Deps) map[string]Handler {
	return map[string]Handler{
		"repo.status":               statusHandler(deps),
		"repo.list_files":           listFilesHandler(deps),
		"repo.open_file":            openFileHandler(deps),
		"repo.refresh_index":        refreshIndexHandler(deps),
		"repo.search":               searchHandler(deps),
		"repo.outline":              outlineHandler(deps),
		"repo.references":           referencesHandler(deps),
		"repo.build_context_bundle": buildContextBundleHandler(deps),
		"repo.audit_log":            auditLogHandler(deps),
	}
}

// Names returns the nine tool names in the fixed declaration order above,
// for repo.status's enabled-tools summary and dispatcher validation.
func Names() []string {
	return []string{
		"repo.status",
		"repo.list_files",
		"repo.open_file",
		"repo.refresh_index",
		"repo.search",
		"repo.outline",
		"repo.references",
		"repo.build_context_bundle",
		"repo.audit_log",
	}
}

func argString(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func argInt(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func argBool(args map[string]interface{}, key string) (bool, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func requireString(args map[string]interface{}, key string) (string, error) {
	s, ok := argString(args, key)
	if !ok || s == "" {
		return "", apperr.New(apperr.InvalidParams, "missing required string argument: "+key)
	}
	return s, nil
}

// bestEffortTokenizer returns the default BPE tokenizer, falling back to the
// character-count estimator if the BPE rank tables are unavailable. Token
// estimation is always informational and never blocks a tool response, so
// callers get a usable tokenizer or an explicit reason why not.
func bestEffortTokenizer() (tokenizer.Tokenizer, error) {
	tok, err := tokenizer.NewTokenizer(tokenizer.NameCL100K)
	if err == nil {
		return tok, nil
	}
	return tokenizer.NewTokenizer(tokenizer.NameNone)
}

func clampTopK(requested, fallback, hardCap int) (int, error) {
	if requested == 0 {
		requested = fallback
	}
	if requested < 1 {
		return 0, apperr.New(apperr.InvalidParams, "top_k must be >= 1")
	}
	if requested > hardCap {
		return 0, apperr.New(apperr.InvalidParams, "top_k exceeds the configured limit")
	}
	return requested, nil
}
