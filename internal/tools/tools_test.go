package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taggedzi/repo-mcp-go/internal/adapter/fallback"
	"github.com/taggedzi/repo-mcp-go/internal/adapter/goast"
	"github.com/taggedzi/repo-mcp-go/internal/adapter/registry"
	"github.com/taggedzi/repo-mcp-go/internal/audit"
	"github.com/taggedzi/repo-mcp-go/internal/indexstore"
	"github.com/taggedzi/repo-mcp-go/internal/policy"
	"github.com/taggedzi/repo-mcp-go/internal/repoconfig"
)

func newTestDeps(t *testing.T) (Deps, string) {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "widget.go"), []byte(
		"package widget\n\ntype Widget struct{}\n\nfunc (w *Widget) Build() int {\n\treturn 1\n}\n"),
		0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(
		"package main\n\nfunc main() {\n\tw := Widget{}\n\t_ = w.Build()\n}\n"),
		0o644))

	cfg := repoconfig.Default(root)
	store := indexstore.New(root, cfg.DataDir)
	_, err := store.Refresh(context.Background(), cfg, true)
	require.NoError(t, err)

	reg := registry.New()
	reg.Register(goast.New(), false)
	reg.Register(fallback.New(), true)

	logger, err := audit.NewLogger(filepath.Join(root, cfg.DataDir, "audit.jsonl"))
	require.NoError(t, err)

	limits := policy.DefaultLimits()
	return Deps{
		Config:   cfg,
		Limits:   limits,
		Store:    store,
		Registry: reg,
		Audit:    logger,
	}, root
}

func TestStatusHandlerReportsReadyIndex(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := statusHandler(deps)
	result, err := handler(context.Background(), map[string]interface{}{})
	require.NoError(t, err)

	index, ok := result["index"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ready", index["state"])
}

func TestListFilesHandlerFiltersGlobAndSorts(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := listFilesHandler(deps)
	result, err := handler(context.Background(), map[string]interface{}{"glob": "*.go"})
	require.NoError(t, err)

	paths, ok := result["paths"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"main.go", "widget.go"}, paths)
}

func TestOpenFileHandlerReturnsNumberedLines(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := openFileHandler(deps)
	result, err := handler(context.Background(), map[string]interface{}{"path": "widget.go"})
	require.NoError(t, err)

	lines, ok := result["numbered_lines"].([]numberedLine)
	require.True(t, ok)
	assert.Equal(t, 1, lines[0].Line)
	assert.Equal(t, "package widget", lines[0].Text)
}

func TestOpenFileHandlerEnforcesDenylist(t *testing.T) {
	deps, root := newTestDeps(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "id_rsa"), []byte("secret"), 0o600))

	handler := openFileHandler(deps)
	_, err := handler(context.Background(), map[string]interface{}{"path": "id_rsa"})
	require.Error(t, err)
}

func TestSearchHandlerRejectsUnknownMode(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := searchHandler(deps)
	_, err := handler(context.Background(), map[string]interface{}{"query": "widget", "mode": "fuzzy"})
	require.Error(t, err)
}

func TestSearchHandlerReturnsHits(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := searchHandler(deps)
	result, err := handler(context.Background(), map[string]interface{}{"query": "Widget"})
	require.NoError(t, err)

	hits, ok := result["hits"].([]map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, hits)
}

func TestOutlineHandlerExtractsSymbols(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := outlineHandler(deps)
	result, err := handler(context.Background(), map[string]interface{}{"path": "widget.go"})
	require.NoError(t, err)

	symbols, ok := result["symbols"].([]map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, symbols)
	assert.Equal(t, "go_ast", result["adapter"])
}

func TestReferencesHandlerFindsCallSite(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := referencesHandler(deps)
	result, err := handler(context.Background(), map[string]interface{}{"symbol": "Widget.Build"})
	require.NoError(t, err)

	refs, ok := result["references"].([]map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, refs)
}

func TestBuildContextBundleHandlerWritesArtifacts(t *testing.T) {
	deps, root := newTestDeps(t)
	handler := buildContextBundleHandler(deps)
	result, err := handler(context.Background(), map[string]interface{}{"prompt": "Widget Build"})
	require.NoError(t, err)
	assert.NotEmpty(t, result["bundle_id"])

	_, statErr := os.Stat(filepath.Join(root, deps.Config.DataDir, "last_bundle.json"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(root, deps.Config.DataDir, "last_bundle.md"))
	assert.NoError(t, statErr)
}

func TestAuditLogHandlerReadsAppendedEvents(t *testing.T) {
	deps, _ := newTestDeps(t)
	require.NoError(t, deps.Audit.Append(audit.Event{
		Timestamp: "2026-07-30T00:00:00.000Z",
		RequestID: "req-1",
		Tool:      "repo.status",
		OK:        true,
		Metadata:  map[string]interface{}{},
	}))

	handler := auditLogHandler(deps)
	result, err := handler(context.Background(), map[string]interface{}{})
	require.NoError(t, err)

	events, ok := result["events"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, "repo.status", events[0]["tool"])
}

func TestRefreshIndexHandlerReportsCounts(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := refreshIndexHandler(deps)
	result, err := handler(context.Background(), map[string]interface{}{"force": true})
	require.NoError(t, err)
	assert.Contains(t, result, "added")
	assert.Contains(t, result, "refresh_profile")
}
