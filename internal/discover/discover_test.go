package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taggedzi/repo-mcp-go/internal/repoconfig"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunDiscoversFilteredFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "README.md", "# hi\n")
	writeFile(t, dir, "vendor/lib.go", "package vendor\n")

	cfg := repoconfig.Default(dir)
	cfg.Index.ExcludeGlobs = []string{"**/vendor/**"}

	records, profile, err := Run(context.Background(), dir, cfg, nil, "")
	require.NoError(t, err)

	paths := make([]string, len(records))
	for i, r := range records {
		paths[i] = r.Path
	}
	assert.Contains(t, paths, "main.go")
	assert.Contains(t, paths, "README.md")
	assert.NotContains(t, paths, "vendor/lib.go")
	assert.True(t, profile.HashedFiles >= 2)
}

func TestRunReusesHashWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	cfg := repoconfig.Default(dir)

	first, _, err := Run(context.Background(), dir, cfg, nil, "")
	require.NoError(t, err)
	require.Len(t, first, 1)

	previous := map[string]FileRecord{first[0].Path: first[0]}
	second, profile, err := Run(context.Background(), dir, cfg, previous, "")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ContentHash, second[0].ContentHash)
	assert.Equal(t, 0, profile.HashedFiles)
	assert.Equal(t, 1, profile.UnchangedReused)
}

func TestRunExcludesDataDirPrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, ".repo_mcp/index/manifest.json", "{}")
	cfg := repoconfig.Default(dir)
	cfg.Index.IncludeExtensions = append(cfg.Index.IncludeExtensions, ".json")

	records, _, err := Run(context.Background(), dir, cfg, nil, ".repo_mcp")
	require.NoError(t, err)
	for _, r := range records {
		assert.NotContains(t, r.Path, ".repo_mcp")
	}
}

func TestDetectDelta(t *testing.T) {
	previous := map[string]FileRecord{
		"a.go": {Path: "a.go", ContentHash: "h1"},
		"b.go": {Path: "b.go", ContentHash: "h2"},
	}
	current := []FileRecord{
		{Path: "a.go", ContentHash: "h1"},
		{Path: "b.go", ContentHash: "h2-changed"},
		{Path: "c.go", ContentHash: "h3"},
	}

	delta := DetectDelta(previous, current)
	assert.Equal(t, []string{"c.go"}, delta.Added)
	assert.Equal(t, []string{"b.go"}, delta.Updated)
	assert.Equal(t, []string{"a.go"}, delta.Unchanged)
	assert.Empty(t, delta.Removed)
}

func TestDetectDeltaRemoved(t *testing.T) {
	previous := map[string]FileRecord{"a.go": {Path: "a.go", ContentHash: "h1"}}
	current := []FileRecord{}
	delta := DetectDelta(previous, current)
	assert.Equal(t, []string{"a.go"}, delta.Removed)
}
