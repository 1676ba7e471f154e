package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
)

func TestFallbackSupportsAnyPath(t *testing.T) {
	a := New()
	assert.True(t, a.SupportsPath("README.md"))
	assert.True(t, a.SupportsPath("config.toml"))
	assert.Equal(t, "lexical", a.Name())
}

func TestFallbackReturnsNoSymbolsOrReferences(t *testing.T) {
	a := New()
	symbols, err := a.Outline("README.md", "# hello")
	require.NoError(t, err)
	assert.Empty(t, symbols)

	out, err := a.ReferencesForSymbols([]adapter.SymbolQuery{{Name: "x", ShortName: "x"}}, map[string]string{"README.md": "x"}, 0)
	require.NoError(t, err)
	assert.Empty(t, out["x"])
}
