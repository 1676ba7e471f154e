package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
	"github.com/taggedzi/repo-mcp-go/internal/adapter/fallback"
)

type stubAdapter struct {
	name string
	ext  string
}

func (s *stubAdapter) Name() string               { return s.name }
func (s *stubAdapter) SupportsPath(path string) bool {
	return len(path) >= len(s.ext) && path[len(path)-len(s.ext):] == s.ext
}
func (s *stubAdapter) Outline(path, text string) ([]adapter.OutlineSymbol, error) { return nil, nil }
func (s *stubAdapter) SmartChunks(path, text string) ([][2]int, bool)             { return nil, false }
func (s *stubAdapter) SymbolHints(prompt string) []string                        { return nil }
func (s *stubAdapter) ReferencesForSymbols(symbols []adapter.SymbolQuery, files map[string]string, topK int) (map[string][]adapter.SymbolReference, error) {
	return nil, nil
}

func TestSelectReturnsFirstMatch(t *testing.T) {
	r := New()
	r.Register(&stubAdapter{name: "go", ext: ".go"}, false)
	r.Register(&stubAdapter{name: "py", ext: ".py"}, false)
	r.Register(fallback.New(), true)

	selected, err := r.Select("main.go")
	require.NoError(t, err)
	assert.Equal(t, "go", selected.Name())
}

func TestSelectFallsBackToFallback(t *testing.T) {
	r := New()
	r.Register(&stubAdapter{name: "go", ext: ".go"}, false)
	r.Register(fallback.New(), true)

	selected, err := r.Select("README.md")
	require.NoError(t, err)
	assert.Equal(t, "lexical", selected.Name())
}

func TestSelectErrorsWithoutFallback(t *testing.T) {
	r := New()
	r.Register(&stubAdapter{name: "go", ext: ".go"}, false)

	_, err := r.Select("README.md")
	require.Error(t, err)
}

func TestNamesOrderedWithFallbackLast(t *testing.T) {
	r := New()
	r.Register(&stubAdapter{name: "go", ext: ".go"}, false)
	r.Register(&stubAdapter{name: "py", ext: ".py"}, false)
	r.Register(fallback.New(), true)

	assert.Equal(t, []string{"go", "py", "lexical"}, r.Names())
}
