package goast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
)

const sampleSource = `package widget

type Server struct {
	Name string
}

func (s *Server) Handle(req string) bool {
	if req != "" {
		return true
	}
	return false
}

func New() *Server {
	return &Server{}
}
`

func TestOutlineExtractsTypeAndMethodsAndFunctions(t *testing.T) {
	a := New()
	symbols, err := a.Outline("widget.go", sampleSource)
	require.NoError(t, err)
	require.NotEmpty(t, symbols)

	names := make(map[string]adapter.OutlineSymbol)
	for _, s := range symbols {
		names[s.Name] = s
	}

	require.Contains(t, names, "Server")
	assert.Equal(t, "struct", names["Server"].Kind)

	require.Contains(t, names, "Server.Handle")
	method := names["Server.Handle"]
	assert.Equal(t, "method", method.Kind)
	require.NotNil(t, method.ParentSymbol)
	assert.Equal(t, "Server", *method.ParentSymbol)
	assert.Equal(t, "class", *method.ScopeKind)

	require.Contains(t, names, "New")
	assert.Equal(t, "function", names["New"].Kind)
}

func TestOutlineMarksConditionalDeclContext(t *testing.T) {
	a := New()
	src := `package widget

func f() {
	if true {
		type Inner struct{}
		_ = Inner{}
	}
}
`
	symbols, err := a.Outline("widget.go", src)
	require.NoError(t, err)

	var inner *adapter.OutlineSymbol
	for i := range symbols {
		if symbols[i].Name == "Inner" {
			inner = &symbols[i]
		}
	}
	require.NotNil(t, inner)
	require.NotNil(t, inner.DeclContext)
	assert.Equal(t, "if", *inner.DeclContext)
	require.NotNil(t, inner.IsConditional)
	assert.True(t, *inner.IsConditional)
}

func TestOutlineReturnsEmptyOnParseError(t *testing.T) {
	a := New()
	symbols, err := a.Outline("broken.go", "package ((( not valid go")
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestSupportsPath(t *testing.T) {
	a := New()
	assert.True(t, a.SupportsPath("foo/bar.go"))
	assert.False(t, a.SupportsPath("foo/bar.py"))
}

func TestReferencesForSymbolsFindsCallSite(t *testing.T) {
	a := New()
	files := map[string]string{
		"main.go": `package main

func main() {
	handle("x")
}
`,
	}
	out, err := a.ReferencesForSymbols([]adapter.SymbolQuery{{Name: "handle", ShortName: "handle"}}, files, 0)
	require.NoError(t, err)
	refs := out["handle"]
	require.Len(t, refs, 1)
	assert.Equal(t, "call", refs[0].Kind)
	assert.Equal(t, "ast", refs[0].Strategy)
}

func TestReferencesForSymbolsDetectsInstantiation(t *testing.T) {
	a := New()
	files := map[string]string{
		"main.go": `package main

func build() {
	x := Widget()
	_ = x
}
`,
	}
	out, err := a.ReferencesForSymbols([]adapter.SymbolQuery{{Name: "Widget", ShortName: "Widget"}}, files, 0)
	require.NoError(t, err)
	refs := out["Widget"]
	require.Len(t, refs, 1)
	assert.Equal(t, "instantiation", refs[0].Kind)
}

func TestReferencesForSymbolsDetectsImport(t *testing.T) {
	a := New()
	files := map[string]string{
		"main.go": `package main

import "example.com/widget"

func use() {}
`,
	}
	out, err := a.ReferencesForSymbols([]adapter.SymbolQuery{{Name: "example.com/widget", ShortName: "widget"}}, files, 0)
	require.NoError(t, err)
	refs := out["example.com/widget"]
	require.Len(t, refs, 1)
	assert.Equal(t, "import", refs[0].Kind)
	assert.Equal(t, "high", refs[0].Confidence)
}
