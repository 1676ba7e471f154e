// Package fallback provides the content-only adapter used for files no
// other adapter claims (Markdown, config, plain text): it supports every
// path but contributes no symbols or references.
package fallback

import "github.com/taggedzi/repo-mcp-go/internal/adapter"

// Adapter is the default content-only adapter.
type Adapter struct{}

// New returns the fallback adapter.
func New() *Adapter { return &Adapter{} }

// Name identifies this adapter for registry diagnostics.
func (a *Adapter) Name() string { return "lexical" }

// SupportsPath always returns true; the fallback accepts any path.
func (a *Adapter) SupportsPath(path string) bool { return true }

// Outline always returns an empty outline.
func (a *Adapter) Outline(path, text string) ([]adapter.OutlineSymbol, error) {
	return nil, nil
}

// SmartChunks proposes no chunk boundaries.
func (a *Adapter) SmartChunks(path, text string) ([][2]int, bool) { return nil, false }

// SymbolHints provides no symbol hints.
func (a *Adapter) SymbolHints(prompt string) []string { return nil }

// ReferencesForSymbols returns no references for any symbol.
func (a *Adapter) ReferencesForSymbols(symbols []adapter.SymbolQuery, files map[string]string, topK int) (map[string][]adapter.SymbolReference, error) {
	out := make(map[string][]adapter.SymbolReference, len(symbols))
	for _, s := range symbols {
		out[s.Name] = nil
	}
	return out, nil
}
