// Package goast is the host-language AST adapter: it parses Go source with
// go/parser and walks go/ast to produce deterministic outlines and
// references, the same role Python's stdlib ast module plays in the
// original tool for its own host language.
package goast

import (
	"encoding/hex"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
)

// Adapter is the Go host-language AST adapter.
type Adapter struct {
	mu    sync.Mutex
	cache map[string]fileCache
}

type fileCache struct {
	digest     string
	candidates []referenceCandidate
}

type referenceCandidate struct {
	line       int
	name       string
	kind       string
	evidence   string
	confidence string
}

// New returns a ready-to-use Go AST adapter.
func New() *Adapter {
	return &Adapter{cache: make(map[string]fileCache)}
}

// Name identifies this adapter for registry diagnostics.
func (a *Adapter) Name() string { return "go_ast" }

// SupportsPath returns true for Go source files.
func (a *Adapter) SupportsPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".go")
}

// Outline parses text into a file-scoped symbol table, best-effort: parse
// errors yield an empty outline rather than propagating.
func (a *Adapter) Outline(path, text string) ([]adapter.OutlineSymbol, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, text, parser.ParseComments)
	if err != nil {
		return nil, nil
	}

	collector := newOutlineCollector(fset)
	ast.Walk(collector, file)
	return adapter.NormalizeAndSortSymbols(collector.symbols)
}

// SmartChunks is not provided by this adapter.
func (a *Adapter) SmartChunks(path, text string) ([][2]int, bool) {
	return nil, false
}

// SymbolHints is not provided by this adapter.
func (a *Adapter) SymbolHints(prompt string) []string {
	return nil
}

// ReferencesForSymbols resolves references for a batch of symbols across a
// set of Go files, reparsing each file at most once regardless of how many
// symbols are queried (per-file cache keyed on an xxh3 digest of text).
func (a *Adapter) ReferencesForSymbols(symbols []adapter.SymbolQuery, files map[string]string, topK int) (map[string][]adapter.SymbolReference, error) {
	out := make(map[string][]adapter.SymbolReference, len(symbols))
	for _, s := range symbols {
		out[s.Name] = nil
	}

	for path, text := range files {
		if !a.SupportsPath(path) {
			continue
		}
		candidates := a.candidatesForFile(path, text)
		if candidates == nil {
			continue
		}
		for _, sym := range symbols {
			short := sym.ShortName
			if short == "" {
				short = sym.Name
			}
			for _, c := range candidates {
				if !candidateMatches(c.name, sym.Name, short) {
					continue
				}
				confidence := c.confidence
				if c.name != sym.Name && strings.HasSuffix(c.name, "."+short) {
					confidence = "medium"
				}
				out[sym.Name] = append(out[sym.Name], adapter.SymbolReference{
					Symbol:     sym.Name,
					Path:       path,
					Line:       c.line,
					Kind:       c.kind,
					Evidence:   c.evidence,
					Strategy:   "ast",
					Confidence: confidence,
				})
			}
		}
	}

	for name, refs := range out {
		normalized, err := adapter.NormalizeAndSortReferences(refs)
		if err != nil {
			continue
		}
		if topK > 0 && len(normalized) > topK {
			normalized = normalized[:topK]
		}
		out[name] = normalized
	}
	return out, nil
}

func candidateMatches(candidate, symbol, short string) bool {
	if candidate == symbol || candidate == short {
		return true
	}
	return strings.HasSuffix(candidate, "."+short)
}

func (a *Adapter) candidatesForFile(path, text string) []referenceCandidate {
	digest := fingerprint(text)

	a.mu.Lock()
	cached, ok := a.cache[path]
	a.mu.Unlock()
	if ok && cached.digest == digest {
		return cached.candidates
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, text, 0)
	if err != nil {
		return nil
	}

	rc := &referenceCollector{fset: fset}
	ast.Walk(rc, file)

	a.mu.Lock()
	a.cache[path] = fileCache{digest: digest, candidates: rc.candidates}
	a.mu.Unlock()
	return rc.candidates
}

// fingerprint hashes file text for the in-memory per-file cache key only:
// it is never persisted or compared across processes, so the faster
// non-cryptographic xxh3 digest is preferable to sha256 here.
func fingerprint(text string) string {
	sum := xxh3.HashString128(text).Bytes()
	return hex.EncodeToString(sum[:])
}
