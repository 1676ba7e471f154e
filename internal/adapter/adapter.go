// Package adapter defines the shared language-adapter contract: the types
// every adapter produces, and the normalization/validation/sort pass that
// makes adapter output identical across repeated calls and equivalent path
// separators, regardless of which adapter produced it.
package adapter

import (
	"fmt"
	"sort"
	"strings"
)

// OutlineSymbol is a single symbol in a source file outline.
type OutlineSymbol struct {
	Kind         string
	Name         string
	Signature    *string
	StartLine    int
	EndLine      int
	Doc          *string
	ParentSymbol *string
	ScopeKind    *string
	IsConditional *bool
	DeclContext  *string
}

// SymbolReference is a single cross-file symbol reference record.
type SymbolReference struct {
	Symbol     string
	Path       string
	Line       int
	Kind       string
	Evidence   string
	Strategy   string
	Confidence string
}

// ContractError is returned when adapter output violates the shared symbol
// contract.
type ContractError struct {
	Message string
}

func (e *ContractError) Error() string { return e.Message }

func contractErrorf(format string, args ...interface{}) error {
	return &ContractError{Message: fmt.Sprintf(format, args...)}
}

// NormalizeSignature trims a signature and collapses blank to nil.
func NormalizeSignature(signature *string) *string {
	return NormalizeOptionalText(signature)
}

// NormalizeOptionalText trims optional text fields to a stable
// string-or-nil value.
func NormalizeOptionalText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// symbolLess orders outline symbols by the deterministic sort key
// (start_line, end_line, name, kind).
func symbolLess(a, b OutlineSymbol) bool {
	if a.StartLine != b.StartLine {
		return a.StartLine < b.StartLine
	}
	if a.EndLine != b.EndLine {
		return a.EndLine < b.EndLine
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Kind < b.Kind
}

// ValidateOutlineSymbols checks symbols against required invariant fields.
func ValidateOutlineSymbols(symbols []OutlineSymbol) error {
	allowedScopeKinds := map[string]bool{"module": true, "class": true, "function": true}
	for _, s := range symbols {
		if strings.TrimSpace(s.Kind) == "" {
			return contractErrorf("outline symbol kind must be non-empty")
		}
		if strings.TrimSpace(s.Name) == "" {
			return contractErrorf("outline symbol name must be non-empty")
		}
		if s.StartLine < 1 {
			return contractErrorf("outline symbol start_line must be >= 1")
		}
		if s.EndLine < s.StartLine {
			return contractErrorf("outline symbol end_line must be >= start_line")
		}
		if s.ScopeKind != nil && !allowedScopeKinds[*s.ScopeKind] {
			return contractErrorf("outline symbol scope_kind must be one of module, class, function")
		}
	}
	return nil
}

// referenceLess orders references by the deterministic sort key
// (path, line, symbol, kind).
func referenceLess(a, b SymbolReference) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	if a.Symbol != b.Symbol {
		return a.Symbol < b.Symbol
	}
	return a.Kind < b.Kind
}

// ValidateSymbolReferences checks references against required invariant
// fields.
func ValidateSymbolReferences(references []SymbolReference) error {
	allowedConfidence := map[string]bool{"high": true, "medium": true, "low": true}
	allowedStrategy := map[string]bool{"ast": true, "lexical": true}
	for _, r := range references {
		if strings.TrimSpace(r.Symbol) == "" {
			return contractErrorf("symbol reference symbol must be non-empty")
		}
		if strings.TrimSpace(r.Path) == "" {
			return contractErrorf("symbol reference path must be non-empty")
		}
		if r.Line < 1 {
			return contractErrorf("symbol reference line must be >= 1")
		}
		if strings.TrimSpace(r.Kind) == "" {
			return contractErrorf("symbol reference kind must be non-empty")
		}
		if strings.TrimSpace(r.Evidence) == "" {
			return contractErrorf("symbol reference evidence must be non-empty")
		}
		if !allowedStrategy[r.Strategy] {
			return contractErrorf("symbol reference strategy must be one of ast, lexical")
		}
		if !allowedConfidence[r.Confidence] {
			return contractErrorf("symbol reference confidence must be high, medium, or low")
		}
	}
	return nil
}

// NormalizeAndSortSymbols normalizes signatures, infers scope_kind and
// parent_symbol when absent, validates schema invariants, and sorts
// deterministically.
func NormalizeAndSortSymbols(symbols []OutlineSymbol) ([]OutlineSymbol, error) {
	normalized := make([]OutlineSymbol, len(symbols))
	for i, s := range symbols {
		normalized[i] = normalizeSymbol(s)
	}
	if err := ValidateOutlineSymbols(normalized); err != nil {
		return nil, err
	}
	sort.SliceStable(normalized, func(i, j int) bool { return symbolLess(normalized[i], normalized[j]) })
	return normalized, nil
}

// NormalizeAndSortReferences validates schema invariants and sorts
// references deterministically.
func NormalizeAndSortReferences(references []SymbolReference) ([]SymbolReference, error) {
	normalized := make([]SymbolReference, len(references))
	for i, r := range references {
		normalized[i] = SymbolReference{
			Symbol:     orEmpty(NormalizeOptionalText(&r.Symbol)),
			Path:       orEmpty(NormalizeOptionalText(&r.Path)),
			Line:       r.Line,
			Kind:       orEmpty(NormalizeOptionalText(&r.Kind)),
			Evidence:   orEmpty(NormalizeOptionalText(&r.Evidence)),
			Strategy:   orEmpty(NormalizeOptionalText(&r.Strategy)),
			Confidence: orEmpty(NormalizeOptionalText(&r.Confidence)),
		}
	}
	if err := ValidateSymbolReferences(normalized); err != nil {
		return nil, err
	}
	sort.SliceStable(normalized, func(i, j int) bool { return referenceLess(normalized[i], normalized[j]) })
	return normalized, nil
}

func orEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func normalizeSymbol(s OutlineSymbol) OutlineSymbol {
	scopeKind := NormalizeOptionalText(s.ScopeKind)
	if scopeKind == nil {
		inferred := inferScopeKind(s.Kind)
		scopeKind = &inferred
	}
	parent := NormalizeOptionalText(s.ParentSymbol)
	if parent == nil {
		parent = inferParentSymbol(s.Name, scopeKind)
	}
	s.Signature = NormalizeSignature(s.Signature)
	s.Doc = NormalizeOptionalText(s.Doc)
	s.ParentSymbol = parent
	s.ScopeKind = scopeKind
	s.DeclContext = NormalizeOptionalText(s.DeclContext)
	return s
}

func inferScopeKind(kind string) string {
	switch kind {
	case "method", "async_method", "constructor":
		return "class"
	default:
		return "module"
	}
}

func inferParentSymbol(name string, scopeKind *string) *string {
	if scopeKind == nil || *scopeKind != "class" {
		return nil
	}
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return nil
	}
	parent := name[:idx]
	if parent == "" {
		return nil
	}
	return &parent
}

// SymbolQuery identifies a symbol to resolve references for: Name is the
// dotted/qualified outline name, ShortName its last path segment.
type SymbolQuery struct {
	Name      string
	ShortName string
}

// LanguageAdapter is the contract every adapter implements.
type LanguageAdapter interface {
	Name() string
	SupportsPath(path string) bool
	Outline(path, text string) ([]OutlineSymbol, error)
	SmartChunks(path, text string) ([][2]int, bool)
	SymbolHints(prompt string) []string
	ReferencesForSymbols(symbols []SymbolQuery, files map[string]string, topK int) (map[string][]SymbolReference, error)
}
