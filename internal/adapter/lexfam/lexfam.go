// Package lexfam holds the lexical (regex + masker + brace-scanner) family
// of language adapters: one per non-host family (JS/TS, Java, Python, Rust,
// C/C++, C#), each computing depth-0 matches for top-level declarations and
// depth-1 matches for members of an enclosing type, the way the teacher's
// own Go lexical adapter does it.
package lexfam

import (
	"regexp"
	"strings"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
	"github.com/taggedzi/repo-mcp-go/internal/lexscan"
)

// config describes one family's declaration grammar. Every family shares
// the same masking + depth-tracking + regex-match skeleton; only the
// regexes, keywords, and brace characters differ per language.
type config struct {
	name        string
	extensions  []string
	typeRe      *regexp.Regexp // captures kind keyword (group 1) and name (group 2)
	funcRe      *regexp.Regexp // captures name (group 1) and params (group 2)
	methodRe    *regexp.Regexp // member function inside a type body; captures name, params
	openChar    byte
	closeChar   byte
	indentBased bool // indentation-delimited blocks (Python) instead of braces
	rules       lexscan.Rules
}

// Adapter is a generic lexical-family adapter driven by a language config.
type Adapter struct {
	cfg config
}

func (a *Adapter) Name() string { return a.cfg.name }

func (a *Adapter) SupportsPath(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range a.cfg.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func (a *Adapter) Outline(path, text string) ([]adapter.OutlineSymbol, error) {
	masked := lexscan.MaskCommentsAndStrings(text, a.cfg.rules)
	lines := strings.Split(masked, "\n")

	var depths []int
	var blockEnds map[int]int
	if a.cfg.indentBased {
		depths, blockEnds = indentDepths(lines)
	} else {
		depths = lineDepths(lines, a.cfg.openChar, a.cfg.closeChar)
		blockEnds = blockEndByStartLine(masked, a.cfg.openChar, a.cfg.closeChar)
	}

	var symbols []adapter.OutlineSymbol
	var enclosingType string
	var enclosingTypeEnd int

	for i, line := range lines {
		lineNumber := i + 1
		if enclosingType != "" && lineNumber > enclosingTypeEnd {
			enclosingType = ""
		}

		if depths[i] == 0 {
			if m := a.cfg.typeRe.FindStringSubmatch(line); m != nil {
				kind := m[1]
				name := m[2]
				end := lineNumber
				if e, ok := blockEnds[lineNumber]; ok && e > end {
					end = e
				}
				symbols = append(symbols, adapter.OutlineSymbol{
					Kind:      kind,
					Name:      name,
					StartLine: lineNumber,
					EndLine:   end,
				})
				enclosingType = name
				enclosingTypeEnd = end
				continue
			}
			if m := a.cfg.funcRe.FindStringSubmatch(line); m != nil {
				end := lineNumber
				if e, ok := blockEnds[lineNumber]; ok && e > end {
					end = e
				}
				signature := "(" + strings.TrimSpace(m[2]) + ")"
				symbols = append(symbols, adapter.OutlineSymbol{
					Kind:      "function",
					Name:      m[1],
					Signature: &signature,
					StartLine: lineNumber,
					EndLine:   end,
				})
				continue
			}
		} else if depths[i] == 1 && enclosingType != "" && a.cfg.methodRe != nil {
			if m := a.cfg.methodRe.FindStringSubmatch(line); m != nil {
				end := lineNumber
				if e, ok := blockEnds[lineNumber]; ok && e > end {
					end = e
				}
				signature := "(" + strings.TrimSpace(m[2]) + ")"
				parent := enclosingType
				symbols = append(symbols, adapter.OutlineSymbol{
					Kind:         "method",
					Name:         enclosingType + "." + m[1],
					Signature:    &signature,
					StartLine:    lineNumber,
					EndLine:      end,
					ParentSymbol: &parent,
				})
			}
		}
	}

	return adapter.NormalizeAndSortSymbols(symbols)
}

func (a *Adapter) SmartChunks(path, text string) ([][2]int, bool) { return nil, false }

func (a *Adapter) SymbolHints(prompt string) []string { return nil }

func (a *Adapter) ReferencesForSymbols(symbols []adapter.SymbolQuery, files map[string]string, topK int) (map[string][]adapter.SymbolReference, error) {
	queries := make([]lexscan.SymbolQuery, len(symbols))
	for i, s := range symbols {
		queries[i] = lexscan.SymbolQuery{Name: s.Name, ShortName: s.ShortName}
	}

	raw := lexscan.ReferencesForSymbolsLexical(queries, files, a.cfg.rules, a.SupportsPath)

	out := make(map[string][]adapter.SymbolReference, len(raw))
	for name, refs := range raw {
		converted := make([]adapter.SymbolReference, len(refs))
		for i, r := range refs {
			converted[i] = adapter.SymbolReference{
				Symbol:     r.Symbol,
				Path:       r.Path,
				Line:       r.Line,
				Kind:       r.Kind,
				Evidence:   r.Evidence,
				Strategy:   r.Strategy,
				Confidence: r.Confidence,
			}
		}
		normalized, err := adapter.NormalizeAndSortReferences(converted)
		if err != nil {
			out[name] = nil
			continue
		}
		if topK > 0 && len(normalized) > topK {
			normalized = normalized[:topK]
		}
		out[name] = normalized
	}
	return out, nil
}

func lineDepths(lines []string, open, close byte) []int {
	depths := make([]int, len(lines))
	depth := 0
	for i, line := range lines {
		depths[i] = depth
		for j := 0; j < len(line); j++ {
			switch line[j] {
			case open:
				depth++
			case close:
				if depth > 0 {
					depth--
				}
			}
		}
	}
	return depths
}

// indentDepths approximates brace-scan depths/block-ends for indentation-
// delimited languages: depth 0 for unindented lines, 1 for any indented
// line, and each block's end is the last line before the next non-blank
// line at the same or shallower indentation.
func indentDepths(lines []string) ([]int, map[int]int) {
	depths := make([]int, len(lines))
	blockEnds := make(map[int]int)

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			depths[i] = -1
			continue
		}
		if indentWidth(line) == 0 {
			depths[i] = 0
		} else {
			depths[i] = 1
		}
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := indentWidth(line)
		end := i
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "" {
				end = j
				continue
			}
			if indentWidth(lines[j]) > indent {
				end = j
				continue
			}
			break
		}
		blockEnds[i+1] = end + 1
	}
	return depths, blockEnds
}

func indentWidth(line string) int {
	width := 0
	for _, r := range line {
		if r == ' ' {
			width++
		} else if r == '\t' {
			width += 8
		} else {
			break
		}
	}
	return width
}

func blockEndByStartLine(masked string, open, close byte) map[int]int {
	result := lexscan.ScanBraceBlocks(masked, open, close)
	mapping := make(map[int]int, len(result.Blocks))
	for _, b := range result.Blocks {
		if existing, ok := mapping[b.StartLine]; !ok || b.EndLine > existing {
			mapping[b.StartLine] = b.EndLine
		}
	}
	return mapping
}
