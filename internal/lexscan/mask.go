// Package lexscan provides deterministic, masker-based lexical scanning
// helpers shared by every non-AST language adapter: comment/string masking
// that preserves character offsets, identifier token extraction, brace-block
// scanning, and cross-file lexical reference resolution.
package lexscan

import (
	"regexp"
	"sort"
	"strings"
)

var identifierPattern = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)

// Rules are the configurable lexical markers used while masking non-code
// text. The zero value masks nothing (only EscapeChar falls back to a
// backslash); DefaultRules returns the C-family defaults.
type Rules struct {
	LineCommentPrefixes []string
	BlockCommentPairs   [][2]string
	StringDelimiters    []string
	EscapeChar          byte
}

// DefaultRules matches the original tool's C-family-leaning defaults.
func DefaultRules() Rules {
	return Rules{
		LineCommentPrefixes: []string{"//", "#"},
		BlockCommentPairs:   [][2]string{{"/*", "*/"}},
		StringDelimiters:    []string{"'''", `"""`, "'", `"`, "`"},
		EscapeChar:          '\\',
	}
}

type maskState struct {
	mode   string // "", "line_comment", "block_comment", "string"
	marker string
}

// MaskCommentsAndStrings replaces comment and string-literal content with
// spaces while preserving the original line count and character offsets, so
// downstream line/column-based tooling keeps working against masked text.
func MaskCommentsAndStrings(text string, rules Rules) string {
	linePrefixes := longestFirst(nonEmpty(rules.LineCommentPrefixes))
	blockPairs := longestFirstPairs(rules.BlockCommentPairs)
	stringDelims := longestFirst(nonEmpty(rules.StringDelimiters))
	escapeChar := rules.EscapeChar
	if escapeChar == 0 {
		escapeChar = '\\'
	}

	chars := []byte(text)
	length := len(text)
	index := 0
	var state maskState

	for index < length {
		if state.mode == "" {
			if marker := matchAny(text, index, linePrefixes); marker != "" {
				blank(chars, index, len(marker))
				state = maskState{mode: "line_comment", marker: marker}
				index += len(marker)
				continue
			}
			if start, end := matchBlockStart(text, index, blockPairs); start != "" {
				blank(chars, index, len(start))
				state = maskState{mode: "block_comment", marker: end}
				index += len(start)
				continue
			}
			if marker := matchAny(text, index, stringDelims); marker != "" {
				blank(chars, index, len(marker))
				state = maskState{mode: "string", marker: marker}
				index += len(marker)
				continue
			}
			index++
			continue
		}

		switch state.mode {
		case "line_comment":
			if text[index] == '\n' {
				state = maskState{}
				index++
			} else {
				chars[index] = ' '
				index++
			}
		case "block_comment":
			if strings.HasPrefix(text[index:], state.marker) {
				closeLen := len(state.marker)
				blank(chars, index, closeLen)
				state = maskState{}
				index += closeLen
			} else {
				if text[index] != '\n' {
					chars[index] = ' '
				}
				index++
			}
		case "string":
			if strings.HasPrefix(text[index:], state.marker) && !isEscaped(text, index, state.marker, escapeChar) {
				closeLen := len(state.marker)
				blank(chars, index, closeLen)
				state = maskState{}
				index += closeLen
			} else {
				if text[index] != '\n' {
					chars[index] = ' '
				}
				index++
			}
		}
	}

	return string(chars)
}

// Token is an identifier token with 1-based line/column metadata.
type Token struct {
	Text     string
	Line     int
	StartCol int
	EndCol   int
}

// ExtractIdentifierTokens extracts identifier tokens from already-masked
// source text.
func ExtractIdentifierTokens(maskedText string) []Token {
	var tokens []Token
	lines := strings.Split(maskedText, "\n")
	for i, line := range lines {
		lineNumber := i + 1
		for _, loc := range identifierPattern.FindAllStringIndex(line, -1) {
			tokens = append(tokens, Token{
				Text:     line[loc[0]:loc[1]],
				Line:     lineNumber,
				StartCol: loc[0] + 1,
				EndCol:   loc[1],
			})
		}
	}
	return tokens
}

// BraceBlock is a matched brace range with nesting depth (1 = outermost).
type BraceBlock struct {
	StartLine, StartCol int
	EndLine, EndCol     int
	Depth               int
}

// BraceScanResult is the outcome of a deterministic brace scan.
type BraceScanResult struct {
	Blocks           []BraceBlock
	UnmatchedClosing int
	UnclosedOpening  int
}

type braceFrame struct {
	line, col, depth int
}

// ScanBraceBlocks scans masked_text for matched open/close character pairs,
// tracking line/column position and nesting depth with a stack.
func ScanBraceBlocks(maskedText string, openChar, closeChar byte) BraceScanResult {
	var stack []braceFrame
	var blocks []BraceBlock
	line, col := 1, 1
	unmatchedClosing := 0

	for i := 0; i < len(maskedText); i++ {
		c := maskedText[i]
		switch c {
		case openChar:
			depth := len(stack) + 1
			stack = append(stack, braceFrame{line: line, col: col, depth: depth})
		case closeChar:
			if len(stack) == 0 {
				unmatchedClosing++
			} else {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				blocks = append(blocks, BraceBlock{
					StartLine: top.line, StartCol: top.col,
					EndLine: line, EndCol: col, Depth: top.depth,
				})
			}
		}

		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if a.StartCol != b.StartCol {
			return a.StartCol < b.StartCol
		}
		if a.EndLine != b.EndLine {
			return a.EndLine < b.EndLine
		}
		if a.EndCol != b.EndCol {
			return a.EndCol < b.EndCol
		}
		return a.Depth < b.Depth
	})

	return BraceScanResult{Blocks: blocks, UnmatchedClosing: unmatchedClosing, UnclosedOpening: len(stack)}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func longestFirst(in []string) []string {
	out := append([]string(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func longestFirstPairs(in [][2]string) [][2]string {
	filtered := make([][2]string, 0, len(in))
	for _, p := range in {
		if p[0] != "" && p[1] != "" {
			filtered = append(filtered, p)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return len(filtered[i][0]) > len(filtered[j][0]) })
	return filtered
}

func matchAny(text string, index int, markers []string) string {
	for _, m := range markers {
		if strings.HasPrefix(text[index:], m) {
			return m
		}
	}
	return ""
}

func matchBlockStart(text string, index int, pairs [][2]string) (string, string) {
	for _, p := range pairs {
		if strings.HasPrefix(text[index:], p[0]) {
			return p[0], p[1]
		}
	}
	return "", ""
}

func blank(chars []byte, index, n int) {
	for i := 0; i < n; i++ {
		chars[index+i] = ' '
	}
}

func isEscaped(text string, index int, marker string, escapeChar byte) bool {
	if len(marker) > 1 {
		return false
	}
	backslashes := 0
	cursor := index - 1
	for cursor >= 0 && text[cursor] == escapeChar {
		backslashes++
		cursor--
	}
	return backslashes%2 == 1
}
