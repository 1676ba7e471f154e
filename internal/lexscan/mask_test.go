package lexscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskCommentsAndStringsLineComment(t *testing.T) {
	src := "x := 1 // set x\ny := 2\n"
	masked := MaskCommentsAndStrings(src, DefaultRules())
	require.Equal(t, len(src), len(masked))
	assert.Contains(t, masked, "x := 1 ")
	assert.NotContains(t, masked, "set x")
	assert.Contains(t, masked, "y := 2")
}

func TestMaskCommentsAndStringsBlockComment(t *testing.T) {
	src := "a = 1\n/* multi\nline */\nb = 2\n"
	masked := MaskCommentsAndStrings(src, DefaultRules())
	assert.NotContains(t, masked, "multi")
	assert.NotContains(t, masked, "line")
	assert.Contains(t, masked, "a = 1")
	assert.Contains(t, masked, "b = 2")
	// four newlines: four lines plus the empty segment after the last one
	assert.Equal(t, 5, len(splitLinesForTest(masked)))
}

func TestMaskCommentsAndStringsUnterminatedBlockComment(t *testing.T) {
	src := "a = 1\n/* never closes\nb = 2\n"
	masked := MaskCommentsAndStrings(src, DefaultRules())
	assert.NotContains(t, masked, "never closes")
	assert.NotContains(t, masked, "b = 2")
	assert.Equal(t, len(src), len(masked))
}

func TestMaskCommentsAndStringsStringLiteral(t *testing.T) {
	src := `name := "secret value"` + "\n"
	masked := MaskCommentsAndStrings(src, DefaultRules())
	assert.NotContains(t, masked, "secret value")
	assert.Contains(t, masked, "name := ")
}

func TestMaskCommentsAndStringsEscapedQuote(t *testing.T) {
	src := `s := "a \" b"` + "\n"
	masked := MaskCommentsAndStrings(src, DefaultRules())
	// the escaped quote must not terminate the string early
	assert.NotContains(t, masked, "a ")
}

func TestMaskCommentsAndStringsTripleQuoteBeatsSingle(t *testing.T) {
	src := `x = """triple"""` + "\n"
	masked := MaskCommentsAndStrings(src, DefaultRules())
	assert.NotContains(t, masked, "triple")
	assert.Contains(t, masked, "x = ")
}

func TestExtractIdentifierTokens(t *testing.T) {
	masked := "foo bar\n  baz_qux\n"
	tokens := ExtractIdentifierTokens(masked)
	require.Len(t, tokens, 3)
	assert.Equal(t, "foo", tokens[0].Text)
	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 1, tokens[0].StartCol)
	assert.Equal(t, "bar", tokens[1].Text)
	assert.Equal(t, 2, tokens[2].Line)
	assert.Equal(t, "baz_qux", tokens[2].Text)
}

func TestScanBraceBlocksNested(t *testing.T) {
	masked := "func f() {\n  if true {\n    x\n  }\n}\n"
	result := ScanBraceBlocks(masked, '{', '}')
	require.Len(t, result.Blocks, 2)
	assert.Equal(t, 0, result.UnmatchedClosing)
	assert.Equal(t, 0, result.UnclosedOpening)
	// outer block should have depth 1, inner depth 2
	depths := []int{result.Blocks[0].Depth, result.Blocks[1].Depth}
	assert.Contains(t, depths, 1)
	assert.Contains(t, depths, 2)
}

func TestScanBraceBlocksUnmatchedClosing(t *testing.T) {
	masked := "}\nx\n"
	result := ScanBraceBlocks(masked, '{', '}')
	assert.Equal(t, 1, result.UnmatchedClosing)
	assert.Empty(t, result.Blocks)
}

func TestScanBraceBlocksUnclosedOpening(t *testing.T) {
	masked := "{\nx\n"
	result := ScanBraceBlocks(masked, '{', '}')
	assert.Equal(t, 1, result.UnclosedOpening)
	assert.Empty(t, result.Blocks)
}

func splitLinesForTest(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
