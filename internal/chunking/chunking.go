// Package chunking splits a file's text into deterministic, overlapping
// line-range windows and derives a stable content-addressed ID for each one.
package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/taggedzi/repo-mcp-go/internal/apperr"
)

// DefaultChunkLines and DefaultChunkOverlapLines match the original
// implementation's defaults.
const (
	DefaultChunkLines        = 200
	DefaultChunkOverlapLines = 30
)

// Chunk is one line-range window of a file's text.
type Chunk struct {
	Path      string
	StartLine int // 1-based, inclusive
	EndLine   int // 1-based, inclusive
	Text      string
	ChunkID   string
}

// Split splits text into chunks of at most chunkLines lines, each
// subsequent chunk overlapping the previous one by overlapLines lines.
// The final chunk always ends exactly at the last line, even if that makes
// it shorter than chunkLines. A file with zero lines produces zero chunks.
func Split(path, text string, chunkLines, overlapLines int) ([]Chunk, error) {
	if chunkLines < 1 {
		return nil, apperr.New(apperr.InvalidParams, "chunk_lines must be >= 1")
	}
	if overlapLines < 0 {
		return nil, apperr.New(apperr.InvalidParams, "chunk_overlap_lines must be >= 0")
	}
	if overlapLines >= chunkLines {
		return nil, apperr.New(apperr.InvalidParams, "chunk_overlap_lines must be < chunk_lines")
	}

	lines := splitLinesKeepEmpty(text)
	if len(lines) == 0 {
		return nil, nil
	}

	step := chunkLines - overlapLines
	chunks := make([]Chunk, 0)

	startIndex := 0
	for {
		endIndexExclusive := startIndex + chunkLines
		if endIndexExclusive > len(lines) {
			endIndexExclusive = len(lines)
		}

		windowLines := lines[startIndex:endIndexExclusive]
		joined := strings.Join(windowLines, "\n")
		startLine := startIndex + 1
		endLine := endIndexExclusive

		chunks = append(chunks, Chunk{
			Path:      path,
			StartLine: startLine,
			EndLine:   endLine,
			Text:      joined,
			ChunkID:   BuildChunkID(path, startLine, endLine, windowLines),
		})

		if endIndexExclusive == len(lines) {
			break
		}
		startIndex += step
	}

	return chunks, nil
}

// BuildChunkID derives a stable SHA-256-based ID from the path, the 1-based
// inclusive line range, and the exact line contents of the chunk.
func BuildChunkID(path string, startLine, endLine int, lines []string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte("|"))
	h.Write([]byte(fmt.Sprintf("%d", startLine)))
	h.Write([]byte("|"))
	h.Write([]byte(fmt.Sprintf("%d", endLine)))
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// splitLinesKeepEmpty splits text on "\n" the way the original line-counter
// does: an empty string produces zero lines, and a trailing newline does not
// produce a spurious empty final line beyond what strings.Split would give
// for non-empty text (matching Python's str.splitlines()-free, newline-join
// based approach used by the bundler/index for stable round-tripping).
func splitLinesKeepEmpty(text string) []string {
	if text == "" {
		return nil
	}
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(normalized, "\n")
}
