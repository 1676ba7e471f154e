// Package bm25 implements deterministic BM25 ranking over pre-tokenized
// search documents (one per chunk).
package bm25

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	K1 = 1.2
	B  = 0.75
)

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// Tokenize lowercases and extracts [A-Za-z0-9_]+ runs, matching the search
// index's tokenizer exactly so chunk text and query text are comparable.
func Tokenize(text string) []string {
	matches := tokenPattern.FindAllString(text, -1)
	tokens := make([]string, len(matches))
	for i, m := range matches {
		tokens[i] = strings.ToLower(m)
	}
	return tokens
}

// Document is one chunk's worth of search-indexed content.
type Document struct {
	Path      string
	StartLine int
	EndLine   int
	ChunkID   string
	Tokens    []string
	Text      string
}

// Hit is a scored search result.
type Hit struct {
	Path      string
	StartLine int
	EndLine   int
	ChunkID   string
	Score     float64
	Snippet   string
}

// Search runs BM25 over documents for query and returns the top_k
// highest-scoring hits, discarding non-positive scores, sorted by
// (-score, path, start_line) for deterministic ties.
func Search(documents []Document, query string, topK int) []Hit {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 || len(documents) == 0 {
		return nil
	}

	uniqueTerms := make(map[string]bool)
	for _, t := range queryTerms {
		uniqueTerms[t] = true
	}
	sortedTerms := make([]string, 0, len(uniqueTerms))
	for t := range uniqueTerms {
		sortedTerms = append(sortedTerms, t)
	}
	sort.Strings(sortedTerms)

	n := len(documents)
	docFreq := make(map[string]int, len(sortedTerms))
	totalLen := 0
	for _, doc := range documents {
		totalLen += len(doc.Tokens)
		seen := make(map[string]bool)
		for _, tok := range doc.Tokens {
			if uniqueTerms[tok] && !seen[tok] {
				docFreq[tok]++
				seen[tok] = true
			}
		}
	}
	avgdl := float64(totalLen) / float64(n)
	if avgdl == 0 {
		avgdl = 1
	}

	hits := make([]Hit, 0, len(documents))
	for _, doc := range documents {
		termFreq := make(map[string]int)
		for _, tok := range doc.Tokens {
			termFreq[tok]++
		}

		docLen := float64(len(doc.Tokens))
		var score float64
		for _, term := range sortedTerms {
			tf := float64(termFreq[term])
			if tf == 0 {
				continue
			}
			nq := float64(docFreq[term])
			idf := math.Log(1 + (float64(n)-nq+0.5)/(nq+0.5))
			denom := tf + K1*(1-B+B*docLen/avgdl)
			score += idf * (tf * (K1 + 1)) / denom
		}

		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{
			Path:      doc.Path,
			StartLine: doc.StartLine,
			EndLine:   doc.EndLine,
			ChunkID:   doc.ChunkID,
			Score:     score,
			Snippet:   BuildSnippet(doc.Text),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}
		return hits[i].StartLine < hits[j].StartLine
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// BuildSnippet returns the first 3 lines of text, truncated to 300
// characters.
func BuildSnippet(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}
	snippet := strings.Join(lines, "\n")
	if len(snippet) > 300 {
		snippet = snippet[:300]
	}
	return snippet
}
