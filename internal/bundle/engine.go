package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
)

// SearchFunc runs one retrieval query and returns ranked hits.
type SearchFunc func(query string, topK int) ([]Hit, error)

// ReadLinesFunc returns the inclusive text excerpt for a path/range.
type ReadLinesFunc func(path string, startLine, endLine int) (string, error)

// OutlineFunc returns the outline symbols for one path.
type OutlineFunc func(path string) ([]adapter.OutlineSymbol, error)

// ReferenceLookupFunc resolves reference line numbers for one symbol.
type ReferenceLookupFunc func(symbol string) (map[string][]int, error)

// ReferenceLookupManyFunc resolves reference line numbers for many symbols
// at once.
type ReferenceLookupManyFunc func(symbols []string) (map[string]map[string][]int, error)

// ReferenceLookupScopedManyFunc resolves reference line numbers for many
// symbols, each scoped to a set of candidate paths.
type ReferenceLookupScopedManyFunc func(symbolPaths map[string][]string) (map[string]map[string][]int, error)

// ProfileSink receives one bundling profile payload.
type ProfileSink func(Profile)

// Options configures one BuildContextBundle call.
type Options struct {
	Prompt       string
	Budget       Budget
	BaseTopK     int
	IncludeTests bool

	Search                  SearchFunc
	ReadLines               ReadLinesFunc
	Outline                 OutlineFunc
	ReferenceLookup         ReferenceLookupFunc
	ReferenceLookupMany     ReferenceLookupManyFunc
	ReferenceLookupScoped   ReferenceLookupScopedManyFunc
	ProfileSink             ProfileSink
}

var promptTokenPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Tokenize splits text into lowercase word tokens for prompt/path relevance
// signals.
func Tokenize(text string) []string {
	matches := promptTokenPattern.FindAllString(text, -1)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = strings.ToLower(m)
	}
	return out
}

type candidate struct {
	path         string
	startLine    int
	endLine      int
	score        float64
	sourceQuery  string
	alignedName  string
	alignedKind  string
}

// BuildContextBundle synthesizes queries from the prompt, retrieves and
// aligns hits to outline symbols, dedupes, ranks by definition/reference
// proximity signals, and selects excerpts within budget.
func BuildContextBundle(opts Options) (Result, error) {
	start := time.Now()
	var profile Profile

	prompt := strings.TrimSpace(opts.Prompt)
	baseTopK := opts.BaseTopK
	if baseTopK < 1 {
		baseTopK = 10
	}

	// 1. Query synthesis.
	qsStart := time.Now()
	queries := synthesizeQueries(prompt)
	profile.QuerySynthesisSeconds = time.Since(qsStart).Seconds()

	// 2 & 3. Per-query retrieval and test-path filtering.
	retrievalStart := time.Now()
	var candidates []candidate
	searchQueries := make([]string, 0, len(queries))
	for i, q := range queries {
		topK := baseTopK
		if i > 0 {
			topK = baseTopK / 4
			if topK < 5 {
				topK = 5
			}
		}
		if opts.Search == nil {
			continue
		}
		hits, err := opts.Search(q, topK)
		if err != nil {
			return Result{}, err
		}
		searchQueries = append(searchQueries, q)
		for _, h := range hits {
			if !opts.IncludeTests && isTestPath(h.Path) {
				continue
			}
			candidates = append(candidates, candidate{
				path:        h.Path,
				startLine:   h.StartLine,
				endLine:     h.EndLine,
				score:       h.Score,
				sourceQuery: q,
			})
		}
	}
	profile.RetrievalSeconds = time.Since(retrievalStart).Seconds()
	dedupeBefore := len(candidates)

	// 4. Outline alignment.
	alignStart := time.Now()
	outlineCache := make(map[string][]adapter.OutlineSymbol)
	for i := range candidates {
		c := &candidates[i]
		if opts.Outline == nil {
			continue
		}
		symbols, ok := outlineCache[c.path]
		if !ok {
			resolved, err := opts.Outline(c.path)
			if err == nil {
				symbols = resolved
			}
			outlineCache[c.path] = symbols
		}
		if sym := smallestOverlapping(symbols, c.startLine, c.endLine); sym != nil {
			c.startLine = sym.StartLine
			c.endLine = sym.EndLine
			c.alignedName = sym.Name
			c.alignedKind = sym.Kind
		}
	}
	profile.AlignmentSeconds = time.Since(alignStart).Seconds()

	// 5. Dedupe.
	candidates = dedupeCandidates(candidates)
	dedupeAfter := len(candidates)

	// 6. Reference prefetch.
	refsBySymbol := prefetchReferences(opts, candidates)

	// 7 & 8. Ranking signals and sort.
	rankStart := time.Now()
	promptTokens := Tokenize(prompt)
	type ranked struct {
		c                    candidate
		definitionMatch      bool
		referenceCountInRange int
		minDefinitionDistance int
		pathNameRelevance    int
		rangeSizePenalty     int
	}
	rankedCandidates := make([]ranked, len(candidates))
	definitionMatchCount := 0
	referenceProximityCount := 0
	for i, c := range candidates {
		r := ranked{c: c, minDefinitionDistance: 1_000_000_000}
		if c.alignedName != "" {
			nameTokens := Tokenize(c.alignedName)
			r.definitionMatch = intersects(promptTokens, nameTokens)
		}
		if r.definitionMatch {
			definitionMatchCount++
		}
		lines := refsBySymbol[c.alignedName][c.path]
		r.referenceCountInRange = countInRange(lines, c.startLine, c.endLine)
		if r.referenceCountInRange > 0 {
			r.minDefinitionDistance = 0
			referenceProximityCount++
		} else if len(lines) > 0 {
			r.minDefinitionDistance = nearestDistance(lines, c.startLine, c.endLine)
		}
		r.pathNameRelevance = intersectionSize(promptTokens, Tokenize(c.path))
		r.rangeSizePenalty = c.endLine - c.startLine + 1
		rankedCandidates[i] = r
	}

	candidateID := func(c candidate) string {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%s", c.path, c.startLine, c.endLine, c.sourceQuery)))
		return hex.EncodeToString(sum[:])
	}

	sort.SliceStable(rankedCandidates, func(i, j int) bool {
		a, b := rankedCandidates[i], rankedCandidates[j]
		if a.definitionMatch != b.definitionMatch {
			return a.definitionMatch
		}
		if a.referenceCountInRange != b.referenceCountInRange {
			return a.referenceCountInRange > b.referenceCountInRange
		}
		if a.minDefinitionDistance != b.minDefinitionDistance {
			return a.minDefinitionDistance < b.minDefinitionDistance
		}
		if a.pathNameRelevance != b.pathNameRelevance {
			return a.pathNameRelevance > b.pathNameRelevance
		}
		if a.c.score != b.c.score {
			return a.c.score > b.c.score
		}
		if a.rangeSizePenalty != b.rangeSizePenalty {
			return a.rangeSizePenalty < b.rangeSizePenalty
		}
		if a.c.path != b.c.path {
			return a.c.path < b.c.path
		}
		if a.c.startLine != b.c.startLine {
			return a.c.startLine < b.c.startLine
		}
		if a.c.endLine != b.c.endLine {
			return a.c.endLine < b.c.endLine
		}
		if a.c.sourceQuery != b.c.sourceQuery {
			return a.c.sourceQuery < b.c.sourceQuery
		}
		return candidateID(a.c) < candidateID(b.c)
	})
	profile.RankingSeconds = time.Since(rankStart).Seconds()

	// 9. Budget enforcement.
	budgetStart := time.Now()
	var selections []Selection
	var citations []Citation
	var topCandidates []RankingDebugCandidate
	var skipped []SkippedCandidate
	reasonCounts := make(map[string]int)
	selectedFiles := make(map[string]bool)
	selectedLines := 0
	truncated := false

	for i, r := range rankedCandidates {
		selected := false
		reason := ""
		switch {
		case r.c.endLine < r.c.startLine:
			reason = "zero_lines"
		case !selectedFiles[r.c.path] && len(selectedFiles) >= opts.Budget.MaxFiles && opts.Budget.MaxFiles > 0:
			reason = "file_budget"
		case selectedLines+r.rangeSizePenalty > opts.Budget.MaxTotalLines && opts.Budget.MaxTotalLines > 0:
			reason = "line_budget"
		}

		if reason == "" {
			selected = true
		} else {
			truncated = true
			reasonCounts[reason]++
			if len(skipped) < 20 {
				skipped = append(skipped, SkippedCandidate{
					Path: r.c.path, StartLine: r.c.startLine, EndLine: r.c.endLine,
					Reason: reason, SourceQuery: r.c.sourceQuery,
				})
			}
		}

		if selected {
			var excerpt string
			if opts.ReadLines != nil {
				text, err := opts.ReadLines(r.c.path, r.c.startLine, r.c.endLine)
				if err == nil {
					excerpt = text
				}
			}
			selectedFiles[r.c.path] = true
			selectedLines += r.rangeSizePenalty

			why := map[string]interface{}{
				"definition_match":         r.definitionMatch,
				"reference_count_in_range": r.referenceCountInRange,
				"min_definition_distance":  r.minDefinitionDistance,
				"path_name_relevance":      r.pathNameRelevance,
				"search_score":             r.c.score,
				"source_query":             r.c.sourceQuery,
				"aligned_symbol":           r.c.alignedName,
			}
			selections = append(selections, Selection{
				Path: r.c.path, StartLine: r.c.startLine, EndLine: r.c.endLine,
				Excerpt: excerpt, WhySelected: why,
				Rationale:   rationale(r.definitionMatch, r.referenceCountInRange, r.c.sourceQuery),
				Score:       r.c.score, SourceQuery: r.c.sourceQuery,
			})
			citations = append(citations, Citation{
				Path: r.c.path, StartLine: r.c.startLine, EndLine: r.c.endLine,
				SelectionIndex: len(selections) - 1,
			})
		}

		if len(topCandidates) < 20 {
			topCandidates = append(topCandidates, RankingDebugCandidate{
				Path: r.c.path, StartLine: r.c.startLine, EndLine: r.c.endLine,
				SourceQuery: r.c.sourceQuery, Selected: selected, RankPosition: i,
				DefinitionMatch: r.definitionMatch, ReferenceCountInRange: r.referenceCountInRange,
				MinDefinitionDistance: r.minDefinitionDistance, PathNameRelevance: r.pathNameRelevance,
				SearchScore: r.c.score, RangeSizePenalty: r.rangeSizePenalty,
			})
		}
	}
	profile.BudgetSeconds = time.Since(budgetStart).Seconds()

	var budgetEnforcement []string
	for reason, count := range reasonCounts {
		budgetEnforcement = append(budgetEnforcement, fmt.Sprintf("%s:%d", reason, count))
	}
	sort.Strings(budgetEnforcement)

	totals := Totals{
		SelectedFiles: len(selectedFiles),
		SelectedLines: selectedLines,
		Truncated:     truncated,
	}

	promptFingerprint := sha256Hex(prompt)
	bundleID := sha256Hex(promptFingerprint + "|" + reprTotals(totals) + "|" + reprSelections(selections))

	result := Result{
		BundleID:          bundleID,
		PromptFingerprint: promptFingerprint,
		Strategy:          "multi_query_bm25_outline_aligned",
		Budget:            opts.Budget,
		Totals:            totals,
		Selections:        selections,
		Citations:         citations,
		Audit: Audit{
			SearchQueries:                  searchQueries,
			DedupeBefore:                   dedupeBefore,
			DedupeAfter:                    dedupeAfter,
			BudgetEnforcement:              budgetEnforcement,
			RankingCandidateCount:          len(candidates),
			RankingDefinitionMatchCount:    definitionMatchCount,
			RankingReferenceProximityCount: referenceProximityCount,
			RankingTopCandidates:           topCandidates,
			WhyNotSelected: WhyNotSelectedSummary{
				TotalSkippedCandidates: len(candidates) - len(selections),
				ReasonCounts:           reasonCounts,
				TopSkipped:             skipped,
			},
		},
	}

	profile.CandidateCount = len(candidates)
	profile.SelectedCount = len(selections)
	profile.TotalSeconds = time.Since(start).Seconds()
	if opts.ProfileSink != nil {
		opts.ProfileSink(profile)
	}

	return result, nil
}

func synthesizeQueries(prompt string) []string {
	queries := []string{prompt}
	seen := map[string]bool{strings.ToLower(prompt): true}
	for _, tok := range Tokenize(prompt) {
		if len(tok) < 3 {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		queries = append(queries, tok)
		if len(queries) >= 9 {
			break
		}
	}
	return queries
}

var testPathPattern = regexp.MustCompile(`_test\.[^./\\]+$`)

func isTestPath(path string) bool {
	slashed := strings.ReplaceAll(path, "\\", "/")
	if strings.HasPrefix(slashed, "tests/") || strings.Contains(slashed, "/tests/") {
		return true
	}
	return testPathPattern.MatchString(slashed)
}

func smallestOverlapping(symbols []adapter.OutlineSymbol, start, end int) *adapter.OutlineSymbol {
	var best *adapter.OutlineSymbol
	bestSize := -1
	for i := range symbols {
		s := &symbols[i]
		if s.StartLine > end || s.EndLine < start {
			continue
		}
		size := s.EndLine - s.StartLine
		if best == nil || size < bestSize ||
			(size == bestSize && smallerTieBreak(*s, *best)) {
			best = s
			bestSize = size
		}
	}
	return best
}

func smallerTieBreak(a, b adapter.OutlineSymbol) bool {
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

func dedupeCandidates(candidates []candidate) []candidate {
	type key struct {
		path  string
		start int
		end   int
	}
	best := make(map[key]candidate)
	order := make([]key, 0, len(candidates))
	for _, c := range candidates {
		k := key{c.path, c.startLine, c.endLine}
		existing, ok := best[k]
		if !ok {
			best[k] = c
			order = append(order, k)
			continue
		}
		if c.score > existing.score || (c.score == existing.score && c.sourceQuery < existing.sourceQuery) {
			best[k] = c
		}
	}
	out := make([]candidate, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

func prefetchReferences(opts Options, candidates []candidate) map[string]map[string][]int {
	names := make(map[string][]string)
	for _, c := range candidates {
		if c.alignedName == "" {
			continue
		}
		names[c.alignedName] = appendUnique(names[c.alignedName], c.path)
	}
	if len(names) == 0 {
		return nil
	}

	if opts.ReferenceLookupScoped != nil {
		out, err := opts.ReferenceLookupScoped(names)
		if err == nil {
			return sortRefs(out)
		}
	}
	symbolNames := make([]string, 0, len(names))
	for name := range names {
		symbolNames = append(symbolNames, name)
	}
	sort.Strings(symbolNames)

	if opts.ReferenceLookupMany != nil {
		out, err := opts.ReferenceLookupMany(symbolNames)
		if err == nil {
			return sortRefs(out)
		}
	}
	if opts.ReferenceLookup != nil {
		out := make(map[string]map[string][]int, len(symbolNames))
		for _, name := range symbolNames {
			refs, err := opts.ReferenceLookup(name)
			if err == nil {
				out[name] = refs
			}
		}
		return sortRefs(out)
	}
	return nil
}

func sortRefs(in map[string]map[string][]int) map[string]map[string][]int {
	for _, byPath := range in {
		for path, lines := range byPath {
			sorted := append([]int(nil), lines...)
			sort.Ints(sorted)
			byPath[path] = sorted
		}
	}
	return in
}

func appendUnique(in []string, v string) []string {
	for _, existing := range in {
		if existing == v {
			return in
		}
	}
	return append(in, v)
}

func countInRange(sortedLines []int, start, end int) int {
	lo := sort.SearchInts(sortedLines, start)
	hi := sort.SearchInts(sortedLines, end+1)
	if hi < lo {
		return 0
	}
	return hi - lo
}

func nearestDistance(sortedLines []int, start, end int) int {
	best := 1_000_000_000
	for _, line := range sortedLines {
		d := 0
		if line < start {
			d = start - line
		} else if line > end {
			d = line - end
		}
		if d < best {
			best = d
		}
	}
	return best
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(b))
	for _, t := range b {
		set[t] = true
	}
	for _, t := range a {
		if set[t] {
			return true
		}
	}
	return false
}

func intersectionSize(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, t := range b {
		set[t] = true
	}
	seen := make(map[string]bool)
	count := 0
	for _, t := range a {
		if set[t] && !seen[t] {
			seen[t] = true
			count++
		}
	}
	return count
}

func rationale(definitionMatch bool, referenceCount int, sourceQuery string) string {
	switch {
	case definitionMatch:
		return fmt.Sprintf("matched definition name for query %q", sourceQuery)
	case referenceCount > 0:
		return fmt.Sprintf("contains %d reference(s) for query %q", referenceCount, sourceQuery)
	default:
		return fmt.Sprintf("retrieved by search for query %q", sourceQuery)
	}
}

func sha256Hex(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func reprTotals(t Totals) string {
	return fmt.Sprintf("%d|%d|%t", t.SelectedFiles, t.SelectedLines, t.Truncated)
}

func reprSelections(selections []Selection) string {
	parts := make([]string, len(selections))
	for i, s := range selections {
		parts[i] = fmt.Sprintf("%s|%d|%d|%s", s.Path, s.StartLine, s.EndLine, s.SourceQuery)
	}
	return strings.Join(parts, ";")
}
