// Package bundle assembles budget-bounded context bundles: multi-query
// retrieval, outline-range alignment, dedupe, reference-proximity ranking,
// and deterministic selection, the read-only counterpart to an index
// search that a caller can hand straight to a prompt.
package bundle

// Budget bounds a bundle's size.
type Budget struct {
	MaxFiles      int
	MaxTotalLines int
}

// Hit is one retrieval result from a search function, prior to outline
// alignment.
type Hit struct {
	Path        string
	StartLine   int
	EndLine     int
	Score       float64
	SourceQuery string
}

// Selection is one excerpt chosen for the bundle.
type Selection struct {
	Path          string
	StartLine     int
	EndLine       int
	Excerpt       string
	WhySelected   map[string]interface{}
	Rationale     string
	Score         float64
	SourceQuery   string
}

// Citation is citation metadata for one selection.
type Citation struct {
	Path           string
	StartLine      int
	EndLine        int
	SelectionIndex int
}

// Totals summarizes selection counts and truncation state.
type Totals struct {
	SelectedFiles int
	SelectedLines int
	Truncated     bool
}

// RankingDebugCandidate is one bounded ranking debug row.
type RankingDebugCandidate struct {
	Path                   string
	StartLine              int
	EndLine                int
	SourceQuery            string
	Selected               bool
	RankPosition           int
	DefinitionMatch        bool
	ReferenceCountInRange  int
	MinDefinitionDistance  int
	PathNameRelevance      int
	SearchScore            float64
	RangeSizePenalty       int
}

// SkippedCandidate is one bounded entry in why_not_selected_summary.
type SkippedCandidate struct {
	Path        string
	StartLine   int
	EndLine     int
	Reason      string
	SourceQuery string
}

// WhyNotSelectedSummary groups skipped candidates by reason.
type WhyNotSelectedSummary struct {
	TotalSkippedCandidates int
	ReasonCounts           map[string]int
	TopSkipped             []SkippedCandidate
}

// Audit carries deterministic bundling diagnostics.
type Audit struct {
	SearchQueries                   []string
	DedupeBefore                    int
	DedupeAfter                     int
	BudgetEnforcement               []string
	RankingCandidateCount           int
	RankingDefinitionMatchCount     int
	RankingReferenceProximityCount  int
	RankingTopCandidates            []RankingDebugCandidate
	WhyNotSelected                  WhyNotSelectedSummary
}

// Result is the final deterministic bundle artifact.
type Result struct {
	BundleID         string
	PromptFingerprint string
	Strategy         string
	Budget           Budget
	Totals           Totals
	Selections       []Selection
	Citations        []Citation
	Audit            Audit
}

// Profile carries per-phase timings and counts, delivered to an optional
// profile sink.
type Profile struct {
	QuerySynthesisSeconds float64
	RetrievalSeconds      float64
	AlignmentSeconds      float64
	RankingSeconds        float64
	BudgetSeconds         float64
	TotalSeconds          float64
	CandidateCount        int
	SelectedCount         int
}
