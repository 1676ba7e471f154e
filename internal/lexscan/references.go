package lexscan

import (
	"regexp"
	"sort"
	"strings"
)

// SymbolQuery identifies a symbol to search references for. Name is the
// dotted/qualified name as recorded in an outline (e.g. "Server.Handle");
// ShortName is its last path segment (e.g. "Handle").
type SymbolQuery struct {
	Name      string
	ShortName string
}

// Reference is one lexical match of a symbol within a file, prior to the
// shared adapter contract's normalization and sorting pass.
type Reference struct {
	Symbol     string
	Path       string
	Line       int
	Kind       string
	Evidence   string
	Strategy   string
	Confidence string
}

var (
	importHintPattern    = regexp.MustCompile(`\b(import|from|using|use|require|include)\b`)
	inheritHintPattern   = regexp.MustCompile(`\b(extends|implements|inherits)\b|:\s*(public|private)\b`)
	declKeywordsPattern  = regexp.MustCompile(`\b(class|struct|interface|enum|record|trait|type|namespace|package|module|impl|func|fn|def)\b`)
	whitespaceCollapseRE = regexp.MustCompile(`\s+`)
)

// ReferencesForSymbolsLexical resolves lexical references for a batch of
// symbols across a set of files, masking comments/strings per file once and
// reusing the resulting masked lines for every symbol lookup.
// supportsPath filters which files are scanned at all.
func ReferencesForSymbolsLexical(symbols []SymbolQuery, files map[string]string, rules Rules, supportsPath func(path string) bool) map[string][]Reference {
	out := make(map[string][]Reference, len(symbols))
	for _, s := range symbols {
		out[s.Name] = nil
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		if supportsPath == nil || supportsPath(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		text := files[path]
		masked := MaskCommentsAndStrings(text, rules)
		lines := strings.Split(text, "\n")
		maskedLines := strings.Split(masked, "\n")

		for _, sym := range symbols {
			refs := referencesInFile(sym, path, lines, maskedLines)
			out[sym.Name] = append(out[sym.Name], refs...)
		}
	}

	for name, refs := range out {
		sort.Slice(refs, func(i, j int) bool {
			a, b := refs[i], refs[j]
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
		})
		out[name] = refs
	}
	return out
}

func referencesInFile(sym SymbolQuery, path string, lines, maskedLines []string) []Reference {
	shortName := sym.ShortName
	if shortName == "" {
		shortName = sym.Name
	}
	dotted := dottedSequencePattern(sym.Name)

	var refs []Reference
	for i, maskedLine := range maskedLines {
		if isDeclarationLine(maskedLine, shortName) {
			continue
		}

		kind, matched := classifyMatch(maskedLine, shortName, dotted)
		if !matched {
			continue
		}

		original := ""
		if i < len(lines) {
			original = lines[i]
		}
		refs = append(refs, Reference{
			Symbol:     sym.Name,
			Path:       path,
			Line:       i + 1,
			Kind:       kind,
			Evidence:   boundedEvidence(original),
			Strategy:   "lexical",
			Confidence: confidenceForKind(kind),
		})
	}
	return refs
}

func dottedSequencePattern(name string) *regexp.Regexp {
	separators := regexp.MustCompile(`[.]|::`)
	parts := separators.Split(name, -1)
	if len(parts) < 2 {
		return nil
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = regexp.QuoteMeta(p)
	}
	pattern := strings.Join(quoted, `(?:\.|::)`)
	return regexp.MustCompile(pattern)
}

func isDeclarationLine(maskedLine, shortName string) bool {
	nameIdx := wordIndex(maskedLine, shortName)
	if nameIdx < 0 {
		return false
	}
	prefix := strings.TrimRight(maskedLine[:nameIdx], " \t")
	precedingWord := lastWord(prefix)
	return declKeywordsPattern.MatchString(precedingWord)
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func classifyMatch(maskedLine, shortName string, dotted *regexp.Regexp) (string, bool) {
	if dotted != nil && dotted.MatchString(maskedLine) {
		if inheritHintPattern.MatchString(maskedLine) {
			return "inheritance", true
		}
		if importHintPattern.MatchString(maskedLine) {
			return "import", true
		}
		return "read", true
	}

	if wordIndex(maskedLine, shortName) < 0 {
		return "", false
	}

	if importHintPattern.MatchString(maskedLine) {
		return "import", true
	}
	if inheritHintPattern.MatchString(maskedLine) {
		return "inheritance", true
	}
	if regexp.MustCompile(`\bnew\s+` + regexp.QuoteMeta(shortName) + `\b`).MatchString(maskedLine) {
		return "instantiation", true
	}
	if regexp.MustCompile(regexp.QuoteMeta(shortName) + `\s*\(`).MatchString(maskedLine) {
		if looksLikeConstructor(shortName) {
			return "instantiation", true
		}
		return "call", true
	}
	return "read", true
}

func looksLikeConstructor(name string) bool {
	if name == "" {
		return false
	}
	first := name[0]
	return first >= 'A' && first <= 'Z'
}

func wordIndex(line, word string) int {
	if word == "" {
		return -1
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	loc := re.FindStringIndex(line)
	if loc == nil {
		return -1
	}
	return loc[0]
}

func confidenceForKind(kind string) string {
	switch kind {
	case "import", "inheritance", "instantiation":
		return "high"
	case "call":
		return "medium"
	default:
		return "low"
	}
}

func boundedEvidence(line string) string {
	trimmed := strings.TrimSpace(line)
	collapsed := whitespaceCollapseRE.ReplaceAllString(trimmed, " ")
	if len(collapsed) > 160 {
		return collapsed[:160]
	}
	return collapsed
}
