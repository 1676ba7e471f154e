package lexfam

import (
	"regexp"

	"github.com/taggedzi/repo-mcp-go/internal/lexscan"
)

// NewPython returns the lexical Python adapter: top-level "class"/"def"
// declarations and indented members, matched by regex over masked text.
func NewPython() *Adapter {
	return &Adapter{cfg: config{
		name:       "python_lexical",
		extensions: []string{".py"},
		typeRe:     regexp.MustCompile(`^\s*(class)\s+([A-Za-z_][A-Za-z0-9_]*)\b`),
		funcRe:     regexp.MustCompile(`^(?:\s*)def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`),
		methodRe:   regexp.MustCompile(`^\s+def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`),
		indentBased: true,
		rules: lexscan.Rules{
			LineCommentPrefixes: []string{"#"},
			StringDelimiters:    []string{`"""`, "'''", `"`, "'"},
			EscapeChar:          '\\',
		},
	}}
}

// NewJavaScriptTypeScript returns the lexical JS/TS adapter.
func NewJavaScriptTypeScript() *Adapter {
	return &Adapter{cfg: config{
		name:       "ts_js_lexical",
		extensions: []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"},
		typeRe:     regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(class|interface)\s+([A-Za-z_$][A-Za-z0-9_$]*)\b`),
		funcRe:     regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][A-Za-z0-9_$]*)\s*\(([^)]*)\)`),
		methodRe:   regexp.MustCompile(`^\s+(?:public\s+|private\s+|protected\s+|static\s+|async\s+)*([A-Za-z_$][A-Za-z0-9_$]*)\s*\(([^)]*)\)\s*\{?\s*$`),
		openChar:   '{',
		closeChar:  '}',
		rules: lexscan.Rules{
			LineCommentPrefixes: []string{"//"},
			BlockCommentPairs:   [][2]string{{"/*", "*/"}},
			StringDelimiters:    []string{"`", `"`, "'"},
			EscapeChar:          '\\',
		},
	}}
}

// NewJava returns the lexical Java adapter.
func NewJava() *Adapter {
	return &Adapter{cfg: config{
		name:       "java_lexical",
		extensions: []string{".java"},
		typeRe:     regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|abstract\s+|final\s+|static\s+)*(class|interface|enum|record)\s+([A-Za-z_][A-Za-z0-9_]*)\b`),
		funcRe:     regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|static\s+|final\s+|abstract\s+)*[A-Za-z_$][A-Za-z0-9_$<>\[\],. ]*\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*(?:throws\s+[A-Za-z0-9_.,\s]+)?\{?\s*$`),
		methodRe:   regexp.MustCompile(`^\s+(?:public\s+|private\s+|protected\s+|static\s+|final\s+|abstract\s+)*[A-Za-z_$][A-Za-z0-9_$<>\[\],. ]*\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*(?:throws\s+[A-Za-z0-9_.,\s]+)?\{?\s*$`),
		openChar:   '{',
		closeChar:  '}',
		rules: lexscan.Rules{
			LineCommentPrefixes: []string{"//"},
			BlockCommentPairs:   [][2]string{{"/*", "*/"}},
			StringDelimiters:    []string{`"`, "'"},
			EscapeChar:          '\\',
		},
	}}
}

// NewRust returns the lexical Rust adapter.
func NewRust() *Adapter {
	return &Adapter{cfg: config{
		name:       "rust_lexical",
		extensions: []string{".rs"},
		typeRe:     regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(struct|enum|trait)\s+([A-Za-z_][A-Za-z0-9_]*)\b`),
		funcRe:     regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`),
		methodRe:   regexp.MustCompile(`^\s+(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`),
		openChar:   '{',
		closeChar:  '}',
		rules: lexscan.Rules{
			LineCommentPrefixes: []string{"//"},
			BlockCommentPairs:   [][2]string{{"/*", "*/"}},
			StringDelimiters:    []string{`"`},
			EscapeChar:          '\\',
		},
	}}
}

// NewCpp returns the lexical C/C++ adapter.
func NewCpp() *Adapter {
	return &Adapter{cfg: config{
		name:       "cpp_lexical",
		extensions: []string{".c", ".h", ".cc", ".cpp", ".cxx", ".hpp", ".hxx"},
		typeRe:     regexp.MustCompile(`^\s*(class|struct|enum)\s+([A-Za-z_][A-Za-z0-9_]*)\b`),
		funcRe:     regexp.MustCompile(`^\s*(?:static\s+|inline\s+|virtual\s+)*[A-Za-z_][A-Za-z0-9_:<>\*&,\s]*[\s\*&]([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*(?:const\s*)?\{?\s*$`),
		methodRe:   regexp.MustCompile(`^\s+(?:static\s+|inline\s+|virtual\s+|public:\s*|private:\s*)*[A-Za-z_][A-Za-z0-9_:<>\*&,\s]*[\s\*&]([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*(?:const\s*)?\{?\s*$`),
		openChar:   '{',
		closeChar:  '}',
		rules: lexscan.Rules{
			LineCommentPrefixes: []string{"//"},
			BlockCommentPairs:   [][2]string{{"/*", "*/"}},
			StringDelimiters:    []string{`"`, "'"},
			EscapeChar:          '\\',
		},
	}}
}

// NewCSharp returns the lexical C# adapter.
func NewCSharp() *Adapter {
	return &Adapter{cfg: config{
		name:       "csharp_lexical",
		extensions: []string{".cs"},
		typeRe:     regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+|protected\s+|abstract\s+|sealed\s+|static\s+|partial\s+)*(class|interface|struct|enum|record)\s+([A-Za-z_][A-Za-z0-9_]*)\b`),
		funcRe:     regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+|protected\s+|static\s+|virtual\s+|override\s+|async\s+)*[A-Za-z_][A-Za-z0-9_<>\[\],. ]*\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*\{?\s*$`),
		methodRe:   regexp.MustCompile(`^\s+(?:public\s+|private\s+|internal\s+|protected\s+|static\s+|virtual\s+|override\s+|async\s+)*[A-Za-z_][A-Za-z0-9_<>\[\],. ]*\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*\{?\s*$`),
		openChar:   '{',
		closeChar:  '}',
		rules: lexscan.Rules{
			LineCommentPrefixes: []string{"//"},
			BlockCommentPairs:   [][2]string{{"/*", "*/"}},
			StringDelimiters:    []string{`"`, "'"},
			EscapeChar:          '\\',
		},
	}}
}
