package goast

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"
)

// referenceCollector gathers candidate references once per file: import
// paths, interface/struct embeddings (kind=inheritance), and call
// expressions (kind=call, or instantiation when the callee name starts
// uppercase).
type referenceCollector struct {
	fset       *token.FileSet
	candidates []referenceCandidate
}

func (r *referenceCollector) Visit(node ast.Node) ast.Visitor {
	switch n := node.(type) {
	case *ast.ImportSpec:
		r.visitImport(n)
	case *ast.TypeSpec:
		r.visitTypeSpec(n)
	case *ast.CallExpr:
		r.visitCall(n)
	}
	return r
}

func (r *referenceCollector) visitImport(n *ast.ImportSpec) {
	path, err := strconv.Unquote(n.Path.Value)
	if err != nil {
		path = strings.Trim(n.Path.Value, `"`)
	}
	line := r.fset.Position(n.Pos()).Line
	r.candidates = append(r.candidates, referenceCandidate{
		line:       line,
		name:       path,
		kind:       "import",
		evidence:   "import \"" + path + "\"",
		confidence: "high",
	})
}

func (r *referenceCollector) visitTypeSpec(n *ast.TypeSpec) {
	fields := structOrInterfaceFields(n.Type)
	if fields == nil {
		return
	}
	for _, field := range fields.List {
		if len(field.Names) != 0 {
			continue
		}
		dotted := dottedName(field.Type)
		if dotted == "" {
			continue
		}
		line := r.fset.Position(field.Pos()).Line
		r.candidates = append(r.candidates, referenceCandidate{
			line:       line,
			name:       dotted,
			kind:       "inheritance",
			evidence:   n.Name.Name + " embeds " + dotted,
			confidence: "high",
		})
	}
}

func (r *referenceCollector) visitCall(n *ast.CallExpr) {
	dotted := dottedName(n.Fun)
	if dotted == "" {
		return
	}
	short := dotted
	if idx := strings.LastIndex(dotted, "."); idx >= 0 {
		short = dotted[idx+1:]
	}
	kind := "call"
	confidence := "medium"
	if short != "" && short[0] >= 'A' && short[0] <= 'Z' {
		kind = "instantiation"
	}
	if strings.Contains(dotted, ".") {
		confidence = "high"
	}
	line := r.fset.Position(n.Pos()).Line
	r.candidates = append(r.candidates, referenceCandidate{
		line:       line,
		name:       dotted,
		kind:       kind,
		evidence:   dotted + "()",
		confidence: confidence,
	})
}

func dottedName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		parent := dottedName(t.X)
		if parent == "" {
			return ""
		}
		return parent + "." + t.Sel.Name
	case *ast.StarExpr:
		return dottedName(t.X)
	}
	return ""
}
