package goast

import (
	"go/ast"
	"go/token"
	"strings"

	"github.com/taggedzi/repo-mcp-go/internal/adapter"
)

// outlineCollector walks the file once, tracking a type/function scope
// stack and a control-flow stack, mirroring the host-language visitor's
// parent-symbol chain and decl_context tracking for nested declarations.
type outlineCollector struct {
	fset        *token.FileSet
	symbols     []adapter.OutlineSymbol
	scopeStack  []scopeEntry
	controlStack []string
}

type scopeEntry struct {
	kind string
	name string
}

func newOutlineCollector(fset *token.FileSet) *outlineCollector {
	return &outlineCollector{fset: fset}
}

func (c *outlineCollector) Visit(node ast.Node) ast.Visitor {
	switch n := node.(type) {
	case *ast.TypeSpec:
		c.visitTypeSpec(n)
		return nil
	case *ast.FuncDecl:
		c.visitFuncDecl(n)
		return nil
	case *ast.GenDecl:
		c.visitGenDecl(n)
		return c
	case *ast.IfStmt:
		return c.visitControl("if", n)
	case *ast.ForStmt:
		return c.visitControl("for", n)
	case *ast.RangeStmt:
		return c.visitControl("for", n)
	case *ast.SwitchStmt:
		return c.visitControl("switch", n)
	case *ast.TypeSwitchStmt:
		return c.visitControl("switch", n)
	case *ast.SelectStmt:
		return c.visitControl("select", n)
	}
	return c
}

func (c *outlineCollector) visitControl(label string, node ast.Node) ast.Visitor {
	c.controlStack = append(c.controlStack, label)
	ast.Inspect(node, func(n ast.Node) bool {
		if n == node {
			return true
		}
		return n != nil && c.Visit(n) != nil
	})
	c.controlStack = c.controlStack[:len(c.controlStack)-1]
	return nil
}

func (c *outlineCollector) visitTypeSpec(n *ast.TypeSpec) {
	name := n.Name.Name
	kind := "type"
	if _, ok := n.Type.(*ast.InterfaceType); ok {
		kind = "interface"
	}
	if _, ok := n.Type.(*ast.StructType); ok {
		kind = "struct"
	}

	c.symbols = append(c.symbols, adapter.OutlineSymbol{
		Kind:         kind,
		Name:         name,
		StartLine:    c.fset.Position(n.Pos()).Line,
		EndLine:      c.fset.Position(n.End()).Line,
		ParentSymbol: c.parentSymbol(),
		ScopeKind:    c.scopeKindPtr(),
		IsConditional: c.isConditionalPtr(),
		DeclContext:  c.declContext(),
	})

	c.scopeStack = append(c.scopeStack, scopeEntry{kind: "class", name: name})
	if body := structOrInterfaceFields(n.Type); body != nil {
		for _, field := range body.List {
			_ = field
		}
	}
	c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
}

func structOrInterfaceFields(expr ast.Expr) *ast.FieldList {
	switch t := expr.(type) {
	case *ast.StructType:
		return t.Fields
	case *ast.InterfaceType:
		return t.Methods
	}
	return nil
}

func (c *outlineCollector) visitGenDecl(n *ast.GenDecl) {
	kindWord := n.Tok.String()
	if kindWord != "const" && kindWord != "var" {
		return
	}
	for _, spec := range n.Specs {
		valueSpec, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		for _, name := range valueSpec.Names {
			if name.Name == "_" {
				continue
			}
			c.symbols = append(c.symbols, adapter.OutlineSymbol{
				Kind:         kindWord,
				Name:         name.Name,
				StartLine:    c.fset.Position(name.Pos()).Line,
				EndLine:      c.fset.Position(name.End()).Line,
				ParentSymbol: c.parentSymbol(),
				ScopeKind:    c.scopeKindPtr(),
				IsConditional: c.isConditionalPtr(),
				DeclContext:  c.declContext(),
			})
		}
	}
}

func (c *outlineCollector) visitFuncDecl(n *ast.FuncDecl) {
	kind := "function"
	name := n.Name.Name
	parent := c.parentSymbol()

	if n.Recv != nil && len(n.Recv.List) > 0 {
		kind = "method"
		receiverType := receiverTypeName(n.Recv.List[0].Type)
		if receiverType != "" {
			name = receiverType + "." + n.Name.Name
			qualified := receiverType
			parent = &qualified
		}
	}

	signature := "(" + fieldListSignature(n.Type.Params) + ")"

	c.symbols = append(c.symbols, adapter.OutlineSymbol{
		Kind:         kind,
		Name:         name,
		Signature:    &signature,
		StartLine:    c.fset.Position(n.Pos()).Line,
		EndLine:      c.fset.Position(n.End()).Line,
		Doc:          docFirstLine(n.Doc),
		ParentSymbol: parent,
		ScopeKind:    scopeKindForFunc(kind),
		IsConditional: c.isConditionalPtr(),
		DeclContext:  c.declContext(),
	})

	if n.Body != nil {
		scopeLabel := "function"
		c.scopeStack = append(c.scopeStack, scopeEntry{kind: scopeLabel, name: n.Name.Name})
		ast.Walk(c, n.Body)
		c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
	}
}

func scopeKindForFunc(kind string) *string {
	v := "function"
	if kind == "method" {
		v = "class"
	}
	return &v
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

func fieldListSignature(fields *ast.FieldList) string {
	if fields == nil {
		return ""
	}
	var parts []string
	for _, f := range fields.List {
		typeName := exprString(f.Type)
		if len(f.Names) == 0 {
			parts = append(parts, typeName)
			continue
		}
		for _, n := range f.Names {
			parts = append(parts, n.Name+" "+typeName)
		}
	}
	return strings.Join(parts, ", ")
}

func exprString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	case *ast.MapType:
		return "map[" + exprString(t.Key) + "]" + exprString(t.Value)
	case *ast.InterfaceType:
		return "interface{}"
	default:
		return "any"
	}
}

func docFirstLine(group *ast.CommentGroup) *string {
	if group == nil {
		return nil
	}
	text := strings.TrimSpace(group.Text())
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	first := strings.TrimSpace(lines[0])
	if first == "" {
		return nil
	}
	return &first
}

func (c *outlineCollector) parentSymbol() *string {
	if len(c.scopeStack) == 0 {
		return nil
	}
	names := make([]string, len(c.scopeStack))
	for i, s := range c.scopeStack {
		names[i] = s.name
	}
	joined := strings.Join(names, ".")
	return &joined
}

func (c *outlineCollector) scopeKindPtr() *string {
	if len(c.scopeStack) == 0 {
		v := "module"
		return &v
	}
	v := c.scopeStack[len(c.scopeStack)-1].kind
	return &v
}

func (c *outlineCollector) isConditionalPtr() *bool {
	v := len(c.controlStack) > 0
	return &v
}

func (c *outlineCollector) declContext() *string {
	if len(c.controlStack) == 0 {
		return nil
	}
	joined := strings.Join(c.controlStack, ">")
	return &joined
}
