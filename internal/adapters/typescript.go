package adapters

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mvp-joe/symgraph/internal/symbol"
	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var tsBodies = bodyKinds{
	"statement_block": {
		"function_declaration", "function_expression", "generator_function_declaration",
		"generator_function", "arrow_function", "method_definition",
	},
}

// typeScriptAdapter extracts symbols from TypeScript and JavaScript files.
// Namespaces and ambient modules map to namespaces, classes and interfaces
// to classes. Files claimed by jsx carry JSX and parse with the TSX grammar,
// which also covers plain JavaScript.
type typeScriptAdapter struct {
	*treeSitterParser
	jsx     *treeSitterParser
	jsxExts []string
}

// NewTypeScriptAdapter creates a TypeScript adapter for .ts and .tsx files.
func NewTypeScriptAdapter() Adapter {
	return &typeScriptAdapter{
		treeSitterParser: newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTypescript()), LangTypeScript, tsBodies,
			".ts", ".mts", ".cts", ".tsx"),
		jsx:     newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTSX()), LangTypeScript, tsBodies),
		jsxExts: []string{".tsx"},
	}
}

// NewJavaScriptAdapter creates a JavaScript adapter. JavaScript is walked
// as untyped TypeScript, so parameter and return tokens are empty.
func NewJavaScriptAdapter() Adapter {
	tsx := newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTSX()), LangJavaScript, tsBodies,
		".js", ".jsx", ".mjs", ".cjs")
	return &typeScriptAdapter{treeSitterParser: tsx}
}

// Extract parses src and walks its program.
func (a *typeScriptAdapter) Extract(ctx context.Context, src Source) (*Extraction, error) {
	parser := a.treeSitterParser
	if slices.Contains(a.jsxExts, strings.ToLower(filepath.Ext(src.Path))) {
		parser = a.jsx
	}

	tree, recovered, err := parser.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &tsWalker{walker: newWalker(src, recovered)}
	return w.result(a.lang, w.statements(tree.RootNode(), nil)), nil
}

type tsWalker struct {
	*walker
}

func (w *tsWalker) statements(container *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	var out []symbol.Symbol
	for _, child := range namedChildren(container) {
		out = append(out, w.statement(child, prefix)...)
	}
	return out
}

func (w *tsWalker) statement(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	switch n.Kind() {
	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			return w.statement(decl, prefix)
		}
		return nil
	case "ambient_declaration":
		var out []symbol.Symbol
		for _, child := range namedChildren(n) {
			out = append(out, w.statement(child, prefix)...)
		}
		return out
	case "expression_statement":
		if inner := firstNamed(n); inner != nil && inner.Kind() == "internal_module" {
			return w.statement(inner, prefix)
		}
		return nil
	case "internal_module", "module":
		return []symbol.Symbol{w.namespace(n, prefix)}
	case "class_declaration", "abstract_class_declaration", "interface_declaration":
		return []symbol.Symbol{w.class(n, prefix)}
	case "enum_declaration":
		return []symbol.Symbol{w.enum(n, prefix)}
	case "function_declaration", "generator_function_declaration", "function_signature":
		w.generics(n)
		fn := symbol.NewFunction(prefix, w.text(n.ChildByFieldName("name")), w.loc(n),
			typeAnnotation(w.text(n.ChildByFieldName("return_type"))), w.params(n.ChildByFieldName("parameters")))
		if n.ChildByFieldName("body") == nil {
			fn = fn.AsDeclaration()
		}
		return []symbol.Symbol{fn}
	case "lexical_declaration", "variable_declaration":
		w.fail(n, reasonVariable)
		return nil
	case "type_alias_declaration":
		w.fail(n, reasonAlias)
		return nil
	case "import_statement", "import_alias", "comment", "empty_statement", "hash_bang_line":
		return nil
	default:
		// Executable statements declare nothing
		return nil
	}
}

// namespace maps `namespace A.B {}` onto one namespace per dotted segment.
// Ambient modules named by a string literal keep the literal as one segment.
func (w *tsWalker) namespace(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	nameNode := n.ChildByFieldName("name")
	var segments []string
	if nameNode != nil && nameNode.Kind() == "string" {
		segments = []string{strings.Trim(w.text(nameNode), `"'`)}
	} else {
		for _, seg := range strings.Split(w.text(nameNode), ".") {
			if seg = strings.TrimSpace(seg); seg != "" {
				segments = append(segments, seg)
			}
		}
	}
	if len(segments) == 0 {
		segments = []string{w.anonymous(n)}
	}

	path := prefix
	for _, seg := range segments {
		path = path.Child(seg)
	}

	body := n.ChildByFieldName("body")
	var ns symbol.Symbol
	if body == nil {
		ns = symbol.NewNamespace(path.Parent(), path.Name(), w.loc(n), nil).AsDeclaration()
	} else {
		ns = symbol.NewNamespace(path.Parent(), path.Name(), w.loc(n), w.statements(body, path))
	}
	for i := len(path) - 1; i > len(prefix); i-- {
		ns = symbol.NewNamespace(path[:i].Parent(), path[i-1], w.loc(n), []symbol.Symbol{ns})
	}
	return ns
}

func (w *tsWalker) generics(n *sitter.Node) {
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		w.fail(tp, reasonGeneric)
	}
}

func (w *tsWalker) class(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	w.generics(n)
	body := n.ChildByFieldName("body")

	// Overload signatures repeat the implementation that follows them
	implemented := make(map[string]bool)
	for _, item := range namedChildren(body) {
		if item.Kind() == "method_definition" {
			implemented[w.text(item.ChildByFieldName("name"))] = true
		}
	}

	var members []symbol.Member
	for _, item := range namedChildren(body) {
		if item.Kind() == "method_signature" && n.Kind() != "interface_declaration" &&
			implemented[w.text(item.ChildByFieldName("name"))] {
			continue
		}
		members = append(members, w.member(item)...)
	}
	return symbol.NewType(symbol.KindClass, prefix, w.text(n.ChildByFieldName("name")), w.loc(n), members)
}

func (w *tsWalker) member(item *sitter.Node) []symbol.Member {
	static := hasChildKind(item, "static")
	switch item.Kind() {
	case "method_definition", "method_signature", "abstract_method_signature":
		w.generics(item)
		name := w.text(item.ChildByFieldName("name"))
		m := symbol.Member{
			Name:     name,
			Params:   w.params(item.ChildByFieldName("parameters")),
			Location: w.loc(item),
		}
		switch {
		case name == "constructor":
			m.Kind = symbol.MemberConstructor
			return append([]symbol.Member{m}, w.parameterProperties(item.ChildByFieldName("parameters"))...)
		case static:
			m.Kind = symbol.MemberStaticMethod
			m.IsStatic = true
			m.ReturnType = typeAnnotation(w.text(item.ChildByFieldName("return_type")))
		default:
			m.Kind = symbol.MemberMethod
			m.ReturnType = typeAnnotation(w.text(item.ChildByFieldName("return_type")))
		}
		return []symbol.Member{m}
	case "public_field_definition", "property_signature":
		return []symbol.Member{{
			Kind:     symbol.MemberField,
			Name:     w.text(item.ChildByFieldName("name")),
			Type:     typeAnnotation(w.text(item.ChildByFieldName("type"))),
			IsStatic: static,
			Location: w.loc(item),
		}}
	case "construct_signature":
		return []symbol.Member{{
			Kind:     symbol.MemberConstructor,
			Name:     "constructor",
			Params:   w.params(item.ChildByFieldName("parameters")),
			Location: w.loc(item),
		}}
	case "comment", "decorator", "class_static_block", "index_signature", "call_signature", "semicolon":
		return nil
	default:
		w.fail(item, reasonUnhandled)
		return nil
	}
}

func (w *tsWalker) enum(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	var names []string
	explicit := make(map[string]string)
	for _, item := range namedChildren(n.ChildByFieldName("body")) {
		switch item.Kind() {
		case "property_identifier", "string":
			names = append(names, strings.Trim(w.text(item), `"'`))
		case "enum_assignment":
			name := strings.Trim(w.text(item.ChildByFieldName("name")), `"'`)
			names = append(names, name)
			explicit[name] = squash(w.text(item.ChildByFieldName("value")))
		}
	}
	return symbol.NewEnum(prefix, w.text(n.ChildByFieldName("name")), w.loc(n), names, explicit)
}

// parameterProperties returns the fields declared by constructor
// parameters carrying an accessibility or readonly modifier.
func (w *tsWalker) parameterProperties(list *sitter.Node) []symbol.Member {
	var out []symbol.Member
	for _, p := range namedChildren(list) {
		if p.Kind() != "required_parameter" && p.Kind() != "optional_parameter" {
			continue
		}
		if !hasChildKind(p, "accessibility_modifier") && !hasChildKind(p, "readonly") {
			continue
		}
		out = append(out, symbol.Member{
			Kind:     symbol.MemberField,
			Name:     w.text(p.ChildByFieldName("pattern")),
			Type:     typeAnnotation(w.text(p.ChildByFieldName("type"))),
			Location: w.loc(p),
		})
	}
	return out
}

// params returns the annotated type of each parameter, "" when unannotated.
func (w *tsWalker) params(list *sitter.Node) []string {
	var out []string
	for _, p := range namedChildren(list) {
		if p.Kind() != "required_parameter" && p.Kind() != "optional_parameter" {
			continue
		}
		token := typeAnnotation(w.text(p.ChildByFieldName("type")))
		if pattern := p.ChildByFieldName("pattern"); pattern != nil && pattern.Kind() == "rest_pattern" {
			token = "..." + token
		}
		out = append(out, token)
	}
	return out
}
