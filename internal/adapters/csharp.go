package adapters

import (
	"context"
	"strings"

	"github.com/mvp-joe/symgraph/internal/symbol"
	sitter "github.com/tree-sitter/go-tree-sitter"
	csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
)

var csharpBodies = bodyKinds{"block": nil, "arrow_expression_clause": nil}

// csharpAdapter extracts symbols from C# files. Block and file-scoped
// namespaces map to namespaces, classes, interfaces and records to classes,
// and structs (record structs included) to structs.
type csharpAdapter struct {
	*treeSitterParser
}

// NewCSharpAdapter creates a C# adapter.
func NewCSharpAdapter() Adapter {
	lang := sitter.NewLanguage(csharp.Language())
	return &csharpAdapter{
		treeSitterParser: newTreeSitterParser(lang, LangCSharp, csharpBodies, ".cs"),
	}
}

// Extract parses src and walks its compilation unit.
func (a *csharpAdapter) Extract(ctx context.Context, src Source) (*Extraction, error) {
	tree, recovered, err := a.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &csharpWalker{walker: newWalker(src, recovered)}

	// A file-scoped namespace owns every declaration after it.
	var out, scoped []symbol.Symbol
	var scope *sitter.Node
	var scopePath symbol.Path
	for _, child := range namedChildren(tree.RootNode()) {
		if child.Kind() == "file_scoped_namespace_declaration" {
			scope = child
			scopePath = w.namespacePath(child, nil)
			scoped = append(scoped, w.declarations(child, scopePath)...)
			continue
		}
		if scope != nil {
			scoped = append(scoped, w.declaration(child, scopePath)...)
			continue
		}
		out = append(out, w.declaration(child, nil)...)
	}
	if scope != nil {
		out = append(out, wrapNamespaces(scopePath, w.loc(scope), scoped))
	}
	return w.result(a.lang, out), nil
}

type csharpWalker struct {
	*walker
}

// declarations extracts the items of a namespace body, skipping its name.
func (w *csharpWalker) declarations(container *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	name := container.ChildByFieldName("name")
	var out []symbol.Symbol
	for _, child := range namedChildren(container) {
		if sameNode(child, name) {
			continue
		}
		out = append(out, w.declaration(child, prefix)...)
	}
	return out
}

func (w *csharpWalker) declaration(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	switch n.Kind() {
	case "namespace_declaration":
		path := w.namespacePath(n, prefix)
		ns := symbol.NewNamespace(path.Parent(), path.Name(), w.loc(n), w.declarations(n.ChildByFieldName("body"), path))
		for i := len(path) - 1; i > len(prefix); i-- {
			ns = symbol.NewNamespace(path[:i].Parent(), path[i-1], w.loc(n), []symbol.Symbol{ns})
		}
		return []symbol.Symbol{ns}
	case "class_declaration", "interface_declaration", "struct_declaration",
		"record_declaration", "record_struct_declaration":
		return []symbol.Symbol{w.typeDecl(n, prefix)}
	case "enum_declaration":
		return []symbol.Symbol{w.enum(n, prefix)}
	case "delegate_declaration":
		w.fail(n, reasonAlias)
		return nil
	case "using_directive", "extern_alias_directive", "comment", "global_attribute",
		"global_statement", "attribute_list", "preprocessor_call", "shebang_directive":
		return nil
	default:
		if strings.HasPrefix(n.Kind(), "preproc") {
			return nil
		}
		w.fail(n, reasonUnhandled)
		return nil
	}
}

// namespacePath appends each dotted segment of the namespace name to prefix.
func (w *csharpWalker) namespacePath(n *sitter.Node, prefix symbol.Path) symbol.Path {
	path := prefix
	for _, seg := range strings.Split(squash(w.text(n.ChildByFieldName("name"))), ".") {
		if seg = strings.TrimSpace(seg); seg != "" {
			path = path.Child(seg)
		}
	}
	if len(path) == len(prefix) {
		path = path.Child(w.anonymous(n))
	}
	return path
}

func (w *csharpWalker) typeDecl(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	name := w.text(n.ChildByFieldName("name"))
	if n.ChildByFieldName("type_parameters") != nil || findChildByType(n, "type_parameter_list") != nil {
		w.fail(n, reasonGeneric)
	}

	kind := symbol.KindClass
	if n.Kind() == "struct_declaration" || n.Kind() == "record_struct_declaration" || hasChildKind(n, "struct") {
		kind = symbol.KindStruct
	}

	var members []symbol.Member
	if n.Kind() == "record_declaration" || n.Kind() == "record_struct_declaration" {
		members = append(members, w.primaryConstructor(n, name)...)
	}
	for _, item := range namedChildren(n.ChildByFieldName("body")) {
		members = append(members, w.member(item)...)
	}
	return symbol.NewType(kind, prefix, name, w.loc(n), members)
}

// primaryConstructor maps `record Point(int X, int Y)` onto a constructor
// plus one property per positional parameter.
func (w *csharpWalker) primaryConstructor(n *sitter.Node, name string) []symbol.Member {
	list := n.ChildByFieldName("parameters")
	if list == nil {
		list = findChildByType(n, "parameter_list")
	}
	if list == nil {
		return nil
	}
	out := []symbol.Member{{
		Kind:     symbol.MemberConstructor,
		Name:     name,
		Params:   w.params(list),
		Location: w.loc(list),
	}}
	for _, p := range namedChildren(list) {
		if p.Kind() != "parameter" {
			continue
		}
		out = append(out, symbol.Member{
			Kind:     symbol.MemberField,
			Name:     w.text(p.ChildByFieldName("name")),
			Type:     squash(w.text(p.ChildByFieldName("type"))),
			Location: w.loc(p),
		})
	}
	return out
}

func (w *csharpWalker) member(item *sitter.Node) []symbol.Member {
	static := w.hasModifier(item, "static") || w.hasModifier(item, "const")
	switch item.Kind() {
	case "field_declaration":
		decl := findChildByType(item, "variable_declaration")
		if decl == nil {
			return nil
		}
		fieldType := squash(w.text(decl.ChildByFieldName("type")))
		var out []symbol.Member
		for _, d := range namedChildren(decl) {
			if d.Kind() != "variable_declarator" {
				continue
			}
			nameNode := d.ChildByFieldName("name")
			if nameNode == nil {
				nameNode = findChildByType(d, "identifier")
			}
			out = append(out, symbol.Member{
				Kind:     symbol.MemberField,
				Name:     w.text(nameNode),
				Type:     fieldType,
				IsStatic: static,
				Location: w.loc(item),
			})
		}
		return out
	case "property_declaration":
		return []symbol.Member{{
			Kind:     symbol.MemberField,
			Name:     w.text(item.ChildByFieldName("name")),
			Type:     squash(w.text(item.ChildByFieldName("type"))),
			IsStatic: static,
			Location: w.loc(item),
		}}
	case "method_declaration":
		if item.ChildByFieldName("type_parameters") != nil || findChildByType(item, "type_parameter_list") != nil {
			w.fail(item, reasonGeneric)
		}
		returns := item.ChildByFieldName("returns")
		if returns == nil {
			returns = item.ChildByFieldName("type")
		}
		m := symbol.Member{
			Kind:       symbol.MemberMethod,
			Name:       w.text(item.ChildByFieldName("name")),
			ReturnType: squash(w.text(returns)),
			Params:     w.params(item.ChildByFieldName("parameters")),
			Location:   w.loc(item),
		}
		if static {
			m.Kind = symbol.MemberStaticMethod
			m.IsStatic = true
		}
		return []symbol.Member{m}
	case "constructor_declaration":
		if w.hasModifier(item, "static") {
			return nil
		}
		return []symbol.Member{{
			Kind:     symbol.MemberConstructor,
			Name:     w.text(item.ChildByFieldName("name")),
			Params:   w.params(item.ChildByFieldName("parameters")),
			Location: w.loc(item),
		}}
	case "class_declaration", "interface_declaration", "struct_declaration", "enum_declaration",
		"record_declaration", "record_struct_declaration", "delegate_declaration":
		w.fail(item, reasonNested)
		return nil
	case "comment", "attribute_list", "destructor_declaration", "event_field_declaration", "event_declaration":
		return nil
	default:
		if strings.HasPrefix(item.Kind(), "preproc") {
			return nil
		}
		w.fail(item, reasonUnhandled)
		return nil
	}
}

func (w *csharpWalker) enum(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	var names []string
	explicit := make(map[string]string)
	for _, item := range namedChildren(n.ChildByFieldName("body")) {
		if item.Kind() != "enum_member_declaration" {
			continue
		}
		name := w.text(item.ChildByFieldName("name"))
		names = append(names, name)
		if value := item.ChildByFieldName("value"); value != nil {
			explicit[name] = squash(w.text(value))
		}
	}
	return symbol.NewEnum(prefix, w.text(n.ChildByFieldName("name")), w.loc(n), names, explicit)
}

// params returns the type token of each parameter. A params array keeps
// its keyword.
func (w *csharpWalker) params(list *sitter.Node) []string {
	var out []string
	for _, p := range namedChildren(list) {
		switch p.Kind() {
		case "parameter":
			token := squash(w.text(p.ChildByFieldName("type")))
			if hasChildKind(p, "params") || w.hasModifier(p, "params") {
				token = "params " + token
			}
			out = append(out, token)
		case "parameter_array":
			out = append(out, "params "+squash(w.text(p.ChildByFieldName("type"))))
		}
	}
	return out
}

// hasModifier reports whether n carries the given modifier keyword.
func (w *csharpWalker) hasModifier(n *sitter.Node, keyword string) bool {
	for _, child := range namedChildren(n) {
		if child.Kind() == "modifier" && w.text(child) == keyword {
			return true
		}
	}
	return false
}
