package adapters

import (
	"context"
	"strings"

	"github.com/mvp-joe/symgraph/internal/symbol"
	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

const reasonGeneric = "generic type parameters are not modelled"

var javaBodies = bodyKinds{"block": nil, "constructor_body": nil}

// javaAdapter extracts symbols from Java files. The package clause becomes a
// chain of namespaces wrapping every type in the file.
type javaAdapter struct {
	*treeSitterParser
}

// NewJavaAdapter creates a Java adapter.
func NewJavaAdapter() Adapter {
	lang := sitter.NewLanguage(java.Language())
	return &javaAdapter{
		treeSitterParser: newTreeSitterParser(lang, LangJava, javaBodies, ".java"),
	}
}

// Extract parses src and walks its compilation unit.
func (a *javaAdapter) Extract(ctx context.Context, src Source) (*Extraction, error) {
	tree, recovered, err := a.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &javaWalker{walker: newWalker(src, recovered)}
	root := tree.RootNode()

	var pkg []string
	var pkgNode *sitter.Node
	for _, child := range namedChildren(root) {
		if child.Kind() != "package_declaration" {
			continue
		}
		pkgNode = child
		for _, part := range namedChildren(child) {
			if part.Kind() == "scoped_identifier" || part.Kind() == "identifier" {
				pkg = strings.Split(squash(w.text(part)), ".")
			}
		}
	}

	var prefix symbol.Path
	for _, seg := range pkg {
		prefix = prefix.Child(strings.TrimSpace(seg))
	}

	var types []symbol.Symbol
	for _, child := range namedChildren(root) {
		types = append(types, w.topLevel(child, prefix)...)
	}

	if len(pkg) == 0 {
		return w.result(a.lang, types), nil
	}
	return w.result(a.lang, []symbol.Symbol{wrapNamespaces(prefix, w.loc(pkgNode), types)}), nil
}

// wrapNamespaces nests children inside one namespace per segment of path.
func wrapNamespaces(path symbol.Path, loc symbol.Location, children []symbol.Symbol) symbol.Symbol {
	ns := symbol.NewNamespace(path.Parent(), path.Name(), loc, children)
	for i := len(path) - 1; i > 0; i-- {
		ns = symbol.NewNamespace(path[:i].Parent(), path[i-1], loc, []symbol.Symbol{ns})
	}
	return ns
}

type javaWalker struct {
	*walker
}

func (w *javaWalker) topLevel(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	switch n.Kind() {
	case "class_declaration", "interface_declaration", "record_declaration":
		return []symbol.Symbol{w.typeDecl(n, prefix)}
	case "enum_declaration":
		return []symbol.Symbol{w.enum(n, prefix)}
	case "package_declaration", "import_declaration", "line_comment", "block_comment", "module_declaration":
		return nil
	default:
		w.fail(n, reasonUnhandled)
		return nil
	}
}

func (w *javaWalker) typeDecl(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	name := w.text(n.ChildByFieldName("name"))
	if n.ChildByFieldName("type_parameters") != nil {
		w.fail(n, reasonGeneric)
	}

	var members []symbol.Member
	if n.Kind() == "record_declaration" {
		for _, p := range namedChildren(n.ChildByFieldName("parameters")) {
			if p.Kind() != "formal_parameter" {
				continue
			}
			members = append(members, symbol.Member{
				Kind:     symbol.MemberField,
				Name:     w.text(p.ChildByFieldName("name")),
				Type:     squash(w.text(p.ChildByFieldName("type"))),
				Location: w.loc(p),
			})
		}
	}

	for _, item := range namedChildren(n.ChildByFieldName("body")) {
		members = append(members, w.member(item, n)...)
	}
	return symbol.NewType(symbol.KindClass, prefix, name, w.loc(n), members)
}

func (w *javaWalker) member(item *sitter.Node, owner *sitter.Node) []symbol.Member {
	switch item.Kind() {
	case "field_declaration", "constant_declaration":
		static := w.hasModifier(item, "static") || owner.Kind() == "interface_declaration"
		fieldType := squash(w.text(item.ChildByFieldName("type")))
		var out []symbol.Member
		for _, d := range childrenByField(item, "declarator") {
			out = append(out, symbol.Member{
				Kind:     symbol.MemberField,
				Name:     w.text(d.ChildByFieldName("name")),
				Type:     fieldType,
				IsStatic: static,
				Location: w.loc(item),
			})
		}
		return out
	case "method_declaration":
		if item.ChildByFieldName("type_parameters") != nil {
			w.fail(item, reasonGeneric)
		}
		m := symbol.Member{
			Kind:       symbol.MemberMethod,
			Name:       w.text(item.ChildByFieldName("name")),
			ReturnType: squash(w.text(item.ChildByFieldName("type"))),
			Params:     w.params(item.ChildByFieldName("parameters")),
			Location:   w.loc(item),
		}
		if w.hasModifier(item, "static") {
			m.Kind = symbol.MemberStaticMethod
			m.IsStatic = true
		}
		return []symbol.Member{m}
	case "constructor_declaration":
		return []symbol.Member{{
			Kind:     symbol.MemberConstructor,
			Name:     w.text(item.ChildByFieldName("name")),
			Params:   w.params(item.ChildByFieldName("parameters")),
			Location: w.loc(item),
		}}
	case "compact_constructor_declaration":
		var params []string
		for _, p := range namedChildren(owner.ChildByFieldName("parameters")) {
			if p.Kind() == "formal_parameter" {
				params = append(params, squash(w.text(p.ChildByFieldName("type"))))
			}
		}
		return []symbol.Member{{
			Kind:     symbol.MemberConstructor,
			Name:     w.text(item.ChildByFieldName("name")),
			Params:   params,
			Location: w.loc(item),
		}}
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration", "annotation_type_declaration":
		w.fail(item, reasonNested)
		return nil
	case "line_comment", "block_comment", "static_initializer", "block":
		return nil
	default:
		w.fail(item, reasonUnhandled)
		return nil
	}
}

func (w *javaWalker) enum(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	var names []string
	for _, item := range namedChildren(n.ChildByFieldName("body")) {
		switch item.Kind() {
		case "enum_constant":
			names = append(names, w.text(item.ChildByFieldName("name")))
		case "enum_body_declarations":
			if len(namedChildren(item)) > 0 {
				w.fail(item, "enum members are not modelled")
			}
		}
	}
	return symbol.NewEnum(prefix, w.text(n.ChildByFieldName("name")), w.loc(n), names, nil)
}

func (w *javaWalker) params(list *sitter.Node) []string {
	var out []string
	for _, p := range namedChildren(list) {
		switch p.Kind() {
		case "formal_parameter":
			out = append(out, squash(w.text(p.ChildByFieldName("type"))))
		case "spread_parameter":
			for _, part := range namedChildren(p) {
				if part.Kind() != "modifiers" && part.Kind() != "variable_declarator" {
					out = append(out, squash(w.text(part))+"...")
					break
				}
			}
		}
	}
	return out
}

// hasModifier reports whether the declaration carries the given keyword.
func (w *javaWalker) hasModifier(n *sitter.Node, keyword string) bool {
	mods := findChildByType(n, "modifiers")
	if mods == nil {
		return false
	}
	return hasChildKind(mods, keyword)
}
