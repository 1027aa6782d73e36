package adapters

import (
	"context"
	"path"
	"strings"

	"github.com/mvp-joe/symgraph/internal/symbol"
	sitter "github.com/tree-sitter/go-tree-sitter"
	golang "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

const reasonReceiver = "receiver type is not a struct declared in this file"

var goBodies = bodyKinds{"block": nil}

// goAdapter extracts symbols from Go files. The package directory becomes
// the enclosing namespace, structs keep their fields and receive the methods
// declared for them in the same file, and interfaces map to classes.
type goAdapter struct {
	*treeSitterParser
}

// NewGoAdapter creates a Go adapter.
func NewGoAdapter() Adapter {
	lang := sitter.NewLanguage(golang.Language())
	return &goAdapter{
		treeSitterParser: newTreeSitterParser(lang, LangGo, goBodies, ".go"),
	}
}

// Extract parses src and walks its source file.
func (a *goAdapter) Extract(ctx context.Context, src Source) (*Extraction, error) {
	tree, recovered, err := a.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &goWalker{walker: newWalker(src, recovered)}
	root := tree.RootNode()

	clause := findChildByType(root, "package_clause")
	if clause == nil {
		w.fail(root, "missing package clause")
		return w.result(a.lang, nil), nil
	}
	pkg := w.text(findChildByType(clause, "package_identifier"))
	prefix := packagePath(src, pkg)

	var items []symbol.Symbol
	var methods []*sitter.Node
	for _, child := range namedChildren(root) {
		switch child.Kind() {
		case "method_declaration":
			methods = append(methods, child)
		default:
			items = append(items, w.topLevel(child, prefix)...)
		}
	}
	for _, m := range methods {
		w.method(m, items)
	}

	return w.result(a.lang, []symbol.Symbol{wrapNamespaces(prefix, w.loc(clause), items)}), nil
}

// packagePath names the package by its directory under the project root.
// The package clause is appended when it differs from the directory name,
// so main packages and external test packages stay distinct.
func packagePath(src Source, pkg string) symbol.Path {
	segs := relDirs(path.Clean(src.Rel))
	if src.Rel == "" || len(segs) == 0 {
		return symbol.Path{pkg}
	}
	if segs[len(segs)-1] != pkg {
		segs = append(segs, pkg)
	}
	return symbol.Path(segs)
}

type goWalker struct {
	*walker
}

func (w *goWalker) topLevel(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	switch n.Kind() {
	case "type_declaration":
		var out []symbol.Symbol
		for _, spec := range namedChildren(n) {
			out = append(out, w.typeSpec(spec, prefix)...)
		}
		return out
	case "function_declaration":
		w.generics(n)
		fn := symbol.NewFunction(prefix, w.text(n.ChildByFieldName("name")), w.loc(n),
			squash(w.text(n.ChildByFieldName("result"))), w.params(n.ChildByFieldName("parameters")))
		if n.ChildByFieldName("body") == nil {
			fn = fn.AsDeclaration()
		}
		return []symbol.Symbol{fn}
	case "const_declaration", "var_declaration":
		w.fail(n, reasonVariable)
		return nil
	case "package_clause", "import_declaration", "comment":
		return nil
	default:
		w.fail(n, reasonUnhandled)
		return nil
	}
}

func (w *goWalker) typeSpec(spec *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	switch spec.Kind() {
	case "type_spec":
	case "type_alias":
		w.fail(spec, reasonAlias)
		return nil
	default:
		return nil
	}

	w.generics(spec)
	name := w.text(spec.ChildByFieldName("name"))
	typeNode := spec.ChildByFieldName("type")
	switch typeNode.Kind() {
	case "struct_type":
		return []symbol.Symbol{symbol.NewType(symbol.KindStruct, prefix, name, w.loc(spec), w.fields(typeNode))}
	case "interface_type":
		return []symbol.Symbol{symbol.NewType(symbol.KindClass, prefix, name, w.loc(spec), w.interfaceMethods(typeNode))}
	default:
		w.fail(spec, "defined non-struct types are not modelled")
		return nil
	}
}

func (w *goWalker) generics(n *sitter.Node) {
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		w.fail(tp, reasonGeneric)
	}
}

// fields extracts struct fields; embedded fields are named after their type.
func (w *goWalker) fields(structType *sitter.Node) []symbol.Member {
	var out []symbol.Member
	for _, f := range namedChildren(findChildByType(structType, "field_declaration_list")) {
		if f.Kind() != "field_declaration" {
			continue
		}
		typeNode := f.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		fieldType := squash(w.text(typeNode))
		names := childrenByField(f, "name")
		if len(names) == 0 {
			// The grammar keeps the '*' of an embedded pointer outside the type field
			fieldType = squash(string(w.src[f.StartByte():typeNode.EndByte()]))
			out = append(out, symbol.Member{
				Kind:     symbol.MemberField,
				Name:     embeddedName(fieldType),
				Type:     fieldType,
				Location: w.loc(f),
			})
			continue
		}
		for _, n := range names {
			out = append(out, symbol.Member{
				Kind:     symbol.MemberField,
				Name:     w.text(n),
				Type:     fieldType,
				Location: w.loc(f),
			})
		}
	}
	return out
}

// embeddedName returns the implicit field name of an embedded type.
func embeddedName(typeText string) string {
	name := strings.TrimPrefix(typeText, "*")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (w *goWalker) interfaceMethods(iface *sitter.Node) []symbol.Member {
	var out []symbol.Member
	for _, elem := range namedChildren(iface) {
		switch elem.Kind() {
		case "method_elem", "method_spec":
			out = append(out, symbol.Member{
				Kind:       symbol.MemberMethod,
				Name:       w.text(elem.ChildByFieldName("name")),
				ReturnType: squash(w.text(elem.ChildByFieldName("result"))),
				Params:     w.params(elem.ChildByFieldName("parameters")),
				Location:   w.loc(elem),
			})
		case "comment":
		default:
			w.fail(elem, "embedded interface elements are not modelled")
		}
	}
	return out
}

// method attaches a method declaration to the struct named by its receiver.
// Value receivers cannot mutate the struct and are marked const.
func (w *goWalker) method(n *sitter.Node, siblings []symbol.Symbol) {
	receivers := namedChildren(n.ChildByFieldName("receiver"))
	if len(receivers) != 1 {
		w.fail(n, reasonReceiver)
		return
	}
	recvType := receivers[0].ChildByFieldName("type")
	if recvType == nil {
		w.fail(n, reasonReceiver)
		return
	}

	pointer := recvType.Kind() == "pointer_type"
	name := embeddedName(squash(w.text(recvType)))

	for i := range siblings {
		if siblings[i].Kind != symbol.KindStruct || siblings[i].Name != name {
			continue
		}
		siblings[i].Members = append(siblings[i].Members, symbol.Member{
			Kind:       symbol.MemberMethod,
			Name:       w.text(n.ChildByFieldName("name")),
			ReturnType: squash(w.text(n.ChildByFieldName("result"))),
			Params:     w.params(n.ChildByFieldName("parameters")),
			IsConst:    !pointer,
			Location:   w.loc(n),
		})
		return
	}
	w.fail(n, reasonReceiver)
}

// params returns one type token per declared parameter name.
func (w *goWalker) params(list *sitter.Node) []string {
	var out []string
	for _, p := range namedChildren(list) {
		switch p.Kind() {
		case "parameter_declaration":
			typeText := squash(w.text(p.ChildByFieldName("type")))
			count := len(childrenByField(p, "name"))
			if count == 0 {
				count = 1
			}
			for range count {
				out = append(out, typeText)
			}
		case "variadic_parameter_declaration":
			out = append(out, "..."+squash(w.text(p.ChildByFieldName("type"))))
		}
	}
	return out
}
