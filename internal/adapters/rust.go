package adapters

import (
	"context"
	"strconv"
	"strings"

	"github.com/mvp-joe/symgraph/internal/symbol"
	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

const (
	reasonImplTarget = "impl target is not a struct declared in this module"
	reasonMacro      = "macros are not modelled"
)

var rustBodies = bodyKinds{"block": nil}

// rustAdapter extracts symbols from Rust files. Modules map to namespaces,
// traits to classes, and inherent impl blocks contribute methods to the
// struct they name when it is declared in the same module.
type rustAdapter struct {
	*treeSitterParser
}

// NewRustAdapter creates a Rust adapter.
func NewRustAdapter() Adapter {
	lang := sitter.NewLanguage(rust.Language())
	return &rustAdapter{
		treeSitterParser: newTreeSitterParser(lang, LangRust, rustBodies, ".rs"),
	}
}

// Extract parses src and walks its source file.
func (a *rustAdapter) Extract(ctx context.Context, src Source) (*Extraction, error) {
	tree, recovered, err := a.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &rustWalker{walker: newWalker(src, recovered)}
	return w.result(a.lang, w.items(tree.RootNode(), nil)), nil
}

type rustWalker struct {
	*walker
}

// items extracts one module body. Impl blocks are applied after every
// item is known so they may precede the struct they extend.
func (w *rustWalker) items(container *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	var out []symbol.Symbol
	var impls []*sitter.Node
	for _, item := range namedChildren(container) {
		if item.Kind() == "impl_item" {
			impls = append(impls, item)
			continue
		}
		out = append(out, w.item(item, prefix)...)
	}

	for _, impl := range impls {
		w.impl(impl, out)
	}
	return out
}

func (w *rustWalker) item(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	switch n.Kind() {
	case "mod_item":
		name := w.text(n.ChildByFieldName("name"))
		body := n.ChildByFieldName("body")
		if body == nil {
			return []symbol.Symbol{symbol.NewNamespace(prefix, name, w.loc(n), nil).AsDeclaration()}
		}
		path := prefix.Child(name)
		return []symbol.Symbol{symbol.NewNamespace(prefix, name, w.loc(n), w.items(body, path))}
	case "struct_item", "union_item":
		w.generics(n)
		name := w.text(n.ChildByFieldName("name"))
		return []symbol.Symbol{symbol.NewType(symbol.KindStruct, prefix, name, w.loc(n), w.fields(n.ChildByFieldName("body")))}
	case "enum_item":
		w.generics(n)
		return []symbol.Symbol{w.enum(n, prefix)}
	case "trait_item":
		w.generics(n)
		name := w.text(n.ChildByFieldName("name"))
		var members []symbol.Member
		for _, child := range namedChildren(n.ChildByFieldName("body")) {
			members = append(members, w.associated(child)...)
		}
		return []symbol.Symbol{symbol.NewType(symbol.KindClass, prefix, name, w.loc(n), members)}
	case "function_item", "function_signature_item":
		w.generics(n)
		fn := symbol.NewFunction(prefix, w.text(n.ChildByFieldName("name")), w.loc(n),
			typeAnnotation(w.text(n.ChildByFieldName("return_type"))), w.params(n.ChildByFieldName("parameters")))
		if n.Kind() == "function_signature_item" {
			fn = fn.AsDeclaration()
		}
		return []symbol.Symbol{fn}
	case "foreign_mod_item":
		var out []symbol.Symbol
		for _, child := range namedChildren(n.ChildByFieldName("body")) {
			out = append(out, w.item(child, prefix)...)
		}
		return out
	case "const_item", "static_item", "let_declaration":
		w.fail(n, reasonVariable)
		return nil
	case "type_item":
		w.fail(n, reasonAlias)
		return nil
	case "macro_definition":
		w.fail(n, reasonMacro)
		return nil
	case "use_declaration", "extern_crate_declaration", "attribute_item", "inner_attribute_item",
		"line_comment", "block_comment", "macro_invocation", "empty_statement":
		return nil
	default:
		w.fail(n, reasonUnhandled)
		return nil
	}
}

// generics records an error when n declares type parameters.
func (w *rustWalker) generics(n *sitter.Node) {
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		w.fail(tp, reasonGeneric)
	}
}

// fields extracts named and tuple struct fields. Tuple fields are named by index.
func (w *rustWalker) fields(body *sitter.Node) []symbol.Member {
	if body == nil {
		return nil
	}
	var out []symbol.Member
	switch body.Kind() {
	case "field_declaration_list":
		for _, f := range namedChildren(body) {
			if f.Kind() != "field_declaration" {
				continue
			}
			out = append(out, symbol.Member{
				Kind:     symbol.MemberField,
				Name:     w.text(f.ChildByFieldName("name")),
				Type:     squash(w.text(f.ChildByFieldName("type"))),
				Location: w.loc(f),
			})
		}
	case "ordered_field_declaration_list":
		for i, f := range childrenByField(body, "type") {
			out = append(out, symbol.Member{
				Kind:     symbol.MemberField,
				Name:     strconv.Itoa(i),
				Type:     squash(w.text(f)),
				Location: w.loc(f),
			})
		}
	}
	return out
}

func (w *rustWalker) enum(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	var names []string
	explicit := make(map[string]string)
	for _, v := range namedChildren(n.ChildByFieldName("body")) {
		if v.Kind() != "enum_variant" {
			continue
		}
		name := w.text(v.ChildByFieldName("name"))
		names = append(names, name)
		if value := v.ChildByFieldName("value"); value != nil {
			explicit[name] = squash(w.text(value))
		}
	}
	return symbol.NewEnum(prefix, w.text(n.ChildByFieldName("name")), w.loc(n), names, explicit)
}

// impl attaches the methods of an inherent impl block to its target struct.
// Trait impls are skipped: the trait already declares those methods.
func (w *rustWalker) impl(n *sitter.Node, siblings []symbol.Symbol) {
	if n.ChildByFieldName("trait") != nil {
		return
	}

	target := n.ChildByFieldName("type")
	if target == nil {
		w.fail(n, reasonImplTarget)
		return
	}
	name := w.text(target)
	if target.Kind() == "generic_type" {
		w.fail(target, reasonGeneric)
		name = w.text(target.ChildByFieldName("type"))
	}

	idx := -1
	for i := range siblings {
		if siblings[i].Name == name && siblings[i].Kind == symbol.KindStruct {
			idx = i
		}
	}
	if idx < 0 {
		w.fail(n, reasonImplTarget)
		return
	}

	for _, child := range namedChildren(n.ChildByFieldName("body")) {
		siblings[idx].Members = append(siblings[idx].Members, w.associated(child)...)
	}
}

// associated classifies one item of an impl or trait body.
func (w *rustWalker) associated(n *sitter.Node) []symbol.Member {
	switch n.Kind() {
	case "function_item", "function_signature_item":
		w.generics(n)
		m := symbol.Member{
			Name:       w.text(n.ChildByFieldName("name")),
			ReturnType: typeAnnotation(w.text(n.ChildByFieldName("return_type"))),
			Params:     w.params(n.ChildByFieldName("parameters")),
			Location:   w.loc(n),
		}
		self := findChildByType(n.ChildByFieldName("parameters"), "self_parameter")
		switch {
		case self == nil:
			m.Kind = symbol.MemberStaticMethod
			m.IsStatic = true
		default:
			m.Kind = symbol.MemberMethod
			receiver := squash(w.text(self))
			m.IsConst = strings.HasPrefix(receiver, "&") && !strings.Contains(receiver, "mut")
		}
		return []symbol.Member{m}
	case "const_item":
		return []symbol.Member{{
			Kind:     symbol.MemberField,
			Name:     w.text(n.ChildByFieldName("name")),
			Type:     squash(w.text(n.ChildByFieldName("type"))),
			IsStatic: true,
			Location: w.loc(n),
		}}
	case "associated_type", "type_item":
		w.fail(n, reasonAlias)
		return nil
	case "line_comment", "block_comment", "attribute_item", "macro_invocation":
		return nil
	default:
		w.fail(n, reasonUnhandled)
		return nil
	}
}

// params returns parameter type tokens. The self receiver is not a parameter.
func (w *rustWalker) params(list *sitter.Node) []string {
	var out []string
	for _, p := range namedChildren(list) {
		switch p.Kind() {
		case "parameter":
			out = append(out, squash(w.text(p.ChildByFieldName("type"))))
		case "variadic_parameter":
			out = append(out, "...")
		}
	}
	return out
}
