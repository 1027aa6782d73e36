package adapters

import (
	"context"
	"strings"

	"github.com/mvp-joe/symgraph/internal/symbol"
	sitter "github.com/tree-sitter/go-tree-sitter"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
)

var attrMacros = map[string]bool{
	"attr_accessor": true,
	"attr_reader":   true,
	"attr_writer":   true,
}

var rubyBodies = bodyKinds{
	"body_statement": {"method", "singleton_method"},
	"do_block":       nil,
	"block":          nil,
}

// rubyAdapter extracts symbols from Ruby files. Modules map to namespaces;
// methods defined directly in a module or at file scope are functions.
type rubyAdapter struct {
	*treeSitterParser
}

// NewRubyAdapter creates a Ruby adapter.
func NewRubyAdapter() Adapter {
	lang := sitter.NewLanguage(ruby.Language())
	return &rubyAdapter{
		treeSitterParser: newTreeSitterParser(lang, LangRuby, rubyBodies, ".rb"),
	}
}

// Extract parses src and walks its program.
func (a *rubyAdapter) Extract(ctx context.Context, src Source) (*Extraction, error) {
	tree, recovered, err := a.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &rubyWalker{walker: newWalker(src, recovered)}
	return w.result(a.lang, w.statements(rubyBody(tree.RootNode()), nil)), nil
}

type rubyWalker struct {
	*walker
}

// rubyBody returns the statements of a program, module or class. Depending
// on the grammar version they sit directly under the node or inside a
// body_statement.
func rubyBody(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	if body := n.ChildByFieldName("body"); body != nil {
		return namedChildren(body)
	}
	name := n.ChildByFieldName("name")
	super := n.ChildByFieldName("superclass")
	var out []*sitter.Node
	for _, child := range namedChildren(n) {
		if sameNode(child, name) || sameNode(child, super) {
			continue
		}
		if child.Kind() == "body_statement" {
			out = append(out, namedChildren(child)...)
			continue
		}
		out = append(out, child)
	}
	return out
}

func (w *rubyWalker) statements(items []*sitter.Node, prefix symbol.Path) []symbol.Symbol {
	var out []symbol.Symbol
	for _, item := range items {
		out = append(out, w.statement(item, prefix)...)
	}
	return out
}

// constantPath splits `A::B` into segments; a leading `::` is dropped.
func (w *rubyWalker) constantPath(n *sitter.Node) []string {
	var out []string
	for _, seg := range strings.Split(w.text(n), "::") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func (w *rubyWalker) statement(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	switch n.Kind() {
	case "module":
		segments := w.constantPath(n.ChildByFieldName("name"))
		if len(segments) == 0 {
			return nil
		}
		path := prefix
		for _, seg := range segments {
			path = path.Child(seg)
		}
		ns := symbol.NewNamespace(path.Parent(), path.Name(), w.loc(n), w.statements(rubyBody(n), path))
		for i := len(path) - 1; i > len(prefix); i-- {
			ns = symbol.NewNamespace(path[:i].Parent(), path[i-1], w.loc(n), []symbol.Symbol{ns})
		}
		return []symbol.Symbol{ns}
	case "class":
		return w.class(n, prefix)
	case "method", "singleton_method":
		return []symbol.Symbol{symbol.NewFunction(prefix, w.text(n.ChildByFieldName("name")), w.loc(n), "",
			w.params(n.ChildByFieldName("parameters")))}
	case "assignment":
		if left := n.ChildByFieldName("left"); left != nil && left.Kind() == "constant" {
			w.fail(n, reasonVariable)
		}
		return nil
	default:
		// Requires, comments and executable code declare nothing
		return nil
	}
}

// class extracts a class. `class A::B` places B inside namespaces for A.
func (w *rubyWalker) class(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	segments := w.constantPath(n.ChildByFieldName("name"))
	if len(segments) == 0 {
		return nil
	}
	path := prefix
	for _, seg := range segments {
		path = path.Child(seg)
	}

	var members []symbol.Member
	for _, item := range rubyBody(n) {
		members = append(members, w.member(item, false)...)
	}

	sym := symbol.NewType(symbol.KindClass, path.Parent(), path.Name(), w.loc(n), members)
	for i := len(path) - 1; i > len(prefix); i-- {
		sym = symbol.NewNamespace(path[:i].Parent(), path[i-1], w.loc(n), []symbol.Symbol{sym})
	}
	return []symbol.Symbol{sym}
}

// member classifies one class body statement. singleton is set inside
// `class << self`, where every method belongs to the class object.
func (w *rubyWalker) member(item *sitter.Node, singleton bool) []symbol.Member {
	switch item.Kind() {
	case "method":
		name := w.text(item.ChildByFieldName("name"))
		m := symbol.Member{
			Name:     name,
			Params:   w.params(item.ChildByFieldName("parameters")),
			Location: w.loc(item),
		}
		switch {
		case singleton:
			m.Kind = symbol.MemberStaticMethod
			m.IsStatic = true
		case name == "initialize":
			m.Kind = symbol.MemberConstructor
		default:
			m.Kind = symbol.MemberMethod
		}
		return []symbol.Member{m}
	case "singleton_method":
		return []symbol.Member{{
			Kind:     symbol.MemberStaticMethod,
			Name:     w.text(item.ChildByFieldName("name")),
			Params:   w.params(item.ChildByFieldName("parameters")),
			IsStatic: true,
			Location: w.loc(item),
		}}
	case "singleton_class":
		var out []symbol.Member
		for _, inner := range rubyBody(item) {
			out = append(out, w.member(inner, true)...)
		}
		return out
	case "call":
		return w.attributes(item)
	case "assignment":
		left := item.ChildByFieldName("left")
		if left == nil || left.Kind() != "constant" {
			return nil
		}
		return []symbol.Member{{
			Kind:     symbol.MemberField,
			Name:     w.text(left),
			IsStatic: true,
			Location: w.loc(item),
		}}
	case "class", "module":
		w.fail(item, reasonNested)
		return nil
	default:
		return nil
	}
}

// attributes expands attr_accessor style macros into fields.
func (w *rubyWalker) attributes(call *sitter.Node) []symbol.Member {
	method := call.ChildByFieldName("method")
	if method == nil || !attrMacros[w.text(method)] || call.ChildByFieldName("receiver") != nil {
		return nil
	}
	var out []symbol.Member
	for _, arg := range namedChildren(call.ChildByFieldName("arguments")) {
		if arg.Kind() != "simple_symbol" {
			continue
		}
		out = append(out, symbol.Member{
			Kind:     symbol.MemberField,
			Name:     strings.TrimPrefix(w.text(arg), ":"),
			Location: w.loc(call),
		})
	}
	return out
}

// params returns one token per parameter. Ruby parameters are untyped, so
// only splat and block markers are recorded.
func (w *rubyWalker) params(list *sitter.Node) []string {
	var out []string
	for _, p := range namedChildren(list) {
		switch p.Kind() {
		case "splat_parameter":
			out = append(out, "*")
		case "hash_splat_parameter":
			out = append(out, "**")
		case "block_parameter":
			out = append(out, "&")
		case "identifier", "optional_parameter", "keyword_parameter", "destructured_parameter":
			out = append(out, "")
		}
	}
	return out
}
