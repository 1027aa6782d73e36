package adapters

import (
	"context"
	"strings"

	"github.com/mvp-joe/symgraph/internal/symbol"
	sitter "github.com/tree-sitter/go-tree-sitter"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

var phpBodies = bodyKinds{
	"compound_statement": {"function_definition", "method_declaration", "anonymous_function"},
}

// phpAdapter extracts symbols from PHP files. Namespaces split on '\';
// a namespace statement without braces applies to every item after it.
type phpAdapter struct {
	*treeSitterParser
}

// NewPHPAdapter creates a PHP adapter.
func NewPHPAdapter() Adapter {
	lang := sitter.NewLanguage(php.LanguagePHP())
	return &phpAdapter{
		treeSitterParser: newTreeSitterParser(lang, LangPHP, phpBodies, ".php"),
	}
}

// Extract parses src and walks its program.
func (a *phpAdapter) Extract(ctx context.Context, src Source) (*Extraction, error) {
	tree, recovered, err := a.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &phpWalker{walker: newWalker(src, recovered)}

	var out []symbol.Symbol
	var open *sitter.Node // unbraced namespace in effect
	var openPath symbol.Path
	var pending []symbol.Symbol

	flush := func() {
		if open == nil {
			out = append(out, pending...)
		} else {
			out = append(out, wrapNamespaces(openPath, w.loc(open), pending))
		}
		pending = nil
	}

	for _, child := range namedChildren(tree.RootNode()) {
		if child.Kind() != "namespace_definition" {
			pending = append(pending, w.statement(child, openPath)...)
			continue
		}

		path := w.namespacePath(child)
		body := child.ChildByFieldName("body")
		if body != nil {
			flush()
			if len(path) == 0 {
				// Braced global namespace
				out = append(out, w.statements(body, nil)...)
			} else {
				out = append(out, wrapNamespaces(path, w.loc(child), w.statements(body, path)))
			}
			open, openPath = nil, nil
			continue
		}

		flush()
		open, openPath = child, path
	}
	flush()

	return w.result(a.lang, out), nil
}

type phpWalker struct {
	*walker
}

func (w *phpWalker) namespacePath(n *sitter.Node) symbol.Path {
	var path symbol.Path
	for _, seg := range strings.Split(w.text(n.ChildByFieldName("name")), `\`) {
		if seg = strings.TrimSpace(seg); seg != "" {
			path = path.Child(seg)
		}
	}
	return path
}

func (w *phpWalker) statements(container *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	var out []symbol.Symbol
	for _, child := range namedChildren(container) {
		out = append(out, w.statement(child, prefix)...)
	}
	return out
}

func (w *phpWalker) statement(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	switch n.Kind() {
	case "class_declaration", "interface_declaration", "trait_declaration":
		return []symbol.Symbol{w.class(n, prefix)}
	case "enum_declaration":
		return []symbol.Symbol{w.enum(n, prefix)}
	case "function_definition":
		return []symbol.Symbol{symbol.NewFunction(prefix, w.text(n.ChildByFieldName("name")), w.loc(n),
			squash(w.text(n.ChildByFieldName("return_type"))), w.params(n.ChildByFieldName("parameters")))}
	case "const_declaration":
		w.fail(n, reasonVariable)
		return nil
	default:
		// Tags, use statements, inline text and executable code declare nothing
		return nil
	}
}

func (w *phpWalker) class(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	var members []symbol.Member
	for _, item := range namedChildren(n.ChildByFieldName("body")) {
		members = append(members, w.member(item)...)
	}
	return symbol.NewType(symbol.KindClass, prefix, w.text(n.ChildByFieldName("name")), w.loc(n), members)
}

func (w *phpWalker) member(item *sitter.Node) []symbol.Member {
	static := hasChildKind(item, "static_modifier")
	switch item.Kind() {
	case "method_declaration":
		name := w.text(item.ChildByFieldName("name"))
		params := item.ChildByFieldName("parameters")
		m := symbol.Member{
			Name:     name,
			Params:   w.params(params),
			Location: w.loc(item),
		}
		switch {
		case strings.EqualFold(name, "__construct"):
			m.Kind = symbol.MemberConstructor
			return append([]symbol.Member{m}, w.promoted(params)...)
		case static:
			m.Kind = symbol.MemberStaticMethod
			m.IsStatic = true
		default:
			m.Kind = symbol.MemberMethod
		}
		m.ReturnType = squash(w.text(item.ChildByFieldName("return_type")))
		return []symbol.Member{m}
	case "property_declaration":
		fieldType := squash(w.text(item.ChildByFieldName("type")))
		var out []symbol.Member
		for _, el := range namedChildren(item) {
			if el.Kind() != "property_element" {
				continue
			}
			out = append(out, symbol.Member{
				Kind:     symbol.MemberField,
				Name:     strings.TrimPrefix(w.text(el.ChildByFieldName("name")), "$"),
				Type:     fieldType,
				IsStatic: static,
				Location: w.loc(item),
			})
		}
		return out
	case "const_declaration":
		var out []symbol.Member
		for _, el := range namedChildren(item) {
			if el.Kind() != "const_element" {
				continue
			}
			out = append(out, symbol.Member{
				Kind:     symbol.MemberField,
				Name:     w.text(findChildByType(el, "name")),
				IsStatic: true,
				Location: w.loc(el),
			})
		}
		return out
	case "use_declaration", "comment":
		return nil
	default:
		w.fail(item, reasonUnhandled)
		return nil
	}
}

// promoted returns the properties declared by constructor promotion.
func (w *phpWalker) promoted(list *sitter.Node) []symbol.Member {
	var out []symbol.Member
	for _, p := range namedChildren(list) {
		if p.Kind() != "property_promotion_parameter" {
			continue
		}
		out = append(out, symbol.Member{
			Kind:     symbol.MemberField,
			Name:     strings.TrimPrefix(w.text(p.ChildByFieldName("name")), "$"),
			Type:     squash(w.text(p.ChildByFieldName("type"))),
			Location: w.loc(p),
		})
	}
	return out
}

func (w *phpWalker) enum(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	var names []string
	explicit := make(map[string]string)
	for _, item := range namedChildren(n.ChildByFieldName("body")) {
		switch item.Kind() {
		case "enum_case":
			name := w.text(item.ChildByFieldName("name"))
			names = append(names, name)
			if value := item.ChildByFieldName("value"); value != nil {
				explicit[name] = squash(w.text(value))
			}
		case "method_declaration":
			w.fail(item, "enum members are not modelled")
		}
	}
	return symbol.NewEnum(prefix, w.text(n.ChildByFieldName("name")), w.loc(n), names, explicit)
}

// params returns the declared type of each parameter, "" when untyped.
func (w *phpWalker) params(list *sitter.Node) []string {
	var out []string
	for _, p := range namedChildren(list) {
		switch p.Kind() {
		case "simple_parameter", "property_promotion_parameter":
			out = append(out, squash(w.text(p.ChildByFieldName("type"))))
		case "variadic_parameter":
			out = append(out, "..."+squash(w.text(p.ChildByFieldName("type"))))
		}
	}
	return out
}
