package adapters

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/symgraph/internal/symbol"
	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// enumBases are the standard library bases that turn a class into an enum.
var enumBases = map[string]bool{
	"Enum": true, "IntEnum": true, "StrEnum": true, "Flag": true, "IntFlag": true,
	"enum.Enum": true, "enum.IntEnum": true, "enum.StrEnum": true, "enum.Flag": true, "enum.IntFlag": true,
}

var pythonBodies = bodyKinds{"block": {"function_definition"}}

// pythonAdapter extracts symbols from Python files. Every file is wrapped
// in one namespace per segment of its dotted module path; a package's
// __init__.py takes the package path.
type pythonAdapter struct {
	*treeSitterParser
}

// NewPythonAdapter creates a Python adapter.
func NewPythonAdapter() Adapter {
	lang := sitter.NewLanguage(python.Language())
	return &pythonAdapter{
		treeSitterParser: newTreeSitterParser(lang, LangPython, pythonBodies, ".py", ".pyi"),
	}
}

// Extract parses src and walks its module.
func (a *pythonAdapter) Extract(ctx context.Context, src Source) (*Extraction, error) {
	tree, recovered, err := a.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &pythonWalker{walker: newWalker(src, recovered)}
	root := tree.RootNode()

	prefix := modulePath(src)

	var items []symbol.Symbol
	for _, child := range namedChildren(root) {
		items = append(items, w.statement(child, prefix)...)
	}
	return w.result(a.lang, []symbol.Symbol{wrapNamespaces(prefix, w.loc(root), items)}), nil
}

// modulePath derives the dotted module path of src, one segment per package.
// Without a project-relative path only the module's own name is known.
func modulePath(src Source) symbol.Path {
	if src.Rel == "" {
		return symbol.Path{moduleName(src.Path)}
	}
	rel := path.Clean(src.Rel)
	segs := relDirs(rel)
	base := path.Base(rel)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem != "__init__" || len(segs) == 0 {
		segs = append(segs, stem)
	}
	return symbol.Path(segs)
}

// relDirs splits the directory part of a slash path into segments.
func relDirs(rel string) []string {
	dir := path.Dir(rel)
	if dir == "." || dir == "/" {
		return nil
	}
	return strings.Split(strings.Trim(dir, "/"), "/")
}

// moduleName derives the module segment from a file path.
func moduleName(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "__init__" {
		if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != string(filepath.Separator) {
			return dir
		}
	}
	return stem
}

type pythonWalker struct {
	*walker
}

func (w *pythonWalker) statement(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	switch n.Kind() {
	case "class_definition":
		return []symbol.Symbol{w.class(n, prefix)}
	case "function_definition":
		w.generics(n)
		return []symbol.Symbol{symbol.NewFunction(prefix, w.text(n.ChildByFieldName("name")), w.loc(n),
			typeAnnotation(w.text(n.ChildByFieldName("return_type"))), w.params(n.ChildByFieldName("parameters"), false))}
	case "decorated_definition":
		return w.statement(n.ChildByFieldName("definition"), prefix)
	case "expression_statement":
		if isAssignment(n) {
			w.fail(n, reasonVariable)
		}
		return nil
	case "type_alias_statement":
		w.fail(n, reasonAlias)
		return nil
	default:
		// Imports, comments and executable statements declare nothing
		return nil
	}
}

func isAssignment(stmt *sitter.Node) bool {
	first := firstNamed(stmt)
	return first != nil && (first.Kind() == "assignment" || first.Kind() == "augmented_assignment")
}

func (w *pythonWalker) generics(n *sitter.Node) {
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		w.fail(tp, reasonGeneric)
	}
}

func (w *pythonWalker) class(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	w.generics(n)
	name := w.text(n.ChildByFieldName("name"))
	body := n.ChildByFieldName("body")

	if w.isEnum(n) {
		var names []string
		explicit := make(map[string]string)
		for _, stmt := range namedChildren(body) {
			if stmt.Kind() != "expression_statement" || !isAssignment(stmt) {
				continue
			}
			assign := firstNamed(stmt)
			left := w.text(assign.ChildByFieldName("left"))
			names = append(names, left)
			if right := assign.ChildByFieldName("right"); right != nil {
				explicit[left] = squash(w.text(right))
			}
		}
		return symbol.NewEnum(prefix, name, w.loc(n), names, explicit)
	}

	var members []symbol.Member
	for _, stmt := range namedChildren(body) {
		members = append(members, w.member(stmt)...)
	}
	return symbol.NewType(symbol.KindClass, prefix, name, w.loc(n), w.instanceFields(body, members))
}

func (w *pythonWalker) isEnum(n *sitter.Node) bool {
	for _, base := range namedChildren(n.ChildByFieldName("superclasses")) {
		if enumBases[w.text(base)] {
			return true
		}
	}
	return false
}

func (w *pythonWalker) member(stmt *sitter.Node) []symbol.Member {
	switch stmt.Kind() {
	case "function_definition":
		return []symbol.Member{w.method(stmt, nil)}
	case "decorated_definition":
		def := stmt.ChildByFieldName("definition")
		if def == nil || def.Kind() != "function_definition" {
			w.fail(stmt, reasonNested)
			return nil
		}
		return []symbol.Member{w.method(def, w.decorators(stmt))}
	case "expression_statement":
		if !isAssignment(stmt) {
			return nil
		}
		assign := firstNamed(stmt)
		left := assign.ChildByFieldName("left")
		if left == nil || left.Kind() != "identifier" {
			return nil
		}
		return []symbol.Member{{
			Kind:     symbol.MemberField,
			Name:     w.text(left),
			Type:     squash(w.text(assign.ChildByFieldName("type"))),
			Location: w.loc(stmt),
		}}
	case "class_definition":
		w.fail(stmt, reasonNested)
		return nil
	default:
		return nil
	}
}

func (w *pythonWalker) decorators(n *sitter.Node) []string {
	var out []string
	for _, d := range namedChildren(n) {
		if d.Kind() == "decorator" {
			out = append(out, strings.TrimSpace(strings.TrimPrefix(w.text(d), "@")))
		}
	}
	return out
}

func (w *pythonWalker) method(def *sitter.Node, decorators []string) symbol.Member {
	w.generics(def)
	m := symbol.Member{
		Name:       w.text(def.ChildByFieldName("name")),
		ReturnType: typeAnnotation(w.text(def.ChildByFieldName("return_type"))),
		Location:   w.loc(def),
	}
	switch {
	case m.Name == "__init__":
		m.Kind = symbol.MemberConstructor
		m.ReturnType = ""
		m.Params = w.params(def.ChildByFieldName("parameters"), true)
	case hasDecorator(decorators, "staticmethod"):
		m.Kind = symbol.MemberStaticMethod
		m.IsStatic = true
		m.Params = w.params(def.ChildByFieldName("parameters"), false)
	case hasDecorator(decorators, "classmethod"):
		m.Kind = symbol.MemberStaticMethod
		m.IsStatic = true
		m.Params = w.params(def.ChildByFieldName("parameters"), true)
	default:
		m.Kind = symbol.MemberMethod
		m.Params = w.params(def.ChildByFieldName("parameters"), true)
	}
	return m
}

func hasDecorator(decorators []string, name string) bool {
	for _, d := range decorators {
		if d == name {
			return true
		}
	}
	return false
}

// instanceFields appends `self.x = ...` assignments made directly in
// __init__ that are not already declared at class level.
func (w *pythonWalker) instanceFields(body *sitter.Node, members []symbol.Member) []symbol.Member {
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		seen[m.Name] = true
	}

	for _, stmt := range namedChildren(body) {
		def := stmt
		if def.Kind() == "decorated_definition" {
			def = def.ChildByFieldName("definition")
		}
		if def == nil || def.Kind() != "function_definition" || w.text(def.ChildByFieldName("name")) != "__init__" {
			continue
		}
		for _, inner := range namedChildren(def.ChildByFieldName("body")) {
			if inner.Kind() != "expression_statement" || !isAssignment(inner) {
				continue
			}
			assign := firstNamed(inner)
			left := assign.ChildByFieldName("left")
			if left == nil || left.Kind() != "attribute" || w.text(left.ChildByFieldName("object")) != "self" {
				continue
			}
			name := w.text(left.ChildByFieldName("attribute"))
			if seen[name] {
				continue
			}
			seen[name] = true
			members = append(members, symbol.Member{
				Kind:     symbol.MemberField,
				Name:     name,
				Type:     squash(w.text(assign.ChildByFieldName("type"))),
				Location: w.loc(inner),
			})
		}
	}
	return members
}

// params returns the annotation of each parameter, "" when unannotated.
// skipReceiver drops the leading self or cls parameter.
func (w *pythonWalker) params(list *sitter.Node, skipReceiver bool) []string {
	var out []string
	for i, p := range namedChildren(list) {
		if skipReceiver && i == 0 {
			continue
		}
		switch p.Kind() {
		case "identifier", "default_parameter":
			out = append(out, "")
		case "typed_parameter", "typed_default_parameter":
			token := squash(w.text(p.ChildByFieldName("type")))
			if inner := firstNamed(p); inner != nil {
				switch inner.Kind() {
				case "list_splat_pattern":
					token = "*" + token
				case "dictionary_splat_pattern":
					token = "**" + token
				}
			}
			out = append(out, token)
		case "list_splat_pattern":
			out = append(out, "*")
		case "dictionary_splat_pattern":
			out = append(out, "**")
		}
	}
	return out
}
