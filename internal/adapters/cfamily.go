package adapters

import (
	"context"
	"slices"
	"strings"

	"github.com/mvp-joe/symgraph/internal/symbol"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	reasonTemplate  = "template parameters are not modelled"
	reasonVariable  = "variables are not modelled"
	reasonAlias     = "type aliases are not modelled"
	reasonNested    = "nested types are not modelled"
	reasonUnhandled = "unsupported declaration"
)

var cFamilyBodies = bodyKinds{"compound_statement": nil}

// cFamilyAdapter extracts symbols from C and C++ trees. The two grammars
// share node kinds for everything the symbol model covers.
type cFamilyAdapter struct {
	*treeSitterParser
}

// Extract parses src and walks its translation unit.
func (a *cFamilyAdapter) Extract(ctx context.Context, src Source) (*Extraction, error) {
	tree, recovered, err := a.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	// Blanking an export macro can expose a class-body macro, hence the passes.
	for range macroPasses {
		spans := macroSpans(tree.RootNode(), src.Text)
		if len(spans) == 0 {
			break
		}
		tree.Close()
		src.Text = blankSpans(src.Text, spans)
		if tree, recovered, err = a.parse(ctx, src); err != nil {
			return nil, err
		}
	}
	defer tree.Close()

	w := &cFamilyWalker{walker: newWalker(src, recovered)}
	symbols := w.declarations(tree.RootNode(), nil)

	return w.result(a.lang, symbols), nil
}

const macroPasses = 3

// accessLabels are the words a class-body macro such as Q_OBJECT swallows
// as a field name when it precedes an access specifier.
var accessLabels = map[string]bool{
	"public": true, "protected": true, "private": true,
	"signals": true, "slots": true, "Q_SIGNALS": true, "Q_SLOTS": true,
}

// macroSpans finds object-like macros the grammar cannot see through:
// export macros between the class keyword and the class name, which turn
// the class into a function definition, and bare macros ahead of an access
// specifier, which turn the specifier into a field.
func macroSpans(root *sitter.Node, src []byte) [][2]uint {
	var spans [][2]uint
	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			typ := n.ChildByFieldName("type")
			decl := n.ChildByFieldName("declarator")
			body := n.ChildByFieldName("body")
			if typ == nil || decl == nil || body == nil {
				return true
			}
			switch typ.Kind() {
			case "class_specifier", "struct_specifier", "union_specifier":
			default:
				return true
			}
			name := typ.ChildByFieldName("name")
			if name != nil && typ.ChildByFieldName("body") == nil &&
				decl.Kind() == "identifier" && body.Kind() == "compound_statement" {
				spans = append(spans, [2]uint{name.StartByte(), name.EndByte()})
				return false
			}
		case "field_declaration":
			typ := n.ChildByFieldName("type")
			decl := n.ChildByFieldName("declarator")
			if typ != nil && decl != nil && typ.Kind() == "type_identifier" &&
				decl.Kind() == "field_identifier" && accessLabels[extractNodeText(decl, src)] {
				spans = append(spans, [2]uint{typ.StartByte(), typ.EndByte()})
			}
		}
		return true
	})
	return spans
}

// blankSpans returns a copy of src with each span overwritten by spaces,
// so byte offsets and line numbers are unchanged.
func blankSpans(src []byte, spans [][2]uint) []byte {
	out := slices.Clone(src)
	for _, span := range spans {
		for i := span[0]; i < span[1]; i++ {
			out[i] = ' '
		}
	}
	return out
}

type cFamilyWalker struct {
	*walker
}

// callable describes a function declarator.
type callable struct {
	name      string
	nameKind  string
	params    []string
	isConst   bool
	decor     string // pointer/reference decoration applied to the return type
	trailing  string // trailing return type, if any
	fnPointer bool   // declarator names a pointer to function, not a function
}

// declarations extracts every item of a translation unit or declaration list.
func (w *cFamilyWalker) declarations(container *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	var out []symbol.Symbol
	for _, child := range namedChildren(container) {
		out = append(out, w.declaration(child, prefix)...)
	}
	return out
}

func (w *cFamilyWalker) declaration(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	switch n.Kind() {
	case "namespace_definition":
		return []symbol.Symbol{w.namespace(n, prefix)}
	case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		return w.specifier(n, prefix, "")
	case "function_definition":
		return w.function(n, prefix)
	case "declaration":
		return w.plainDeclaration(n, prefix)
	case "type_definition":
		return w.typedef(n, prefix)
	case "template_declaration":
		w.fail(n, reasonTemplate)
		var out []symbol.Symbol
		for _, child := range namedChildren(n) {
			if child.Kind() == "template_parameter_list" {
				continue
			}
			out = append(out, w.declaration(child, prefix)...)
		}
		return out
	case "linkage_specification":
		body := n.ChildByFieldName("body")
		if body == nil {
			return nil
		}
		if body.Kind() == "declaration_list" {
			return w.declarations(body, prefix)
		}
		return w.declaration(body, prefix)
	case "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "preproc_elifdef":
		var out []symbol.Symbol
		for _, child := range conditionalBody(n) {
			out = append(out, w.declaration(child, prefix)...)
		}
		return out
	case "alias_declaration", "namespace_alias_definition":
		w.fail(n, reasonAlias)
		return nil
	case "comment", "preproc_include", "preproc_def", "preproc_function_def", "preproc_call",
		"using_declaration", "static_assert_declaration", "expression_statement", "attributed_statement":
		return nil
	default:
		w.fail(n, reasonUnhandled)
		return nil
	}
}

// conditionalBody returns the items guarded by a preprocessor conditional,
// skipping its name or condition.
func conditionalBody(n *sitter.Node) []*sitter.Node {
	name := n.ChildByFieldName("name")
	cond := n.ChildByFieldName("condition")
	var out []*sitter.Node
	for _, child := range namedChildren(n) {
		if sameNode(child, name) || sameNode(child, cond) {
			continue
		}
		out = append(out, child)
	}
	return out
}

// namespace maps `namespace a::b { ... }` onto one namespace per segment.
func (w *cFamilyWalker) namespace(n *sitter.Node, prefix symbol.Path) symbol.Symbol {
	var segments []string
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		for _, seg := range strings.Split(w.text(nameNode), "::") {
			seg = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(seg), "inline "))
			if seg != "" {
				segments = append(segments, seg)
			}
		}
	}
	if len(segments) == 0 {
		segments = []string{w.anonymous(n)}
	}
	return w.nestedNamespace(n, prefix, segments)
}

func (w *cFamilyWalker) nestedNamespace(n *sitter.Node, prefix symbol.Path, segments []string) symbol.Symbol {
	path := prefix.Child(segments[0])
	var children []symbol.Symbol
	if len(segments) > 1 {
		children = []symbol.Symbol{w.nestedNamespace(n, path, segments[1:])}
	} else {
		children = w.declarations(n.ChildByFieldName("body"), path)
	}
	return symbol.NewNamespace(prefix, segments[0], w.loc(n), children)
}

// specifier extracts a class, struct, union or enum specifier.
// fallback names an anonymous specifier introduced by a typedef.
func (w *cFamilyWalker) specifier(n *sitter.Node, prefix symbol.Path, fallback string) []symbol.Symbol {
	name := fallback
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = w.specifierName(nameNode)
	}
	if name == "" {
		name = w.anonymous(n)
	}

	body := n.ChildByFieldName("body")
	loc := w.loc(n)

	if n.Kind() == "enum_specifier" {
		if body == nil {
			return []symbol.Symbol{symbol.NewEnum(prefix, name, loc, nil, nil).AsDeclaration()}
		}
		names, explicit := w.enumerators(body)
		return []symbol.Symbol{symbol.NewEnum(prefix, name, loc, names, explicit)}
	}

	kind := symbol.KindStruct
	if n.Kind() == "class_specifier" {
		kind = symbol.KindClass
	}
	if body == nil {
		return []symbol.Symbol{symbol.NewType(kind, prefix, name, loc, nil).AsDeclaration()}
	}
	return []symbol.Symbol{symbol.NewType(kind, prefix, name, loc, w.members(body, name))}
}

// specifierName resolves the written name of a type specifier.
func (w *cFamilyWalker) specifierName(nameNode *sitter.Node) string {
	switch nameNode.Kind() {
	case "template_type":
		w.fail(nameNode, reasonTemplate)
		return w.text(nameNode.ChildByFieldName("name"))
	case "qualified_type_identifier":
		parts := strings.Split(w.text(nameNode), "::")
		return strings.TrimSpace(parts[len(parts)-1])
	default:
		return w.text(nameNode)
	}
}

func (w *cFamilyWalker) enumerators(body *sitter.Node) ([]string, map[string]string) {
	var names []string
	explicit := make(map[string]string)
	seen := make(map[string]bool)
	for _, e := range namedChildren(body) {
		if e.Kind() != "enumerator" {
			continue
		}
		nameNode := e.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := w.text(nameNode)
		if seen[name] {
			w.fail(e, "duplicate enumerator")
			continue
		}
		seen[name] = true
		names = append(names, name)
		if value := e.ChildByFieldName("value"); value != nil {
			explicit[name] = squash(w.text(value))
		}
	}
	return names, explicit
}

// members extracts a class or struct body in declaration order.
func (w *cFamilyWalker) members(body *sitter.Node, typeName string) []symbol.Member {
	var out []symbol.Member
	for _, item := range namedChildren(body) {
		out = append(out, w.memberItem(item, typeName)...)
	}
	return out
}

func (w *cFamilyWalker) memberItem(item *sitter.Node, typeName string) []symbol.Member {
	switch item.Kind() {
	case "field_declaration", "declaration", "function_definition":
		return w.memberDeclaration(item, typeName)
	case "template_declaration":
		w.fail(item, reasonTemplate)
		var out []symbol.Member
		for _, child := range namedChildren(item) {
			if child.Kind() == "template_parameter_list" {
				continue
			}
			out = append(out, w.memberItem(child, typeName)...)
		}
		return out
	case "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "preproc_elifdef":
		var out []symbol.Member
		for _, child := range conditionalBody(item) {
			out = append(out, w.memberItem(child, typeName)...)
		}
		return out
	case "alias_declaration", "type_definition":
		w.fail(item, reasonAlias)
		return nil
	case "access_specifier", "comment", "friend_declaration", "using_declaration",
		"static_assert_declaration", "preproc_include", "preproc_def", "preproc_function_def", "preproc_call":
		return nil
	default:
		w.fail(item, reasonUnhandled)
		return nil
	}
}

// memberDeclaration classifies every declarator of a member declaration.
func (w *cFamilyWalker) memberDeclaration(item *sitter.Node, typeName string) []symbol.Member {
	typeNode := item.ChildByFieldName("type")
	if typeNode != nil && hasSpecifierBody(typeNode) {
		w.fail(typeNode, reasonNested)
	}
	static := w.isStatic(item)

	var out []symbol.Member
	for _, d := range childrenByField(item, "declarator") {
		if d.Kind() == "operator_cast" {
			w.fail(d, "conversion operators are not modelled")
			continue
		}

		if c, ok := w.callableOf(d); ok && !c.fnPointer {
			if strings.HasPrefix(c.name, "~") {
				continue
			}
			m := symbol.Member{
				Name:     c.name,
				Params:   c.params,
				IsConst:  c.isConst,
				IsStatic: static,
				Location: w.loc(item),
			}
			switch {
			case typeNode == nil && c.name == typeName:
				m.Kind = symbol.MemberConstructor
			case static:
				m.Kind = symbol.MemberStaticMethod
				m.ReturnType = w.returnToken(item, c)
			default:
				m.Kind = symbol.MemberMethod
				m.ReturnType = w.returnToken(item, c)
			}
			out = append(out, m)
			continue
		}

		name, fieldType := w.fieldOf(item, d)
		if name == "" {
			continue
		}
		out = append(out, symbol.Member{
			Kind:     symbol.MemberField,
			Name:     name,
			Type:     fieldType,
			IsStatic: static,
			Location: w.loc(item),
		})
	}
	return out
}

// function extracts a function definition outside any type body.
func (w *cFamilyWalker) function(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	c, ok := w.callableOf(n.ChildByFieldName("declarator"))
	if !ok {
		w.fail(n, "function definition without a declarator")
		return nil
	}
	switch c.nameKind {
	case "identifier", "field_identifier", "operator_name":
		return []symbol.Symbol{symbol.NewFunction(prefix, c.name, w.loc(n), w.returnToken(n, c), c.params)}
	case "qualified_identifier":
		// Out-of-line definitions of members declared elsewhere.
		return nil
	default:
		w.fail(n, reasonUnhandled)
		return nil
	}
}

// plainDeclaration handles prototypes, type specifiers with bodies and variables.
func (w *cFamilyWalker) plainDeclaration(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	var out []symbol.Symbol
	if typeNode := n.ChildByFieldName("type"); typeNode != nil && hasSpecifierBody(typeNode) {
		out = append(out, w.specifier(typeNode, prefix, "")...)
	}

	for _, d := range childrenByField(n, "declarator") {
		c, ok := w.callableOf(d)
		if ok && !c.fnPointer {
			switch c.nameKind {
			case "identifier", "field_identifier", "operator_name":
				fn := symbol.NewFunction(prefix, c.name, w.loc(n), w.returnToken(n, c), c.params)
				out = append(out, fn.AsDeclaration())
				continue
			case "qualified_identifier":
				continue
			}
		}
		w.fail(d, reasonVariable)
	}
	return out
}

// typedef extracts the specifier of `typedef struct {...} Name;`.
func (w *cFamilyWalker) typedef(n *sitter.Node, prefix symbol.Path) []symbol.Symbol {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil || !hasSpecifierBody(typeNode) {
		w.fail(n, reasonAlias)
		return nil
	}

	fallback := ""
	if ds := childrenByField(n, "declarator"); len(ds) > 0 {
		if inner, _ := w.unwrapDeclarator(ds[0]); inner != nil {
			fallback = w.text(inner)
		}
	}
	return w.specifier(typeNode, prefix, fallback)
}

// hasSpecifierBody reports whether n is a class/struct/union/enum specifier with a body.
func hasSpecifierBody(n *sitter.Node) bool {
	switch n.Kind() {
	case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		return n.ChildByFieldName("body") != nil
	}
	return false
}

func (w *cFamilyWalker) isStatic(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(uint(i))
		if child.Kind() == "storage_class_specifier" && w.text(child) == "static" {
			return true
		}
	}
	return false
}

// unwrapDeclarator peels pointer, reference, array and init wrappers off a
// declarator and returns the innermost one with the decoration it carried.
func (w *cFamilyWalker) unwrapDeclarator(d *sitter.Node) (*sitter.Node, string) {
	decor := ""
	for d != nil {
		switch d.Kind() {
		case "pointer_declarator", "abstract_pointer_declarator":
			decor += "*"
			d = d.ChildByFieldName("declarator")
		case "reference_declarator", "abstract_reference_declarator":
			if strings.HasPrefix(w.text(d), "&&") {
				decor += "&&"
			} else {
				decor += "&"
			}
			d = firstNamed(d)
		case "array_declarator", "abstract_array_declarator":
			decor += "[]"
			d = d.ChildByFieldName("declarator")
		case "init_declarator", "attributed_declarator":
			d = d.ChildByFieldName("declarator")
			if d == nil {
				return nil, decor
			}
		default:
			return d, decor
		}
	}
	return nil, decor
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if n == nil || n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

// callableOf inspects a declarator and reports whether it declares a function.
func (w *cFamilyWalker) callableOf(d *sitter.Node) (callable, bool) {
	fn, decor := w.unwrapDeclarator(d)
	if fn == nil || fn.Kind() != "function_declarator" {
		return callable{}, false
	}

	c := callable{decor: decor}
	inner := fn.ChildByFieldName("declarator")
	if inner != nil && inner.Kind() == "parenthesized_declarator" {
		c.fnPointer = true
	}
	if inner != nil {
		c.name = squash(w.text(inner))
		c.nameKind = inner.Kind()
	}
	c.params = w.params(fn.ChildByFieldName("parameters"))

	for i := 0; i < int(fn.ChildCount()); i++ {
		child := fn.Child(uint(i))
		switch child.Kind() {
		case "type_qualifier":
			if w.text(child) == "const" {
				c.isConst = true
			}
		case "trailing_return_type":
			c.trailing = typeAnnotation(w.text(child))
		}
	}
	return c, true
}

// params returns the verbatim type token of each parameter.
func (w *cFamilyWalker) params(list *sitter.Node) []string {
	if list == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(list.ChildCount()); i++ {
		p := list.Child(uint(i))
		if !p.IsNamed() {
			// C-style variadics are a bare token
			if p.Kind() == "..." {
				out = append(out, "...")
			}
			continue
		}
		switch p.Kind() {
		case "parameter_declaration", "optional_parameter_declaration":
			out = append(out, w.typeToken(p, p.ChildByFieldName("declarator")))
		case "variadic_parameter_declaration":
			out = append(out, w.typeToken(p, nil)+"...")
		case "variadic_parameter":
			out = append(out, "...")
		}
	}
	// f(void) declares no parameters
	if len(out) == 1 && out[0] == "void" {
		return nil
	}
	return out
}

// baseType returns the declared type of n with any leading qualifiers.
func (w *cFamilyWalker) baseType(n *sitter.Node) string {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return ""
	}
	var parts []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(uint(i))
		if child.StartByte() >= typeNode.StartByte() {
			break
		}
		if child.Kind() == "type_qualifier" {
			parts = append(parts, w.text(child))
		}
	}
	parts = append(parts, w.text(typeNode))
	return squash(strings.Join(parts, " "))
}

// typeToken combines the base type of n with the decoration of declarator.
func (w *cFamilyWalker) typeToken(n *sitter.Node, declarator *sitter.Node) string {
	_, decor := w.unwrapDeclarator(declarator)
	return w.baseType(n) + decor
}

func (w *cFamilyWalker) returnToken(n *sitter.Node, c callable) string {
	base := w.baseType(n)
	if c.trailing != "" && (base == "auto" || base == "") {
		return c.trailing
	}
	return base + c.decor
}

// fieldOf resolves the name and type token of a data member declarator.
func (w *cFamilyWalker) fieldOf(item *sitter.Node, d *sitter.Node) (string, string) {
	inner, decor := w.unwrapDeclarator(d)
	if inner == nil {
		return "", ""
	}
	if inner.Kind() == "function_declarator" {
		// Pointer to function: int (*cb)(int)
		target, _ := w.unwrapDeclarator(firstNamed(inner.ChildByFieldName("declarator")))
		if target == nil {
			return "", ""
		}
		params := inner.ChildByFieldName("parameters")
		return w.text(target), squash(w.baseType(item) + decor + " (*)" + w.text(params))
	}
	return w.text(inner), w.baseType(item) + decor
}
