package adapters

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/mvp-joe/symgraph/internal/symbol"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// treeSitterParser provides the parsing half shared by every adapter.
type treeSitterParser struct {
	language   *sitter.Language
	lang       Language
	extensions []string
	bodies     bodyKinds
}

// bodyKinds maps the kind of an executable body to the parent kinds it must
// sit under. A nil parent list matches any parent. Syntax errors inside such
// a body never reach the symbol model, so they do not fail the file.
type bodyKinds map[string][]string

// newTreeSitterParser creates a parser for the given grammar.
func newTreeSitterParser(language *sitter.Language, lang Language, bodies bodyKinds, extensions ...string) *treeSitterParser {
	return &treeSitterParser{
		language:   language,
		lang:       lang,
		extensions: extensions,
		bodies:     bodies,
	}
}

func (p *treeSitterParser) Language() Language {
	return p.lang
}

func (p *treeSitterParser) Extensions() []string {
	return slices.Clone(p.extensions)
}

// parse builds a syntax tree for src. ERROR or MISSING nodes at declaration
// level reject the file with a *ParseError pointing at the first one. Those
// nested in an executable body are returned as ExtractionErrors and the tree
// is kept. The caller owns the returned tree and must Close it.
func (p *treeSitterParser) parse(ctx context.Context, src Source) (*sitter.Tree, []*ExtractionError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, nil, fmt.Errorf("failed to set %s language: %w", p.lang, err)
	}

	tree := parser.Parse(src.Text, nil)
	if tree == nil {
		return nil, nil, &ParseError{File: src.Path, Reason: fmt.Sprintf("failed to parse %s file", p.lang)}
	}

	root := tree.RootNode()
	if !root.HasError() {
		return tree, nil, nil
	}

	var recovered []*ExtractionError
	for _, bad := range errorNodes(root) {
		pos := bad.StartPosition()
		reason := syntaxReason(bad, src.Text)
		if !p.insideBody(bad) {
			tree.Close()
			return nil, nil, &ParseError{
				File:   src.Path,
				Line:   int(pos.Row) + 1,
				Column: int(pos.Column) + 1,
				Reason: reason,
			}
		}
		recovered = append(recovered, &ExtractionError{
			Location:  symbol.Location{File: src.Path, Line: int(pos.Row) + 1},
			Construct: bad.Kind(),
			Reason:    reason,
		})
	}
	if len(recovered) == 0 {
		tree.Close()
		return nil, nil, &ParseError{File: src.Path, Reason: "syntax error"}
	}

	return tree, recovered, nil
}

// insideBody reports whether n has an executable body among its ancestors.
func (p *treeSitterParser) insideBody(n *sitter.Node) bool {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		parents, ok := p.bodies[cur.Kind()]
		if !ok {
			continue
		}
		if parents == nil {
			return true
		}
		if up := cur.Parent(); up != nil && slices.Contains(parents, up.Kind()) {
			return true
		}
	}
	return false
}

// errorNodes returns the outermost ERROR and MISSING nodes in document order.
func errorNodes(node *sitter.Node) []*sitter.Node {
	var found []*sitter.Node
	walkTree(node, func(n *sitter.Node) bool {
		if n.IsError() || n.IsMissing() {
			found = append(found, n)
			return false
		}
		return n.HasError()
	})
	return found
}

func syntaxReason(n *sitter.Node, src []byte) string {
	if n.IsMissing() {
		return fmt.Sprintf("missing %s", n.Kind())
	}
	return fmt.Sprintf("unexpected %q", firstLine(extractNodeText(n, src)))
}

// walker carries per-file state while an adapter walks one tree.
type walker struct {
	file string
	src  []byte
	errs []*ExtractionError
}

// newWalker starts a walk over src, seeded with errors recovered while parsing.
func newWalker(src Source, recovered []*ExtractionError) *walker {
	return &walker{file: src.Path, src: src.Text, errs: recovered}
}

// text returns the source text of n.
func (w *walker) text(n *sitter.Node) string {
	return extractNodeText(n, w.src)
}

// loc returns the 1-indexed location of n.
func (w *walker) loc(n *sitter.Node) symbol.Location {
	return symbol.Location{File: w.file, Line: int(n.StartPosition().Row) + 1}
}

// fail records a construct that could not be classified.
func (w *walker) fail(n *sitter.Node, reason string) {
	w.errs = append(w.errs, &ExtractionError{
		Location:  w.loc(n),
		Construct: n.Kind(),
		Reason:    reason,
	})
}

// anonymous synthesizes a path segment for an unnamed namespace, type or enum.
// The segment is derived from file and byte offset so re-extraction is stable.
func (w *walker) anonymous(n *sitter.Node) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s#%d", w.file, n.StartByte()))
	return "(anonymous-" + id.String() + ")"
}

// result packages the walked symbols. Symbols that fail validation are
// dropped and reported.
func (w *walker) result(lang Language, symbols []symbol.Symbol) *Extraction {
	symbols = w.keep(symbols)
	return &Extraction{
		File:     w.file,
		Language: lang,
		Symbols:  symbols,
		Errors:   w.errs,
	}
}

// keep filters out invalid symbols. Namespaces are filtered child by child
// and unnamed members are removed from their type first.
func (w *walker) keep(symbols []symbol.Symbol) []symbol.Symbol {
	var out []symbol.Symbol
	for _, s := range symbols {
		if s.Kind == symbol.KindNamespace && len(s.Children) > 0 {
			s.Children = w.keep(s.Children)
		}
		s.Members = slices.DeleteFunc(s.Members, func(m symbol.Member) bool {
			if m.Name != "" {
				return false
			}
			w.errs = append(w.errs, &ExtractionError{
				Location:  m.Location,
				Construct: string(m.Kind),
				Reason:    fmt.Sprintf("%v in %s", symbol.ErrEmptyName, s.Path),
			})
			return true
		})
		if err := symbol.Validate(s); err != nil {
			w.errs = append(w.errs, &ExtractionError{
				Location:  s.Location,
				Construct: string(s.Kind),
				Reason:    err.Error(),
			})
			continue
		}
		out = append(out, s)
	}
	return out
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visitor)
	}
}

// namedChildren returns the named children of node in order.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	count := int(node.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, node.NamedChild(uint(i)))
	}
	return out
}

// childrenByField returns every child stored under field.
func childrenByField(node *sitter.Node, field string) []*sitter.Node {
	if node == nil {
		return nil
	}
	cursor := node.Walk()
	defer cursor.Close()

	nodes := node.ChildrenByFieldName(field, cursor)
	out := make([]*sitter.Node, 0, len(nodes))
	for i := range nodes {
		out = append(out, &nodes[i])
	}
	return out
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// hasChildKind reports whether any direct child (named or not) has the given kind.
func hasChildKind(node *sitter.Node, kind string) bool {
	return findChildByType(node, kind) != nil
}

// sameNode reports whether a and b span the same bytes with the same kind.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

// squash collapses runs of whitespace so verbatim tokens stay on one line.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// firstLine truncates s at its first newline.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// typeAnnotation strips a leading ':' or '->' from an annotation token.
func typeAnnotation(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "->")
	s = strings.TrimPrefix(s, ":")
	return squash(s)
}
