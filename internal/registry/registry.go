package registry

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/mvp-joe/symgraph/internal/adapters"
	"github.com/mvp-joe/symgraph/internal/symbol"
)

// Conflict reports two symbols claiming the same qualified path that cannot
// be reconciled. The existing symbol stays; the incoming one is dropped.
type Conflict struct {
	Path         symbol.Path     `json:"path"`
	ExistingKind symbol.Kind     `json:"existing_kind"`
	IncomingKind symbol.Kind     `json:"incoming_kind"`
	Existing     symbol.Location `json:"existing"`
	Incoming     symbol.Location `json:"incoming"`
}

func (c Conflict) Error() string {
	if c.ExistingKind != c.IncomingKind {
		return fmt.Sprintf("conflict at %s: %s at %s, %s at %s",
			c.Path, c.ExistingKind, c.Existing, c.IncomingKind, c.Incoming)
	}
	return fmt.Sprintf("conflict at %s: %s defined at %s and %s",
		c.Path, c.ExistingKind, c.Existing, c.Incoming)
}

// entry is one stored symbol. Namespaces are flattened: their children live
// in their own entries and are referenced by key in first-seen order.
type entry struct {
	sym      symbol.Symbol
	children []string
}

// Registry merges the symbol trees of many files into one graph keyed by
// qualified path. It is safe for concurrent use; writes are serialised.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	roots     []string
	conflicts []Conflict
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// InsertExtraction merges the symbols of one file.
func (r *Registry) InsertExtraction(ext *adapters.Extraction) []Conflict {
	if ext == nil {
		return nil
	}
	return r.Insert(ext.Symbols...)
}

// Insert merges root-level symbols and returns the conflicts they caused.
func (r *Registry) Insert(symbols ...symbol.Symbol) []Conflict {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found []Conflict
	for _, s := range symbols {
		found = r.insert(s, nil, found)
	}
	r.conflicts = append(r.conflicts, found...)
	return found
}

// insert stores s under parent (nil for the root) and recurses into
// namespace children. Caller holds the write lock.
func (r *Registry) insert(s symbol.Symbol, parent *entry, found []Conflict) []Conflict {
	key := s.Path.String()
	existing, ok := r.entries[key]

	if !ok {
		stored := s.Clone()
		stored.Children = nil
		e := &entry{sym: stored}
		r.entries[key] = e
		if parent == nil {
			r.roots = append(r.roots, key)
		} else {
			parent.children = append(parent.children, key)
		}
		if s.Kind == symbol.KindNamespace {
			for _, child := range s.Children {
				found = r.insert(child, e, found)
			}
		}
		return found
	}

	old := existing.sym
	switch {
	case old.Kind != s.Kind:
		return append(found, conflictOf(old, s))
	case s.Kind == symbol.KindNamespace:
		// Namespaces are open: a reopened block contributes more children
		if old.DeclarationOnly && !s.DeclarationOnly {
			existing.sym.DeclarationOnly = false
			existing.sym.Location = s.Location
		}
		for _, child := range s.Children {
			found = r.insert(child, existing, found)
		}
		return found
	case s.DeclarationOnly:
		// A declaration never displaces what is already known
		return found
	case old.DeclarationOnly:
		stored := s.Clone()
		stored.Children = nil
		existing.sym = stored
		return found
	default:
		return append(found, conflictOf(old, s))
	}
}

func conflictOf(existing, incoming symbol.Symbol) Conflict {
	return Conflict{
		Path:         slices.Clone(incoming.Path),
		ExistingKind: existing.Kind,
		IncomingKind: incoming.Kind,
		Existing:     existing.Location,
		Incoming:     incoming.Location,
	}
}

// Lookup returns the symbol stored at path. Namespaces come back with their
// merged children.
func (r *Registry) Lookup(path symbol.Path) (symbol.Symbol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.entries[path.String()]; !ok {
		return symbol.Symbol{}, false
	}
	return r.build(path.String()), true
}

// Len returns the number of stored symbols, nested ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Conflicts returns every conflict reported so far in insertion order.
func (r *Registry) Conflicts() []Conflict {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.conflicts)
}

// Roots returns the paths of root-level symbols in first-seen order.
func (r *Registry) Roots() []symbol.Path {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]symbol.Path, 0, len(r.roots))
	for _, key := range r.roots {
		out = append(out, slices.Clone(r.entries[key].sym.Path))
	}
	return out
}

// Tree rebuilds the merged symbol tree. Namespace children appear in the
// order they were first seen across all inserted files.
func (r *Registry) Tree() []symbol.Symbol {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]symbol.Symbol, 0, len(r.roots))
	for _, key := range r.roots {
		out = append(out, r.build(key))
	}
	return out
}

// Walk yields every stored symbol depth-first, parents before children.
// The sequence works on a snapshot taken when iteration starts.
func (r *Registry) Walk() iter.Seq[symbol.Symbol] {
	return func(yield func(symbol.Symbol) bool) {
		for s := range symbol.Walk(r.Tree()) {
			if !yield(s) {
				return
			}
		}
	}
}

// build returns a copy of the stored symbol with namespace children
// expanded. Caller holds the read lock.
func (r *Registry) build(key string) symbol.Symbol {
	e := r.entries[key]
	s := e.sym.Clone()
	if len(e.children) > 0 {
		s.Children = make([]symbol.Symbol, 0, len(e.children))
		for _, child := range e.children {
			s.Children = append(s.Children, r.build(child))
		}
	}
	return s
}

// Graph returns the containment graph: one vertex per stored symbol keyed
// by qualified name, one edge from each namespace to each of its children.
func (r *Registry) Graph() (graph.Graph[string, symbol.Symbol], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g := graph.New(func(s symbol.Symbol) string { return s.QualifiedName() }, graph.Directed())

	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if err := g.AddVertex(r.entries[key].sym.Clone()); err != nil {
			return nil, fmt.Errorf("failed to add symbol %s: %w", key, err)
		}
	}
	for _, key := range keys {
		for _, child := range r.entries[key].children {
			if err := g.AddEdge(key, child); err != nil {
				return nil, fmt.Errorf("failed to link %s to %s: %w", key, child, err)
			}
		}
	}
	return g, nil
}

// Descendants returns the paths of every symbol nested under path, sorted.
func (r *Registry) Descendants(path symbol.Path) ([]symbol.Path, error) {
	g, err := r.Graph()
	if err != nil {
		return nil, err
	}

	start := path.String()
	if _, err := g.Vertex(start); err != nil {
		return nil, fmt.Errorf("symbol %s not found: %w", start, err)
	}

	var out []symbol.Path
	err = graph.DFS(g, start, func(key string) bool {
		if key != start {
			out = append(out, symbol.ParsePath(key))
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", start, err)
	}

	slices.SortFunc(out, symbol.ComparePaths)
	return out, nil
}
