package symbol

import (
	"iter"
	"slices"
)

// Equal reports structural equality: path, kind, attributes and children.
// Locations are diagnostic only and do not take part.
func Equal(a, b Symbol) bool {
	if a.Kind != b.Kind || a.Name != b.Name || a.DeclarationOnly != b.DeclarationOnly {
		return false
	}
	if !a.Path.Equal(b.Path) || a.ReturnType != b.ReturnType || !slices.Equal(a.Params, b.Params) {
		return false
	}
	if !slices.Equal(a.Enumerators, b.Enumerators) {
		return false
	}
	if !slices.EqualFunc(a.Members, b.Members, MemberEqual) {
		return false
	}
	return slices.EqualFunc(a.Children, b.Children, Equal)
}

// MemberEqual compares two members ignoring their locations.
func MemberEqual(a, b Member) bool {
	return a.Kind == b.Kind &&
		a.Name == b.Name &&
		a.ReturnType == b.ReturnType &&
		a.Type == b.Type &&
		a.IsConst == b.IsConst &&
		a.IsStatic == b.IsStatic &&
		slices.Equal(a.Params, b.Params)
}

// EqualTrees compares two ordered symbol sequences element by element.
func EqualTrees(a, b []Symbol) bool {
	return slices.EqualFunc(a, b, Equal)
}

// Compare orders symbols for deterministic serialization: by path, then kind.
func Compare(a, b Symbol) int {
	if c := ComparePaths(a.Path, b.Path); c != 0 {
		return c
	}
	switch {
	case a.Kind < b.Kind:
		return -1
	case a.Kind > b.Kind:
		return 1
	}
	return 0
}

// Walk yields every symbol of the given trees depth-first, parents before children.
// The sequence can be ranged over any number of times.
func Walk(roots []Symbol) iter.Seq[Symbol] {
	return func(yield func(Symbol) bool) {
		walk(roots, yield)
	}
}

func walk(nodes []Symbol, yield func(Symbol) bool) bool {
	for _, n := range nodes {
		if !yield(n) {
			return false
		}
		if !walk(n.Children, yield) {
			return false
		}
	}
	return true
}

// Find returns the first symbol in the trees whose path equals path.
func Find(roots []Symbol, path Path) (Symbol, bool) {
	for s := range Walk(roots) {
		if s.Path.Equal(path) {
			return s, true
		}
	}
	return Symbol{}, false
}
