package symbol

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Symbol Model:
// - Path helpers (String, Parent, Child, HasPrefix, ParsePath) behave on root and nested paths
// - Child never aliases the receiver's backing array
// - ComparePaths orders segment-wise with prefixes first
// - Constructors produce paths ending in the symbol name, full definitions by default
// - NewEnum numbers enumerators positionally and keeps explicit tokens
// - Equal ignores locations but not kinds, flags, members or children order
// - Validate accepts empty namespaces and rejects malformed shapes
// - Clone produces an independent deep copy
// - Walk is depth-first, restartable and stops early

func sampleTree() []Symbol {
	ns := Path{"engine"}
	loc := Location{File: "sample.cpp", Line: 1}
	return []Symbol{
		NewNamespace(nil, "engine", loc, []Symbol{
			NewType(KindClass, ns, "Service", loc, []Member{
				{Kind: MemberConstructor, Name: "Service"},
				{Kind: MemberMethod, Name: "run", ReturnType: "int", Params: []string{"int"}, IsConst: true},
			}),
			NewEnum(ns, "Mode", loc, []string{"Fast", "Slow"}, nil),
			NewFunction(ns, "parse_value", loc, "int", []string{"int"}),
		}),
	}
}

func TestPath_Helpers(t *testing.T) {
	t.Parallel()

	p := Path{"engine", "Service"}
	assert.Equal(t, "engine::Service", p.String())
	assert.Equal(t, "Service", p.Name())
	assert.Equal(t, Path{"engine"}, p.Parent())
	assert.Equal(t, Path{}, Path{"engine"}.Parent())
	assert.Equal(t, "", Path{}.Name())

	assert.True(t, p.HasPrefix(Path{"engine"}))
	assert.True(t, p.HasPrefix(p))
	assert.False(t, p.HasPrefix(Path{"other"}))
	assert.False(t, Path{"engine"}.HasPrefix(p))

	assert.Equal(t, p, ParsePath("engine::Service"))
	assert.Equal(t, Path{}, ParsePath(""))
}

func TestPath_ChildDoesNotAlias(t *testing.T) {
	t.Parallel()

	base := make(Path, 1, 8)
	base[0] = "engine"

	a := base.Child("A")
	b := base.Child("B")

	assert.Equal(t, Path{"engine", "A"}, a)
	assert.Equal(t, Path{"engine", "B"}, b)

	// Parent must not let appends overwrite the child's last segment
	parent := a.Parent()
	_ = append(parent, "X")
	assert.Equal(t, Path{"engine", "A"}, a)
}

func TestComparePaths(t *testing.T) {
	t.Parallel()

	paths := []Path{
		{"engine", "b"},
		{"engine"},
		{"alpha", "z"},
		{"engine", "a", "x"},
		{"engine", "a"},
	}
	slices.SortFunc(paths, ComparePaths)

	assert.Equal(t, []Path{
		{"alpha", "z"},
		{"engine"},
		{"engine", "a"},
		{"engine", "a", "x"},
		{"engine", "b"},
	}, paths)
}

func TestConstructors_BuildQualifiedPaths(t *testing.T) {
	t.Parallel()

	tree := sampleTree()
	require.Len(t, tree, 1)

	ns := tree[0]
	assert.Equal(t, KindNamespace, ns.Kind)
	assert.Equal(t, Path{"engine"}, ns.Path)
	require.Len(t, ns.Children, 3)
	assert.Equal(t, Path{"engine", "Service"}, ns.Children[0].Path)
	assert.Equal(t, Path{"engine", "Mode"}, ns.Children[1].Path)
	assert.Equal(t, "engine::parse_value", ns.Children[2].QualifiedName())
	assert.True(t, ns.HasBody())

	svc := ns.Children[0]
	assert.False(t, svc.DeclarationOnly)
	assert.True(t, svc.AsDeclaration().DeclarationOnly)
}

func TestNewEnum_PositionalValues(t *testing.T) {
	t.Parallel()

	e := NewEnum(nil, "Color", Location{}, []string{"Red", "Green", "Blue"}, map[string]string{"Green": "5"})

	require.Len(t, e.Enumerators, 3)
	assert.Equal(t, Enumerator{Name: "Red", Value: 0}, e.Enumerators[0])
	assert.Equal(t, Enumerator{Name: "Green", Value: 1, Explicit: "5"}, e.Enumerators[1])
	assert.Equal(t, Enumerator{Name: "Blue", Value: 2}, e.Enumerators[2])
}

func TestEqual(t *testing.T) {
	t.Parallel()

	t.Run("identical trees", func(t *testing.T) {
		t.Parallel()
		assert.True(t, EqualTrees(sampleTree(), sampleTree()))
	})

	t.Run("locations are ignored", func(t *testing.T) {
		t.Parallel()
		a := sampleTree()
		b := sampleTree()
		b[0].Location.Line = 99
		b[0].Children[0].Members[0].Location.Line = 42
		assert.True(t, EqualTrees(a, b))
	})

	t.Run("child order matters", func(t *testing.T) {
		t.Parallel()
		a := sampleTree()
		b := sampleTree()
		b[0].Children[0], b[0].Children[1] = b[0].Children[1], b[0].Children[0]
		assert.False(t, EqualTrees(a, b))
	})

	t.Run("member flags matter", func(t *testing.T) {
		t.Parallel()
		a := sampleTree()
		b := sampleTree()
		b[0].Children[0].Members[1].IsConst = false
		assert.False(t, EqualTrees(a, b))
	})

	t.Run("declaration marker matters", func(t *testing.T) {
		t.Parallel()
		fn := NewFunction(nil, "f", Location{}, "void", nil)
		assert.False(t, Equal(fn, fn.AsDeclaration()))
	})

	t.Run("kind matters", func(t *testing.T) {
		t.Parallel()
		a := NewType(KindClass, nil, "T", Location{}, nil)
		b := NewType(KindStruct, nil, "T", Location{}, nil)
		assert.False(t, Equal(a, b))
		assert.NotZero(t, Compare(a, b))
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("sample tree is valid", func(t *testing.T) {
		t.Parallel()
		for _, s := range sampleTree() {
			assert.NoError(t, Validate(s))
		}
	})

	t.Run("empty namespace is valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, Validate(NewNamespace(nil, "empty", Location{}, nil)))
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		t.Parallel()
		err := Validate(NewFunction(nil, "", Location{}, "int", nil))
		assert.ErrorIs(t, err, ErrEmptyName)
	})

	t.Run("mismatched path is rejected", func(t *testing.T) {
		t.Parallel()
		s := NewFunction(nil, "f", Location{}, "int", nil)
		s.Path = Path{"g"}
		assert.ErrorIs(t, Validate(s), ErrPathMismatch)
	})

	t.Run("child outside parent path is rejected", func(t *testing.T) {
		t.Parallel()
		child := NewFunction(Path{"other"}, "f", Location{}, "int", nil)
		ns := NewNamespace(nil, "engine", Location{}, []Symbol{child})
		assert.ErrorIs(t, Validate(ns), ErrPathMismatch)
	})

	t.Run("duplicate enumerator is rejected", func(t *testing.T) {
		t.Parallel()
		e := NewEnum(nil, "E", Location{}, []string{"A", "A"}, nil)
		assert.ErrorIs(t, Validate(e), ErrShape)
	})

	t.Run("members on a function are rejected", func(t *testing.T) {
		t.Parallel()
		fn := NewFunction(nil, "f", Location{}, "int", nil)
		fn.Members = []Member{{Kind: MemberField, Name: "x"}}
		assert.ErrorIs(t, Validate(fn), ErrShape)
	})
}

func TestClone_IsIndependent(t *testing.T) {
	t.Parallel()

	orig := sampleTree()[0]
	cp := orig.Clone()
	require.True(t, Equal(orig, cp))

	cp.Children[0].Members[1].Params[0] = "long"
	cp.Children[2].Params[0] = "long"
	cp.Path[0] = "changed"

	assert.Equal(t, "int", orig.Children[0].Members[1].Params[0])
	assert.Equal(t, "int", orig.Children[2].Params[0])
	assert.Equal(t, "engine", orig.Path[0])
}

func TestWalk(t *testing.T) {
	t.Parallel()

	tree := sampleTree()
	var names []string
	for s := range Walk(tree) {
		names = append(names, s.QualifiedName())
	}
	assert.Equal(t, []string{"engine", "engine::Service", "engine::Mode", "engine::parse_value"}, names)

	// Restartable
	var again []string
	for s := range Walk(tree) {
		again = append(again, s.QualifiedName())
	}
	assert.Equal(t, names, again)

	// Early stop
	var first []string
	for s := range Walk(tree) {
		first = append(first, s.Name)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"engine", "Service"}, first)

	found, ok := Find(tree, Path{"engine", "Mode"})
	require.True(t, ok)
	assert.Equal(t, KindEnum, found.Kind)

	_, ok = Find(tree, Path{"engine", "Missing"})
	assert.False(t, ok)
}
