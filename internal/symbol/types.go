package symbol

import (
	"fmt"
	"strings"
)

// Kind represents the variant of a Symbol.
type Kind string

const (
	KindNamespace Kind = "namespace"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindFunction  Kind = "function"
)

// IsType reports whether the kind owns members (class or struct).
func (k Kind) IsType() bool {
	return k == KindClass || k == KindStruct
}

// MemberKind represents the variant of a Member.
type MemberKind string

const (
	MemberConstructor  MemberKind = "constructor"
	MemberMethod       MemberKind = "method"
	MemberStaticMethod MemberKind = "static_method"
	MemberField        MemberKind = "field"
)

// IsCallable reports whether the member has a call shape.
func (k MemberKind) IsCallable() bool {
	return k != MemberField
}

// Separator joins qualified path segments.
const Separator = "::"

// Location is the source position of a declaration.
type Location struct {
	File string `json:"file"` // Path as handed to the adapter
	Line int    `json:"line"` // 1-indexed
}

// String formats the location as file:line.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Path is the ordered sequence of enclosing names from the root,
// ending with the symbol's own name.
type Path []string

// String joins the segments with "::".
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Name returns the final segment, or "" for the empty path.
func (p Path) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns the enclosing path. The parent of a root symbol is empty.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return Path{}
	}
	return p[:len(p)-1 : len(p)-1]
}

// Child returns a new path with name appended. The receiver is never aliased.
func (p Path) Child(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Equal reports whether both paths have identical segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is an ancestor of (or equal to) p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// ParsePath splits a "::"-joined qualified name into a Path.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return Path(strings.Split(s, Separator))
}

// ComparePaths orders paths segment by segment; a prefix sorts before its extensions.
func ComparePaths(a, b Path) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// Member is one entry of a class or struct body.
// Static-ness and const-ness are flags on this single shape.
type Member struct {
	Kind       MemberKind `json:"kind"`
	Name       string     `json:"name"`
	ReturnType string     `json:"return_type,omitempty"` // Methods only, verbatim token
	Type       string     `json:"type,omitempty"`        // Fields only, verbatim token
	Params     []string   `json:"params,omitempty"`      // Parameter type tokens
	IsConst    bool       `json:"is_const,omitempty"`
	IsStatic   bool       `json:"is_static,omitempty"`
	Location   Location   `json:"location"`
}

// Enumerator is one named constant of an enum.
type Enumerator struct {
	Name     string `json:"name"`
	Value    int    `json:"value"`              // Positional index in declaration order
	Explicit string `json:"explicit,omitempty"` // Written initializer, verbatim
}

// Symbol is one node of the unified representation.
// Which attribute slices are populated depends on Kind.
type Symbol struct {
	Kind            Kind         `json:"kind"`
	Name            string       `json:"name"`
	Path            Path         `json:"path"`
	Location        Location     `json:"location"`
	DeclarationOnly bool         `json:"declaration_only,omitempty"`
	Children        []Symbol     `json:"children,omitempty"`    // Namespace
	Members         []Member     `json:"members,omitempty"`     // Class, Struct
	Enumerators     []Enumerator `json:"enumerators,omitempty"` // Enum
	ReturnType      string       `json:"return_type,omitempty"` // Function
	Params          []string     `json:"params,omitempty"`      // Function
}

// QualifiedName returns the "::"-joined path.
func (s Symbol) QualifiedName() string {
	return s.Path.String()
}

// HasBody reports whether the symbol is a full definition.
func (s Symbol) HasBody() bool {
	return !s.DeclarationOnly
}
