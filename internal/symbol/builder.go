package symbol

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyName indicates a symbol or member without a name
	ErrEmptyName = errors.New("empty symbol name")

	// ErrPathMismatch indicates a path whose last segment is not the symbol name
	ErrPathMismatch = errors.New("qualified path does not end with symbol name")

	// ErrShape indicates attributes that do not belong to the symbol kind
	ErrShape = errors.New("attributes do not match symbol kind")
)

// NewNamespace builds a namespace under prefix. Children keep the given order.
func NewNamespace(prefix Path, name string, loc Location, children []Symbol) Symbol {
	return Symbol{
		Kind:     KindNamespace,
		Name:     name,
		Path:     prefix.Child(name),
		Location: loc,
		Children: children,
	}
}

// NewType builds a class or struct under prefix. Members keep the given order.
func NewType(kind Kind, prefix Path, name string, loc Location, members []Member) Symbol {
	return Symbol{
		Kind:     kind,
		Name:     name,
		Path:     prefix.Child(name),
		Location: loc,
		Members:  members,
	}
}

// NewEnum builds an enum under prefix, numbering enumerators positionally.
func NewEnum(prefix Path, name string, loc Location, names []string, explicit map[string]string) Symbol {
	enumerators := make([]Enumerator, 0, len(names))
	for i, n := range names {
		enumerators = append(enumerators, Enumerator{
			Name:     n,
			Value:    i,
			Explicit: explicit[n],
		})
	}
	return Symbol{
		Kind:        KindEnum,
		Name:        name,
		Path:        prefix.Child(name),
		Location:    loc,
		Enumerators: enumerators,
	}
}

// NewFunction builds a free function under prefix.
func NewFunction(prefix Path, name string, loc Location, returnType string, params []string) Symbol {
	return Symbol{
		Kind:       KindFunction,
		Name:       name,
		Path:       prefix.Child(name),
		Location:   loc,
		ReturnType: returnType,
		Params:     params,
	}
}

// AsDeclaration marks the symbol as a forward declaration.
func (s Symbol) AsDeclaration() Symbol {
	s.DeclarationOnly = true
	return s
}

// Validate checks the shape of s and all of its descendants.
func Validate(s Symbol) error {
	if s.Name == "" {
		return fmt.Errorf("%w at %s", ErrEmptyName, s.Location)
	}
	if s.Path.Name() != s.Name {
		return fmt.Errorf("%w: %q has path %q", ErrPathMismatch, s.Name, s.Path)
	}

	switch s.Kind {
	case KindNamespace:
		if len(s.Members) > 0 || len(s.Enumerators) > 0 || len(s.Params) > 0 || s.ReturnType != "" {
			return fmt.Errorf("%w: namespace %s", ErrShape, s.Path)
		}
		for _, child := range s.Children {
			if !child.Path.Parent().Equal(s.Path) {
				return fmt.Errorf("%w: child %s of %s", ErrPathMismatch, child.Path, s.Path)
			}
			if err := Validate(child); err != nil {
				return err
			}
		}
	case KindClass, KindStruct:
		if len(s.Children) > 0 || len(s.Enumerators) > 0 || len(s.Params) > 0 || s.ReturnType != "" {
			return fmt.Errorf("%w: %s %s", ErrShape, s.Kind, s.Path)
		}
		for _, m := range s.Members {
			if m.Name == "" {
				return fmt.Errorf("%w: member of %s at %s", ErrEmptyName, s.Path, m.Location)
			}
		}
	case KindEnum:
		if len(s.Children) > 0 || len(s.Members) > 0 || len(s.Params) > 0 || s.ReturnType != "" {
			return fmt.Errorf("%w: enum %s", ErrShape, s.Path)
		}
		seen := make(map[string]bool, len(s.Enumerators))
		for _, e := range s.Enumerators {
			if seen[e.Name] {
				return fmt.Errorf("%w: duplicate enumerator %s in %s", ErrShape, e.Name, s.Path)
			}
			seen[e.Name] = true
		}
	case KindFunction:
		if len(s.Children) > 0 || len(s.Members) > 0 || len(s.Enumerators) > 0 {
			return fmt.Errorf("%w: function %s", ErrShape, s.Path)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrShape, s.Kind)
	}
	return nil
}

// Clone returns a deep copy so callers cannot alias stored slices.
func (s Symbol) Clone() Symbol {
	out := s
	out.Path = append(Path(nil), s.Path...)
	if s.Children != nil {
		out.Children = make([]Symbol, len(s.Children))
		for i, c := range s.Children {
			out.Children[i] = c.Clone()
		}
	}
	if s.Members != nil {
		out.Members = make([]Member, len(s.Members))
		for i, m := range s.Members {
			m.Params = append([]string(nil), m.Params...)
			out.Members[i] = m
		}
	}
	if s.Enumerators != nil {
		out.Enumerators = append([]Enumerator(nil), s.Enumerators...)
	}
	if s.Params != nil {
		out.Params = append([]string(nil), s.Params...)
	}
	return out
}
