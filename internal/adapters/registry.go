package adapters

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrUnknownLanguage indicates a language tag with no adapter
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrDuplicateLanguage indicates a second adapter for the same tag
	ErrDuplicateLanguage = errors.New("language already registered")

	// ErrNoAdapter indicates a path no registered adapter claims
	ErrNoAdapter = errors.New("no adapter supports path")
)

// builtin lists every adapter in selection order. The C++ adapter comes
// first so it claims shared header extensions.
var builtin = []func() Adapter{
	NewCppAdapter,
	NewCAdapter,
	NewJavaAdapter,
	NewRustAdapter,
	NewGoAdapter,
	NewPythonAdapter,
	NewTypeScriptAdapter,
	NewJavaScriptAdapter,
	NewCSharpAdapter,
	NewPHPAdapter,
	NewRubyAdapter,
}

// AllLanguages returns the tags of every built-in adapter in selection order.
func AllLanguages() []Language {
	out := make([]Language, 0, len(builtin))
	for _, ctor := range builtin {
		out = append(out, ctor().Language())
	}
	return out
}

// Registry maps language tags and file extensions to adapters.
// Selection is deterministic: the first registered adapter claiming an
// extension wins.
type Registry struct {
	order      []Adapter
	byLanguage map[Language]Adapter
	byExt      map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byLanguage: make(map[Language]Adapter),
		byExt:      make(map[string]Adapter),
	}
}

// Default builds a registry holding the enabled built-in adapters.
// An empty list enables every adapter.
func Default(enabled []string) (*Registry, error) {
	want := make(map[Language]bool, len(enabled))
	known := AllLanguages()
	for _, name := range enabled {
		lang := Language(strings.ToLower(strings.TrimSpace(name)))
		if !slices.Contains(known, lang) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
		}
		want[lang] = true
	}

	r := NewRegistry()
	for _, ctor := range builtin {
		a := ctor()
		if len(want) > 0 && !want[a.Language()] {
			continue
		}
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an adapter. Extensions already claimed by an earlier
// adapter stay with it.
func (r *Registry) Register(a Adapter) error {
	if _, ok := r.byLanguage[a.Language()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLanguage, a.Language())
	}
	r.order = append(r.order, a)
	r.byLanguage[a.Language()] = a
	for _, ext := range a.Extensions() {
		ext = strings.ToLower(ext)
		if _, taken := r.byExt[ext]; !taken {
			r.byExt[ext] = a
		}
	}
	return nil
}

// Lookup returns the adapter registered for lang.
func (r *Registry) Lookup(lang Language) (Adapter, bool) {
	a, ok := r.byLanguage[lang]
	return a, ok
}

// ForPath selects the adapter for a file by its extension.
func (r *Registry) ForPath(path string) (Adapter, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if a, ok := r.byExt[ext]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoAdapter, path)
}

// Supports reports whether some adapter claims path.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Adapters returns the registered adapters in registration order.
func (r *Registry) Adapters() []Adapter {
	return slices.Clone(r.order)
}

// Languages returns the registered tags sorted alphabetically.
func (r *Registry) Languages() []Language {
	out := make([]Language, 0, len(r.order))
	for _, a := range r.order {
		out = append(out, a.Language())
	}
	slices.Sort(out)
	return out
}

// Extensions returns every claimed extension sorted alphabetically.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// Wrap replaces every registered adapter with wrap(adapter), keeping order.
func (r *Registry) Wrap(wrap func(Adapter) Adapter) {
	for i, a := range r.order {
		wrapped := wrap(a)
		r.order[i] = wrapped
		r.byLanguage[a.Language()] = wrapped
		for ext, owner := range r.byExt {
			if owner == a {
				r.byExt[ext] = wrapped
			}
		}
	}
}
