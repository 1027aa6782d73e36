package adapters

import (
	"context"
	"testing"

	"github.com/mvp-joe/symgraph/internal/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Adapter Registry and Cache:
// - Default registers every built-in adapter in selection order
// - ForPath selects by extension, case-insensitively, with .h going to C++
// - Unsupported paths and unknown languages return sentinel errors
// - Duplicate registration is rejected
// - Enabled list restricts the registry
// - Cached adapter returns the memoised extraction until the text changes
// - Cached adapter does not cache parse errors

func TestDefault_AllAdapters(t *testing.T) {
	t.Parallel()

	r, err := Default(nil)
	require.NoError(t, err)

	assert.Equal(t, []Language{
		LangC, LangCpp, LangCSharp, LangGo, LangJava, LangJavaScript, LangPHP, LangPython, LangRuby, LangRust, LangTypeScript,
	}, r.Languages())
	assert.Len(t, r.Adapters(), 11)
	assert.Equal(t, LangCpp, r.Adapters()[0].Language())

	cases := map[string]Language{
		"src/engine.cpp":  LangCpp,
		"include/api.h":   LangCpp,
		"include/API.HPP": LangCpp,
		"lib/util.c":      LangC,
		"Main.java":       LangJava,
		"lib.rs":          LangRust,
		"main.go":         LangGo,
		"pkg/mod.py":      LangPython,
		"web/app.ts":      LangTypeScript,
		"web/view.tsx":    LangTypeScript,
		"web/main.js":     LangJavaScript,
		"web/App.jsx":     LangJavaScript,
		"web/cli.mjs":     LangJavaScript,
		"web/conf.cjs":    LangJavaScript,
		"src/Service.cs":  LangCSharp,
		"index.php":       LangPHP,
		"app/model.rb":    LangRuby,
	}
	for path, want := range cases {
		a, err := r.ForPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, a.Language(), path)
		assert.True(t, r.Supports(path))
	}

	_, err = r.ForPath("README.md")
	assert.ErrorIs(t, err, ErrNoAdapter)
	assert.False(t, r.Supports("README.md"))
}

func TestDefault_Enabled(t *testing.T) {
	t.Parallel()

	r, err := Default([]string{"cpp", " Rust "})
	require.NoError(t, err)
	assert.Equal(t, []Language{LangCpp, LangRust}, r.Languages())

	_, ok := r.Lookup(LangJava)
	assert.False(t, ok)

	a, ok := r.Lookup(LangRust)
	require.True(t, ok)
	assert.Equal(t, []string{".rs"}, a.Extensions())

	_, err = Default([]string{"cobol"})
	assert.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestRegistry_DuplicateLanguage(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(NewCppAdapter()))
	assert.ErrorIs(t, r.Register(NewCppAdapter()), ErrDuplicateLanguage)
}

func TestRegistry_FirstClaimWins(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(NewCAdapter()))
	require.NoError(t, r.Register(NewCppAdapter()))

	a, err := r.ForPath("x.c")
	require.NoError(t, err)
	assert.Equal(t, LangC, a.Language())

	a, err = r.ForPath("x.h")
	require.NoError(t, err)
	assert.Equal(t, LangCpp, a.Language())
}

// countingAdapter counts Extract calls.
type countingAdapter struct {
	calls int
}

func (c *countingAdapter) Language() Language   { return LangCpp }
func (c *countingAdapter) Extensions() []string { return []string{".cpp"} }

func (c *countingAdapter) Extract(_ context.Context, src Source) (*Extraction, error) {
	c.calls++
	if string(src.Text) == "broken" {
		return nil, &ParseError{File: src.Path, Reason: "syntax error"}
	}
	return &Extraction{
		File:     src.Path,
		Language: LangCpp,
		Symbols:  []symbol.Symbol{symbol.NewFunction(nil, string(src.Text), symbol.Location{File: src.Path, Line: 1}, "int", nil)},
	}, nil
}

func TestCachedAdapter(t *testing.T) {
	t.Parallel()

	inner := &countingAdapter{}
	cached, err := NewCachedAdapter(inner, 100)
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	src := Source{Path: "a.cpp", Language: LangCpp, Text: []byte("first")}

	one, err := cached.Extract(ctx, src)
	require.NoError(t, err)
	two, err := cached.Extract(ctx, src)
	require.NoError(t, err)

	assert.Same(t, one, two)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, LangCpp, cached.Language())
	assert.Equal(t, []string{".cpp"}, cached.Extensions())

	// Edited text misses
	src.Text = []byte("second")
	three, err := cached.Extract(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "second", three.Symbols[0].Name)
	assert.Equal(t, 2, inner.calls)

	// Parse errors are not cached
	broken := Source{Path: "b.cpp", Language: LangCpp, Text: []byte("broken")}
	_, err = cached.Extract(ctx, broken)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	_, err = cached.Extract(ctx, broken)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 4, inner.calls)
}

func TestRegistry_Wrap(t *testing.T) {
	t.Parallel()

	r, err := Default([]string{"cpp", "c"})
	require.NoError(t, err)

	var wrapped []*CachedAdapter
	r.Wrap(func(a Adapter) Adapter {
		c, err := NewCachedAdapter(a, 10)
		require.NoError(t, err)
		wrapped = append(wrapped, c)
		return c
	})
	defer func() {
		for _, c := range wrapped {
			c.Close()
		}
	}()

	a, err := r.ForPath("x.hpp")
	require.NoError(t, err)
	_, ok := a.(*CachedAdapter)
	assert.True(t, ok)

	b, ok := r.Lookup(LangC)
	require.True(t, ok)
	_, ok = b.(*CachedAdapter)
	assert.True(t, ok)
}
