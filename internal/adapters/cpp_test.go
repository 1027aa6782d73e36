package adapters

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/mvp-joe/symgraph/internal/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for C++ Adapter:
// - Fixture file yields the expected namespace tree with members and enumerators
// - Repeated extraction of the same source yields an identical tree
// - Claims .cpp, .hpp and .h but not .rs
// - Forward declarations and prototypes are marked declaration-only
// - Truncated input is reported as a ParseError with a position
// - A syntax error inside a function body is recorded and the rest of the file is kept
// - Templates record an ExtractionError while the class is still extracted
// - Anonymous namespaces get a stable synthesized segment
// - Nested namespace names split into one namespace per segment
// - Namespace-scope variables are reported, out-of-line member definitions are skipped
// - Typedef'd anonymous structs take the typedef name
// - C-style variadic parameters are kept as "..."
// - Export macros before a class name and Q_OBJECT-style body macros are seen through

func extractSource(t *testing.T, a Adapter, path, code string) *Extraction {
	t.Helper()
	ext, err := a.Extract(context.Background(), Source{Path: path, Language: a.Language(), Text: []byte(code)})
	require.NoError(t, err)
	require.NotNil(t, ext)
	return ext
}

func extractFixture(t *testing.T, a Adapter, path string) *Extraction {
	t.Helper()
	text, err := os.ReadFile(path)
	require.NoError(t, err)
	ext, err := a.Extract(context.Background(), Source{Path: path, Language: a.Language(), Text: text})
	require.NoError(t, err)
	require.NotNil(t, ext)
	return ext
}

func TestCppAdapter_Fixture(t *testing.T) {
	t.Parallel()

	ext := extractFixture(t, NewCppAdapter(), "../../testdata/code/cpp/sample.cpp")
	assert.Empty(t, ext.Errors)
	assert.Equal(t, LangCpp, ext.Language)

	ns := symbol.Path{"engine"}
	want := []symbol.Symbol{
		symbol.NewNamespace(nil, "engine", symbol.Location{}, []symbol.Symbol{
			symbol.NewType(symbol.KindClass, ns, "Service", symbol.Location{}, []symbol.Member{
				{Kind: symbol.MemberConstructor, Name: "Service"},
				{Kind: symbol.MemberMethod, Name: "run", ReturnType: "int", Params: []string{"int"}, IsConst: true},
				{Kind: symbol.MemberStaticMethod, Name: "make", ReturnType: "Service", IsStatic: true},
			}),
			symbol.NewType(symbol.KindStruct, ns, "Config", symbol.Location{}, []symbol.Member{
				{Kind: symbol.MemberField, Name: "retries", Type: "int"},
				{Kind: symbol.MemberMethod, Name: "enabled", ReturnType: "bool", IsConst: true},
			}),
			symbol.NewEnum(ns, "Mode", symbol.Location{}, []string{"Fast", "Slow"}, nil),
			symbol.NewFunction(ns, "parse_value", symbol.Location{}, "int", []string{"int"}),
		}),
	}

	assert.True(t, symbol.EqualTrees(want, ext.Symbols), "got %+v", ext.Symbols)
	assert.Equal(t, 5, ext.Count())

	require.Len(t, ext.Symbols, 1)
	require.Len(t, ext.Symbols[0].Children, 4)
	assert.Equal(t, 1, ext.Symbols[0].Location.Line)
	assert.Equal(t, 3, ext.Symbols[0].Children[0].Location.Line)
	assert.Equal(t, "../../testdata/code/cpp/sample.cpp", ext.Symbols[0].Location.File)

	for _, s := range ext.Symbols {
		assert.NoError(t, symbol.Validate(s))
	}
}

func TestCppAdapter_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewCppAdapter()
	first := extractFixture(t, a, "../../testdata/code/cpp/sample.cpp")
	second := extractFixture(t, a, "../../testdata/code/cpp/sample.cpp")

	assert.True(t, symbol.EqualTrees(first.Symbols, second.Symbols))
	assert.Equal(t, first.Symbols, second.Symbols)
}

func TestCppAdapter_Extensions(t *testing.T) {
	t.Parallel()

	exts := NewCppAdapter().Extensions()
	assert.Contains(t, exts, ".cpp")
	assert.Contains(t, exts, ".hpp")
	assert.Contains(t, exts, ".h")
	assert.NotContains(t, exts, ".rs")
	assert.NotContains(t, NewCAdapter().Extensions(), ".h")
}

func TestCppAdapter_DeclarationOnly(t *testing.T) {
	t.Parallel()

	ext := extractSource(t, NewCppAdapter(), "decl.hpp", `
class Widget;
int compute(int a, double b);
void reset(void);
`)

	require.Len(t, ext.Symbols, 3)

	widget := ext.Symbols[0]
	assert.Equal(t, symbol.KindClass, widget.Kind)
	assert.True(t, widget.DeclarationOnly)
	assert.Empty(t, widget.Members)

	compute := ext.Symbols[1]
	assert.Equal(t, symbol.KindFunction, compute.Kind)
	assert.True(t, compute.DeclarationOnly)
	assert.Equal(t, "int", compute.ReturnType)
	assert.Equal(t, []string{"int", "double"}, compute.Params)

	reset := ext.Symbols[2]
	assert.Equal(t, "void", reset.ReturnType)
	assert.Nil(t, reset.Params)
}

func TestCppAdapter_ParseError(t *testing.T) {
	t.Parallel()

	_, err := NewCppAdapter().Extract(context.Background(), Source{
		Path:     "broken.cpp",
		Language: LangCpp,
		Text:     []byte("namespace engine {\nclass Broken {\n    int value\n"),
	})

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "broken.cpp", perr.File)
	assert.Positive(t, perr.Line)
	assert.Contains(t, perr.Error(), "broken.cpp")
}

func TestCppAdapter_BodySyntaxErrorRecovered(t *testing.T) {
	t.Parallel()

	ext := extractSource(t, NewCppAdapter(), "m.cpp", `namespace engine {
class Service {
public:
    int run(int value) const;
};
int parse_value(int input) {
    return input + ;
}
enum Mode { Fast, Slow };
}
`)

	require.Len(t, ext.Symbols, 1)
	names := make([]string, 0, 3)
	for _, child := range ext.Symbols[0].Children {
		names = append(names, child.Name)
	}
	assert.Equal(t, []string{"Service", "parse_value", "Mode"}, names)

	require.NotEmpty(t, ext.Errors)
	assert.Equal(t, "m.cpp", ext.Errors[0].Location.File)
	assert.Equal(t, 7, ext.Errors[0].Location.Line)
}

func TestCppAdapter_DeclarationSyntaxErrorFails(t *testing.T) {
	t.Parallel()

	_, err := NewCppAdapter().Extract(context.Background(), Source{
		Path:     "m.cpp",
		Language: LangCpp,
		Text:     []byte("namespace engine {\nint parse_value(int input) { return input; }\nclass Service { int x }\n}\n"),
	})

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
}

func TestCppAdapter_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCppAdapter().Extract(ctx, Source{Path: "x.cpp", Language: LangCpp, Text: []byte("int f();")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCppAdapter_Template(t *testing.T) {
	t.Parallel()

	ext := extractSource(t, NewCppAdapter(), "box.hpp", `
template <typename T>
class Box {
public:
    T value;
    T get() const;
};
`)

	require.Len(t, ext.Errors, 1)
	assert.Equal(t, "template_declaration", ext.Errors[0].Construct)
	assert.Equal(t, 2, ext.Errors[0].Location.Line)

	require.Len(t, ext.Symbols, 1)
	box := ext.Symbols[0]
	assert.Equal(t, "Box", box.Name)
	require.Len(t, box.Members, 2)
	assert.Equal(t, symbol.Member{Kind: symbol.MemberField, Name: "value", Type: "T", Location: box.Members[0].Location}, box.Members[0])
	assert.Equal(t, "get", box.Members[1].Name)
	assert.True(t, box.Members[1].IsConst)
}

func TestCppAdapter_AnonymousNamespace(t *testing.T) {
	t.Parallel()

	code := "namespace {\nint helper() { return 1; }\n}\n"
	a := NewCppAdapter()
	first := extractSource(t, a, "anon.cpp", code)
	second := extractSource(t, a, "anon.cpp", code)

	require.Len(t, first.Symbols, 1)
	ns := first.Symbols[0]
	assert.Equal(t, symbol.KindNamespace, ns.Kind)
	assert.True(t, strings.HasPrefix(ns.Name, "(anonymous-"))
	assert.Equal(t, ns.Name, second.Symbols[0].Name)

	require.Len(t, ns.Children, 1)
	assert.Equal(t, symbol.Path{ns.Name, "helper"}, ns.Children[0].Path)

	other := extractSource(t, a, "other.cpp", code)
	assert.NotEqual(t, ns.Name, other.Symbols[0].Name)
}

func TestCppAdapter_NestedNamespaceName(t *testing.T) {
	t.Parallel()

	ext := extractSource(t, NewCppAdapter(), "nested.cpp", "namespace a::b {\nstruct Point { int x; int y; };\n}\n")

	require.Len(t, ext.Symbols, 1)
	a := ext.Symbols[0]
	assert.Equal(t, symbol.Path{"a"}, a.Path)
	require.Len(t, a.Children, 1)
	b := a.Children[0]
	assert.Equal(t, symbol.Path{"a", "b"}, b.Path)
	require.Len(t, b.Children, 1)
	assert.Equal(t, "a::b::Point", b.Children[0].QualifiedName())
	assert.Len(t, b.Children[0].Members, 2)
}

func TestCppAdapter_VariablesAndOutOfLine(t *testing.T) {
	t.Parallel()

	ext := extractSource(t, NewCppAdapter(), "impl.cpp", `
int counter = 0;
void Service::reset() {}
int main() { return 0; }
`)

	require.Len(t, ext.Errors, 1)
	assert.Equal(t, reasonVariable, ext.Errors[0].Reason)

	require.Len(t, ext.Symbols, 1)
	assert.Equal(t, "main", ext.Symbols[0].Name)
	assert.False(t, ext.Symbols[0].DeclarationOnly)
}

func TestCppAdapter_TypedefStructAndEnumValues(t *testing.T) {
	t.Parallel()

	ext := extractSource(t, NewCppAdapter(), "types.h", `
typedef struct {
    int x;
    int (*callback)(int);
} Handler;

enum class Level { Low = 1, High = 10 };
`)

	assert.Empty(t, ext.Errors)
	require.Len(t, ext.Symbols, 2)

	handler := ext.Symbols[0]
	assert.Equal(t, "Handler", handler.Name)
	assert.Equal(t, symbol.KindStruct, handler.Kind)
	require.Len(t, handler.Members, 2)
	assert.Equal(t, "callback", handler.Members[1].Name)
	assert.Equal(t, "int (*)(int)", handler.Members[1].Type)

	level := ext.Symbols[1]
	assert.Equal(t, symbol.KindEnum, level.Kind)
	assert.Equal(t, []symbol.Enumerator{
		{Name: "Low", Value: 0, Explicit: "1"},
		{Name: "High", Value: 1, Explicit: "10"},
	}, level.Enumerators)
}

func TestCppAdapter_CStyleVariadic(t *testing.T) {
	t.Parallel()

	ext := extractSource(t, NewCppAdapter(), "fmt.h", `
const char* cname(const char* s, ...);
int printf_like(...);
template <typename... Args> void log(Args... args);
`)

	require.GreaterOrEqual(t, len(ext.Symbols), 2)
	assert.Equal(t, []string{"const char*", "..."}, ext.Symbols[0].Params)
	assert.Equal(t, []string{"..."}, ext.Symbols[1].Params)
}

func TestCppAdapter_ClassMacros(t *testing.T) {
	t.Parallel()

	ext := extractSource(t, NewCppAdapter(), "service.hpp", `namespace app {
class API_EXPORT Service {
public:
    Service();
    int run(int value) const;
};
struct API_EXPORT Config {
    int retries;
};
}
`)

	ns := symbol.Path{"app"}
	want := []symbol.Symbol{
		symbol.NewNamespace(nil, "app", symbol.Location{}, []symbol.Symbol{
			symbol.NewType(symbol.KindClass, ns, "Service", symbol.Location{}, []symbol.Member{
				{Kind: symbol.MemberConstructor, Name: "Service"},
				{Kind: symbol.MemberMethod, Name: "run", ReturnType: "int", Params: []string{"int"}, IsConst: true},
			}),
			symbol.NewType(symbol.KindStruct, ns, "Config", symbol.Location{}, []symbol.Member{
				{Kind: symbol.MemberField, Name: "retries", Type: "int"},
			}),
		}),
	}
	assert.True(t, symbol.EqualTrees(want, ext.Symbols), "got %+v", ext.Symbols)
	for _, e := range ext.Errors {
		assert.NotContains(t, e.Reason, "without a declarator")
	}

	require.Len(t, ext.Symbols, 1)
	require.Len(t, ext.Symbols[0].Children, 2)
	assert.Equal(t, 2, ext.Symbols[0].Children[0].Location.Line)
}

func TestCppAdapter_BodyMacroBeforeAccessSpecifier(t *testing.T) {
	t.Parallel()

	ext := extractSource(t, NewCppAdapter(), "widget.hpp", `class Widget {
    Q_OBJECT
public:
    Widget();
    void show();
};
`)

	require.Len(t, ext.Symbols, 1)
	widget := ext.Symbols[0]
	assert.Equal(t, "Widget", widget.Name)
	require.Len(t, widget.Members, 2)
	assert.Equal(t, symbol.MemberConstructor, widget.Members[0].Kind)
	assert.Equal(t, "show", widget.Members[1].Name)
	assert.Equal(t, 5, widget.Members[1].Location.Line)
}
