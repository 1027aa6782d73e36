package adapters

import (
	"testing"

	"github.com/mvp-joe/symgraph/internal/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Ruby Adapter:
// - Modules become namespaces, methods directly inside modules become functions
// - initialize is the constructor, def self.x and class << self give static methods
// - attr_* macros and class constants become fields
// - `class A::B` nests B inside a namespace for A
// - File-level constants are reported

func TestRubyAdapter_Fixture(t *testing.T) {
	t.Parallel()

	ext := extractFixture(t, NewRubyAdapter(), "../../testdata/code/ruby/service.rb")

	engine := symbol.Path{"Engine"}
	want := []symbol.Symbol{
		symbol.NewNamespace(nil, "Engine", symbol.Location{}, []symbol.Symbol{
			symbol.NewNamespace(engine, "Helpers", symbol.Location{}, []symbol.Symbol{
				symbol.NewFunction(engine.Child("Helpers"), "clamp", symbol.Location{}, "", []string{"", "", ""}),
			}),
			symbol.NewType(symbol.KindClass, engine, "Service", symbol.Location{}, []symbol.Member{
				{Kind: symbol.MemberField, Name: "DEFAULT_RETRIES", IsStatic: true},
				{Kind: symbol.MemberField, Name: "name"},
				{Kind: symbol.MemberField, Name: "retries"},
				{Kind: symbol.MemberConstructor, Name: "initialize", Params: []string{"", ""}},
				{Kind: symbol.MemberMethod, Name: "run", Params: []string{"*", "&"}},
				{Kind: symbol.MemberStaticMethod, Name: "build", Params: []string{""}, IsStatic: true},
				{Kind: symbol.MemberStaticMethod, Name: "registry", IsStatic: true},
			}),
		}),
		symbol.NewNamespace(nil, "Engine", symbol.Location{}, []symbol.Symbol{
			symbol.NewType(symbol.KindClass, engine, "Worker", symbol.Location{}, nil),
		}),
	}
	assert.True(t, symbol.EqualTrees(want, ext.Symbols), "got %+v", ext.Symbols)

	require.Len(t, ext.Errors, 1)
	assert.Equal(t, reasonVariable, ext.Errors[0].Reason)
	assert.Equal(t, 3, ext.Errors[0].Location.Line)
}
