package adapters

import (
	"testing"

	"github.com/mvp-joe/symgraph/internal/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for PHP Adapter:
// - An unbraced namespace statement applies to the items after it
// - Backed enum cases keep their values verbatim
// - __construct is the constructor and promoted parameters become fields
// - Static properties and methods carry the static flag
// - Property names drop the leading '$'
// - Braced namespaces close their scope

func TestPHPAdapter_Fixture(t *testing.T) {
	t.Parallel()

	ext := extractFixture(t, NewPHPAdapter(), "../../testdata/code/php/Service.php")

	ns := symbol.Path{"App", "Service"}
	want := []symbol.Symbol{
		symbol.NewNamespace(nil, "App", symbol.Location{}, []symbol.Symbol{
			symbol.NewNamespace(symbol.Path{"App"}, "Service", symbol.Location{}, []symbol.Symbol{
				symbol.NewEnum(ns, "Mode", symbol.Location{}, []string{"Fast", "Slow"}, map[string]string{"Fast": "'fast'", "Slow": "'slow'"}),
				symbol.NewType(symbol.KindClass, ns, "Runnable", symbol.Location{}, []symbol.Member{
					{Kind: symbol.MemberMethod, Name: "run", ReturnType: "string", Params: []string{"string"}},
				}),
				symbol.NewType(symbol.KindClass, ns, "Service", symbol.Location{}, []symbol.Member{
					{Kind: symbol.MemberField, Name: "instances", Type: "int", IsStatic: true},
					{Kind: symbol.MemberField, Name: "label", Type: "?string"},
					{Kind: symbol.MemberConstructor, Name: "__construct", Params: []string{"string", "int"}},
					{Kind: symbol.MemberField, Name: "name", Type: "string"},
					{Kind: symbol.MemberMethod, Name: "run", ReturnType: "string", Params: []string{"string"}},
					{Kind: symbol.MemberStaticMethod, Name: "make", ReturnType: "self", Params: []string{"...string"}, IsStatic: true},
				}),
				symbol.NewFunction(ns, "parse_value", symbol.Location{}, "int", []string{""}),
			}),
		}),
	}
	assert.True(t, symbol.EqualTrees(want, ext.Symbols), "got %+v", ext.Symbols)

	require.Len(t, ext.Errors, 1)
	assert.Equal(t, 7, ext.Errors[0].Location.Line)
}

func TestPHPAdapter_BracedNamespaces(t *testing.T) {
	t.Parallel()

	ext := extractSource(t, NewPHPAdapter(), "multi.php", `<?php
namespace Alpha {
    function one() {}
}
namespace Beta\Gamma {
    class Two {}
}
`)

	require.Len(t, ext.Symbols, 2)
	assert.Equal(t, "Alpha", ext.Symbols[0].Name)
	require.Len(t, ext.Symbols[0].Children, 1)
	assert.Equal(t, symbol.Path{"Alpha", "one"}, ext.Symbols[0].Children[0].Path)

	two, ok := symbol.Find(ext.Symbols, symbol.Path{"Beta", "Gamma", "Two"})
	require.True(t, ok)
	assert.Equal(t, symbol.KindClass, two.Kind)
}
