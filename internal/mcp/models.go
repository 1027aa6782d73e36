package mcp

import (
	"github.com/mvp-joe/symgraph/internal/registry"
	"github.com/mvp-joe/symgraph/internal/symbol"
)

// LookupResponse is the symbol_lookup result.
type LookupResponse struct {
	Symbol      symbol.Symbol       `json:"symbol"`
	Descendants []string            `json:"descendants,omitempty"` // Qualified paths nested under the symbol, sorted
	Conflicts   []registry.Conflict `json:"conflicts,omitempty"`   // Conflicts reported at this path
}

// FindMatch is one symbol_find hit.
type FindMatch struct {
	QualifiedName   string          `json:"qualified_name"`
	Kind            symbol.Kind     `json:"kind"`
	Location        symbol.Location `json:"location"`
	DeclarationOnly bool            `json:"declaration_only,omitempty"`
}

// FindResponse is the symbol_find result.
type FindResponse struct {
	Matches []FindMatch `json:"matches"`
	Total   int         `json:"total"` // Matches before the limit was applied
}
