// Package export renders the outcome of a run for people and tools.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mvp-joe/symgraph/internal/indexer"
	"github.com/mvp-joe/symgraph/internal/registry"
	"github.com/mvp-joe/symgraph/internal/symbol"
)

// Problem is a parse or extraction error in serialisable form.
type Problem struct {
	Location  symbol.Location `json:"location"`
	Construct string          `json:"construct,omitempty"`
	Reason    string          `json:"reason"`
}

// Document is the JSON shape of a run. Field order is fixed by the struct
// and symbols appear depth-first in merge order, so equal runs render
// byte-identical output.
type Document struct {
	Symbols          []symbol.Symbol     `json:"symbols"`
	Conflicts        []registry.Conflict `json:"conflicts"`
	ParseErrors      []Problem           `json:"parse_errors"`
	ExtractionErrors []Problem           `json:"extraction_errors"`
	Stats            indexer.Stats       `json:"stats"`
}

// NewDocument converts a run result. Durations are dropped so the document
// depends only on the input files.
func NewDocument(result *indexer.Result) *Document {
	doc := &Document{
		Symbols:          []symbol.Symbol{},
		Conflicts:        []registry.Conflict{},
		ParseErrors:      []Problem{},
		ExtractionErrors: []Problem{},
		Stats:            result.Stats,
	}
	doc.Stats.Duration = 0

	if result.Registry != nil {
		doc.Symbols = result.Registry.Tree()
	}
	doc.Conflicts = append(doc.Conflicts, result.Conflicts...)
	for _, e := range result.ParseErrors {
		doc.ParseErrors = append(doc.ParseErrors, Problem{
			Location: symbol.Location{File: e.File, Line: e.Line},
			Reason:   e.Reason,
		})
	}
	for _, e := range result.ExtractionErrors {
		doc.ExtractionErrors = append(doc.ExtractionErrors, Problem{
			Location:  e.Location,
			Construct: e.Construct,
			Reason:    e.Reason,
		})
	}
	return doc
}

// WriteJSON writes result as indented JSON.
func WriteJSON(w io.Writer, result *indexer.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(result)); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
