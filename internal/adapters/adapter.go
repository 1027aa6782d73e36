package adapters

import (
	"context"
	"fmt"
	"iter"

	"github.com/mvp-joe/symgraph/internal/symbol"
)

// Language identifies the grammar an adapter understands.
type Language string

const (
	LangCpp        Language = "cpp"
	LangC          Language = "c"
	LangJava       Language = "java"
	LangRust       Language = "rust"
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangCSharp     Language = "csharp"
	LangPHP        Language = "php"
	LangRuby       Language = "ruby"
)

// Source is one file's raw text plus its language tag.
type Source struct {
	Path     string
	Rel      string // Slash-separated path under the project root, empty when unknown
	Language Language
	Text     []byte
}

// Adapter turns one parsed source file into top-level symbols.
// Implementations must be safe for concurrent use: each Extract call owns
// its parser and syntax tree.
type Adapter interface {
	// Language returns the tag this adapter is registered under.
	Language() Language

	// Extensions returns the file extensions (with leading dot) this adapter claims.
	Extensions() []string

	// Extract walks the syntax tree of src. The same input always yields an
	// identical tree. A *ParseError is returned when the tree is unusable.
	Extract(ctx context.Context, src Source) (*Extraction, error)
}

// Extraction is the partial symbol tree built from one file.
type Extraction struct {
	File     string
	Language Language
	Symbols  []symbol.Symbol    // Top-level symbols in declaration order
	Errors   []*ExtractionError // Constructs the adapter could not classify
}

// All returns a restartable sequence over the top-level symbols.
func (e *Extraction) All() iter.Seq[symbol.Symbol] {
	return func(yield func(symbol.Symbol) bool) {
		for _, s := range e.Symbols {
			if !yield(s) {
				return
			}
		}
	}
}

// Count returns the number of symbols in the tree, nested ones included.
func (e *Extraction) Count() int {
	n := 0
	for range symbol.Walk(e.Symbols) {
		n++
	}
	return n
}

// ParseError reports a file whose syntax tree could not be consumed.
// It is local to that file: callers record it and continue.
type ParseError struct {
	File   string
	Line   int
	Column int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s:%d:%d: %s", e.File, e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("parse error in %s: %s", e.File, e.Reason)
}

// ExtractionError reports a recognised construct the adapter cannot map
// onto the symbol model. The rest of the file is still extracted.
type ExtractionError struct {
	Location  symbol.Location
	Construct string // Grammar node kind
	Reason    string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: cannot extract %s: %s", e.Location, e.Construct, e.Reason)
}
