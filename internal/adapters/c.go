package adapters

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
)

// NewCAdapter creates a C adapter. It shares the C++ walker: C has no
// namespaces or classes, so only structs, unions, enums and functions appear.
func NewCAdapter() Adapter {
	lang := sitter.NewLanguage(c.Language())
	return &cFamilyAdapter{
		treeSitterParser: newTreeSitterParser(lang, LangC, cFamilyBodies, ".c"),
	}
}
