package adapters

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
)

// NewCppAdapter creates the reference C++ adapter.
// Headers with a plain .h extension are claimed here; C code parses under
// the C++ grammar for every construct the symbol model covers.
func NewCppAdapter() Adapter {
	lang := sitter.NewLanguage(cpp.Language())
	return &cFamilyAdapter{
		treeSitterParser: newTreeSitterParser(lang, LangCpp, cFamilyBodies,
			".cpp", ".cc", ".cxx", ".c++", ".hpp", ".hh", ".hxx", ".h++", ".h"),
	}
}
