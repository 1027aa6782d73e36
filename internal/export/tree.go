package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/mvp-joe/symgraph/internal/indexer"
	"github.com/mvp-joe/symgraph/internal/symbol"
)

// WriteTree writes an indented outline of the merged symbols followed by
// conflicts and errors.
func WriteTree(w io.Writer, result *indexer.Result) error {
	var sb strings.Builder

	if result.Registry != nil {
		for _, s := range result.Registry.Tree() {
			formatSymbol(&sb, s, 0)
		}
	}

	if len(result.Conflicts) > 0 {
		sb.WriteString("\nConflicts:\n")
		for _, c := range result.Conflicts {
			fmt.Fprintf(&sb, "  - %s\n", c.Error())
		}
	}
	if len(result.ParseErrors) > 0 {
		sb.WriteString("\nParse errors:\n")
		for _, e := range result.ParseErrors {
			fmt.Fprintf(&sb, "  - %s\n", e.Error())
		}
	}
	if len(result.ExtractionErrors) > 0 {
		sb.WriteString("\nExtraction errors:\n")
		for _, e := range result.ExtractionErrors {
			fmt.Fprintf(&sb, "  - %s\n", e.Error())
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func formatSymbol(sb *strings.Builder, s symbol.Symbol, depth int) {
	indent := strings.Repeat("  ", depth)
	decl := ""
	if s.DeclarationOnly {
		decl = " [declaration]"
	}

	switch s.Kind {
	case symbol.KindFunction:
		fmt.Fprintf(sb, "%sfunction %s%s%s (%s)\n", indent, prefixType(s.ReturnType), s.Name, formatParams(s.Params), s.Location)
	case symbol.KindEnum:
		names := make([]string, 0, len(s.Enumerators))
		for _, e := range s.Enumerators {
			if e.Explicit != "" {
				names = append(names, e.Name+" = "+e.Explicit)
			} else {
				names = append(names, e.Name)
			}
		}
		fmt.Fprintf(sb, "%senum %s { %s }%s (%s)\n", indent, s.Name, strings.Join(names, ", "), decl, s.Location)
	default:
		fmt.Fprintf(sb, "%s%s %s%s (%s)\n", indent, s.Kind, s.Name, decl, s.Location)
	}

	for _, m := range s.Members {
		formatMember(sb, m, depth+1)
	}
	for _, c := range s.Children {
		formatSymbol(sb, c, depth+1)
	}
}

func formatMember(sb *strings.Builder, m symbol.Member, depth int) {
	indent := strings.Repeat("  ", depth)
	static := ""
	if m.IsStatic && m.Kind == symbol.MemberField {
		static = "static "
	}

	switch m.Kind {
	case symbol.MemberField:
		fmt.Fprintf(sb, "%s%sfield %s%s\n", indent, static, prefixType(m.Type), m.Name)
	default:
		suffix := ""
		if m.IsConst {
			suffix = " const"
		}
		fmt.Fprintf(sb, "%s%s %s%s%s%s\n", indent, m.Kind, prefixType(m.ReturnType), m.Name, formatParams(m.Params), suffix)
	}
}

// prefixType renders a type token followed by a space, or nothing when absent.
func prefixType(t string) string {
	if t == "" {
		return ""
	}
	return t + " "
}

func formatParams(params []string) string {
	return "(" + strings.Join(params, ", ") + ")"
}
