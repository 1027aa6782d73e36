package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/symgraph/internal/export"
	"github.com/mvp-joe/symgraph/internal/symbol"
)

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// AddSymbolOutlineTool registers symbol_outline.
func AddSymbolOutlineTool(s *server.MCPServer, analyzer Analyzer) {
	tool := mcp.NewTool(
		"symbol_outline",
		mcp.WithDescription("Extract the merged symbol outline (namespaces, classes, structs, enums, functions with their members) of a source file or directory. Returns JSON with the symbol tree, conflicts between files, and files that could not be parsed."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File or directory to analyse, relative to the project root")),
		mcp.WithBoolean("include_errors",
			mcp.Description("Include parse and extraction errors in the response (default: true)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createOutlineHandler(analyzer))
}

// AddSymbolLookupTool registers symbol_lookup.
func AddSymbolLookupTool(s *server.MCPServer, analyzer Analyzer) {
	tool := mcp.NewTool(
		"symbol_lookup",
		mcp.WithDescription("Look up one symbol by qualified path (segments joined with '::', e.g. 'engine::Service') after analysing a file or directory. A namespace also lists the qualified paths of everything nested under it."),
		mcp.WithString("root",
			mcp.Required(),
			mcp.Description("File or directory to analyse, relative to the project root")),
		mcp.WithString("qualified_path",
			mcp.Required(),
			mcp.Description("Qualified path of the symbol, e.g. 'engine::Service'")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createLookupHandler(analyzer))
}

// AddSymbolFindTool registers symbol_find.
func AddSymbolFindTool(s *server.MCPServer, analyzer Analyzer) {
	tool := mcp.NewTool(
		"symbol_find",
		mcp.WithDescription("Find every symbol with the given unqualified name after analysing a file or directory. Returns qualified paths in outline order."),
		mcp.WithString("root",
			mcp.Required(),
			mcp.Description("File or directory to analyse, relative to the project root")),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Unqualified symbol name, e.g. 'Service'")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of matches to return (1-500, default: 50)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createFindHandler(analyzer))
}

func createOutlineHandler(analyzer Analyzer) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args outlineArgs
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := requireString("path", args.Path); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := analyzer.Analyze(ctx, args.Path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		doc := export.NewDocument(result)
		if args.IncludeErrors != nil && !*args.IncludeErrors {
			doc.ParseErrors = []export.Problem{}
			doc.ExtractionErrors = []export.Problem{}
		}
		return jsonResult(doc)
	}
}

func createLookupHandler(analyzer Analyzer) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args lookupArgs
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := requireString("root", args.Root); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := requireString("qualified_path", args.QualifiedPath); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := analyzer.Analyze(ctx, args.Root)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		path := symbol.ParsePath(strings.TrimSpace(args.QualifiedPath))
		sym, ok := result.Registry.Lookup(path)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("symbol %s not found", path)), nil
		}

		descendants, err := result.Registry.Descendants(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list descendants: %v", err)), nil
		}

		response := &LookupResponse{Symbol: sym}
		for _, d := range descendants {
			response.Descendants = append(response.Descendants, d.String())
		}
		for _, c := range result.Conflicts {
			if c.Path.Equal(path) {
				response.Conflicts = append(response.Conflicts, c)
			}
		}
		return jsonResult(response)
	}
}

func createFindHandler(analyzer Analyzer) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args findArgs
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := requireString("root", args.Root); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := requireString("name", args.Name); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		limit := clampLimit(args.Limit)

		result, err := analyzer.Analyze(ctx, args.Root)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		response := &FindResponse{Matches: []FindMatch{}}
		for s := range result.Registry.Walk() {
			if s.Name != args.Name {
				continue
			}
			response.Total++
			if len(response.Matches) < limit {
				response.Matches = append(response.Matches, FindMatch{
					QualifiedName:   s.QualifiedName(),
					Kind:            s.Kind,
					Location:        s.Location,
					DeclarationOnly: s.DeclarationOnly,
				})
			}
		}
		return jsonResult(response)
	}
}

// jsonResult returns v as a JSON text result (mcp-go convention).
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
