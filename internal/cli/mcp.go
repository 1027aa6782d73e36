package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/symgraph/internal/config"
	"github.com/mvp-joe/symgraph/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for symbol extraction",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can
ask for the symbol outline of files and directories.

The MCP server:
- Provides symbol_outline, symbol_lookup and symbol_find tools
- Analyses paths on demand using the project configuration
- Communicates via stdio (standard MCP transport)

Example:
  symgraph mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Stdout carries the protocol
	fmt.Fprintf(os.Stderr, "symgraph MCP Server %s\n", Version)
	fmt.Fprintf(os.Stderr, "Project: %s\n\n", root)

	server, err := mcp.NewMCPServer(cfg, root, Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	if err := server.Serve(context.Background()); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
