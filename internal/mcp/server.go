package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/symgraph/internal/config"
)

// ServerName is reported to MCP clients.
const ServerName = "symgraph"

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	engine *Engine
	mcp    *server.MCPServer
}

// NewMCPServer creates a server exposing the symbol tools for the project at root.
func NewMCPServer(cfg *config.Config, root, version string) (*MCPServer, error) {
	engine, err := NewEngine(cfg, root)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)
	AddSymbolOutlineTool(s, engine)
	AddSymbolLookupTool(s, engine)
	AddSymbolFindTool(s, engine)

	return &MCPServer{engine: engine, mcp: s}, nil
}

// Serve serves on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all resources.
func (s *MCPServer) Close() error {
	if s.engine != nil {
		s.engine.Close()
	}
	return nil
}
