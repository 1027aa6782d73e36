package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/symgraph/internal/config"
	"github.com/mvp-joe/symgraph/internal/indexer"
)

var (
	// ErrOutsideRoot indicates a requested path that resolves outside the project root
	ErrOutsideRoot = errors.New("path is outside the project root")

	// ErrDenied indicates a requested file on the deny list
	ErrDenied = errors.New("path is denied by policy")
)

// Analyzer runs the engine over a file or directory.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*indexer.Result, error)
}

// Engine is the Analyzer used by the server. Adapters and their extraction
// caches live as long as the server, so repeated calls over unchanged files
// skip re-parsing. Every call still merges into a fresh registry.
//
// Requested paths are confined to the project root: relative paths resolve
// against it, and anything that lands outside it after symlinks are followed
// is rejected.
type Engine struct {
	cfg      *config.Config
	rt       *config.Runtime
	root     string
	realRoot string
}

// NewEngine builds an engine from cfg for the project at root.
func NewEngine(cfg *config.Config, root string) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %s: %w", root, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %s: %w", root, err)
	}

	rt, err := cfg.NewRuntime(abs, nil)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, rt: rt, root: abs, realRoot: real}, nil
}

func (e *Engine) Analyze(ctx context.Context, path string) (*indexer.Result, error) {
	path, err := e.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		if e.rt.Indexer.Denied(path) {
			return nil, fmt.Errorf("%w: %s", ErrDenied, path)
		}
		return e.rt.Indexer.Run(ctx, []string{path})
	}

	fd, err := e.rt.Discovery(e.cfg, path)
	if err != nil {
		return nil, err
	}
	return e.rt.Indexer.RunDiscovered(ctx, fd)
}

// resolve anchors path at the project root and checks it stays inside.
func (e *Engine) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.root, path)
	}
	path = filepath.Clean(path)

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if !within(e.realRoot, real) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return path, nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Close releases the extraction caches.
func (e *Engine) Close() {
	e.rt.Close()
}
