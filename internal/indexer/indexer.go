package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mvp-joe/symgraph/internal/adapters"
	"github.com/mvp-joe/symgraph/internal/registry"
	"golang.org/x/sync/errgroup"
)

// Indexer runs adapters over a batch of files and merges their symbol trees
// into a fresh registry. Extraction is parallel; merging happens on a single
// writer in input order, so a run is deterministic for a given file list.
type Indexer struct {
	adapters *adapters.Registry
	workers  int
	progress ProgressReporter
	root     string
	maxBytes int64
	deny     *DenyList
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithWorkers bounds the number of files extracted at once. Values below one
// fall back to the number of CPUs.
func WithWorkers(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithProgress sets the progress reporter.
func WithProgress(p ProgressReporter) Option {
	return func(ix *Indexer) {
		if p != nil {
			ix.progress = p
		}
	}
}

// WithRoot sets the project root. Sources under it carry their relative
// path, which adapters use to name packages and modules.
func WithRoot(dir string) Option {
	return func(ix *Indexer) {
		if dir == "" {
			return
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		ix.root = filepath.Clean(dir)
	}
}

// WithMaxFileBytes reports files larger than n bytes as parse errors
// without reading them. Zero disables the limit.
func WithMaxFileBytes(n int64) Option {
	return func(ix *Indexer) {
		ix.maxBytes = max(n, 0)
	}
}

// WithDenyList skips files matched by d without reading them.
func WithDenyList(d *DenyList) Option {
	return func(ix *Indexer) {
		ix.deny = d
	}
}

// New creates an indexer dispatching through reg.
func New(reg *adapters.Registry, opts ...Option) *Indexer {
	ix := &Indexer{
		adapters: reg,
		workers:  runtime.NumCPU(),
		progress: &NoOpProgressReporter{},
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// outcome is what one file contributed, delivered to the merger in input order.
type outcome struct {
	ext      *adapters.Extraction
	parseErr *adapters.ParseError
	skipped  bool
}

// Discover runs fd and reports progress.
func (ix *Indexer) Discover(fd *FileDiscovery) ([]string, error) {
	ix.progress.OnDiscoveryStart()
	files, err := fd.DiscoverFiles()
	if err != nil {
		return nil, err
	}
	ix.progress.OnDiscoveryComplete(len(files))
	return files, nil
}

// RunDiscovered discovers files with fd and runs over them.
func (ix *Indexer) RunDiscovered(ctx context.Context, fd *FileDiscovery) (*Result, error) {
	files, err := ix.Discover(fd)
	if err != nil {
		return nil, err
	}
	return ix.Run(ctx, files)
}

// Run extracts every file and merges the results. Parse errors, extraction
// errors and conflicts are collected on the result. Only a file that cannot
// be read, or a cancelled context, fails the run.
func (ix *Indexer) Run(ctx context.Context, files []string) (*Result, error) {
	start := time.Now()
	ix.progress.OnFileProcessingStart(len(files))

	reducer := registry.NewReducer(registry.New(), ix.workers)
	ready := make([]chan outcome, len(files))
	for i := range ready {
		ready[i] = make(chan outcome, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	result := &Result{}
	merged := make(chan error, 1)
	go func() {
		merged <- ix.merge(ctx, gctx, reducer, ready, result)
	}()

	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := ix.extract(gctx, path)
			if err != nil {
				return err
			}
			ready[i] <- out
			ix.progress.OnFileProcessed(path)
			return nil
		})
	}

	runErr := g.Wait()
	mergeErr := <-merged
	reg := reducer.Close()

	if runErr != nil {
		return nil, runErr
	}
	if mergeErr != nil {
		return nil, mergeErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Registry = reg
	result.Conflicts = reg.Conflicts()
	result.Stats.FilesDiscovered = len(files)
	result.Stats.ParseErrors = len(result.ParseErrors)
	result.Stats.ExtractionErrors = len(result.ExtractionErrors)
	result.Stats.Conflicts = len(result.Conflicts)
	result.Stats.Symbols = reg.Len()
	result.Stats.Duration = time.Since(start)

	ix.progress.OnComplete(&result.Stats)
	return result, nil
}

// merge forwards outcomes to the reducer strictly in input order and does
// the bookkeeping. It is the only sender on the reducer. gctx ends when the
// extraction group does, so a pending slot is rechecked before giving up.
func (ix *Indexer) merge(ctx, gctx context.Context, reducer *registry.Reducer, ready []chan outcome, result *Result) error {
	for i := range ready {
		var out outcome
		select {
		case out = <-ready[i]:
		case <-gctx.Done():
			select {
			case out = <-ready[i]:
			default:
				return gctx.Err()
			}
		}

		switch {
		case out.skipped:
			result.Stats.FilesSkipped++
		case out.parseErr != nil:
			result.ParseErrors = append(result.ParseErrors, out.parseErr)
		default:
			result.Stats.FilesExtracted++
			result.ExtractionErrors = append(result.ExtractionErrors, out.ext.Errors...)
			if err := reducer.Send(ctx, out.ext); err != nil {
				return err
			}
		}
	}
	return nil
}

// Denied reports whether path is on the deny list.
func (ix *Indexer) Denied(path string) bool {
	return ix.deny.Match(path)
}

// extract reads and extracts one file. Unreadable files are fatal; parse
// errors, oversized files and unsupported or denied files are reported on
// the outcome.
func (ix *Indexer) extract(ctx context.Context, path string) (outcome, error) {
	adapter, err := ix.adapters.ForPath(path)
	if errors.Is(err, adapters.ErrNoAdapter) || ix.Denied(path) {
		return outcome{skipped: true}, nil
	}
	if err != nil {
		return outcome{}, err
	}

	if ix.maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return outcome{}, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.Size() > ix.maxBytes {
			return outcome{parseErr: &adapters.ParseError{
				File:   path,
				Reason: fmt.Sprintf("file is %d bytes, over the %d byte limit", info.Size(), ix.maxBytes),
			}}, nil
		}
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return outcome{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	ext, err := adapter.Extract(ctx, adapters.Source{
		Path:     path,
		Rel:      ix.relPath(path),
		Language: adapter.Language(),
		Text:     text,
	})
	var perr *adapters.ParseError
	switch {
	case errors.As(err, &perr):
		return outcome{parseErr: perr}, nil
	case err != nil:
		return outcome{}, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return outcome{ext: ext}, nil
}

// relPath returns path relative to the project root in slash form, or ""
// when there is no root or path lies outside it.
func (ix *Indexer) relPath(path string) string {
	if ix.root == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(ix.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}
