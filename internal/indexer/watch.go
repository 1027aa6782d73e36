package indexer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mvp-joe/symgraph/internal/watcher"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	Dirs     []string      // Directories to watch recursively
	Debounce time.Duration // Zero uses the watcher default
}

// Watch runs a full analysis with fd, then again after every debounced
// batch of changes to supported files, until ctx is done. Each run starts
// from an empty registry; nothing carries over between runs. onResult
// receives every run's result or error. Watch returns nil when ctx ends.
func (ix *Indexer) Watch(ctx context.Context, fd *FileDiscovery, opts WatchOptions, onResult func(*Result, error)) error {
	w, err := watcher.NewFileWatcher(opts.Dirs, ix.adapters.Supports, watcher.WithDebounce(opts.Debounce))
	if err != nil {
		return fmt.Errorf("failed to watch %v: %w", opts.Dirs, err)
	}
	defer w.Stop()

	trigger := make(chan []string, 1)
	err = w.Start(ctx, func(files []string) {
		select {
		case trigger <- files:
		default:
			// A run is already queued; it will rediscover everything
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	onResult(ix.RunDiscovered(ctx, fd))
	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-trigger:
			log.Printf("Detected %d changed file(s), re-running analysis", len(changed))
			w.Pause()
			onResult(ix.RunDiscovered(ctx, fd))
			w.Resume()
		}
	}
}
