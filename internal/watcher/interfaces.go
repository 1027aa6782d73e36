package watcher

import "context"

// FileWatcher monitors source trees for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching, calling callback with each debounced batch of changed files.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the watcher and releases its resources. Safe to call more than once.
	Stop() error

	// Pause stops firing callbacks but keeps accumulating events.
	Pause()

	// Resume fires immediately if events accumulated while paused.
	Resume()
}

// Filter reports whether a changed file is relevant to the caller.
type Filter func(path string) bool

// skippedDirs are never watched.
var skippedDirs = map[string]bool{
	".git":         true,
	".symgraph":    true,
	"node_modules": true,
}
