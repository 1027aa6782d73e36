package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 500 * time.Millisecond

// Option configures a watcher.
type Option func(*fileWatcher)

// WithDebounce overrides the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(fw *fileWatcher) {
		if d > 0 {
			fw.debounceTime = d
		}
	}
}

type fileWatcher struct {
	watcher      *fsnotify.Watcher
	filter       Filter
	debounceTime time.Duration
	callback     func(files []string)
	cancel       context.CancelFunc

	pausedMu sync.RWMutex
	paused   bool

	pendingMu sync.Mutex
	pending   map[string]struct{}

	timerMu sync.Mutex
	timer   *time.Timer

	stopOnce sync.Once
	started  bool
	doneCh   chan struct{}
}

// NewFileWatcher watches every directory under dirs recursively. Only files
// accepted by filter are reported; a nil filter accepts everything.
func NewFileWatcher(dirs []string, filter Filter, opts ...Option) (FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}

	fw := &fileWatcher{
		watcher:      w,
		filter:       filter,
		debounceTime: DefaultDebounce,
		pending:      make(map[string]struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(fw)
	}

	for _, dir := range dirs {
		if err := fw.addRecursive(dir); err != nil {
			w.Close()
			return nil, err
		}
	}
	return fw, nil
}

func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}
	fw.callback = callback

	var watchCtx context.Context
	watchCtx, fw.cancel = context.WithCancel(ctx)
	fw.started = true
	go fw.loop(watchCtx)
	return nil
}

func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.started {
			fw.cancel()
			<-fw.doneCh
		}
		err = fw.watcher.Close()
	})
	return err
}

func (fw *fileWatcher) Pause() {
	fw.pausedMu.Lock()
	defer fw.pausedMu.Unlock()
	fw.paused = true
}

func (fw *fileWatcher) Resume() {
	fw.pausedMu.Lock()
	wasPaused := fw.paused
	fw.paused = false
	fw.pausedMu.Unlock()

	if wasPaused {
		fw.flush()
	}
}

func (fw *fileWatcher) loop(ctx context.Context) {
	defer close(fw.doneCh)

	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			fw.stopTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addRecursive(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}

			if !fw.relevant(event) {
				continue
			}

			fw.pendingMu.Lock()
			fw.pending[event.Name] = struct{}{}
			fw.pendingMu.Unlock()
			fw.resetTimer(fire)

		case <-fire:
			fw.pausedMu.RLock()
			paused := fw.paused
			fw.pausedMu.RUnlock()
			if !paused {
				fw.flush()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// flush hands the accumulated batch to the callback, sorted.
func (fw *fileWatcher) flush() {
	fw.pendingMu.Lock()
	if len(fw.pending) == 0 {
		fw.pendingMu.Unlock()
		return
	}
	files := make([]string, 0, len(fw.pending))
	for f := range fw.pending {
		files = append(files, f)
	}
	fw.pending = make(map[string]struct{})
	fw.pendingMu.Unlock()

	slices.Sort(files)
	if fw.callback != nil {
		fw.callback(files)
	}
}

func (fw *fileWatcher) resetTimer(fire chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounceTime, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (fw *fileWatcher) stopTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
		fw.timer = nil
	}
}

// relevant keeps writes, creates, removes and renames of accepted files.
func (fw *fileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return fw.filter(event.Name)
}

func (fw *fileWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skippedDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
