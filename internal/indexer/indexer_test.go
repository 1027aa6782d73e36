package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mvp-joe/symgraph/internal/adapters"
	"github.com/mvp-joe/symgraph/internal/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Indexer:
// - The C++ fixture yields the expected merged tree end to end
// - Files of several languages merge into one registry
// - A parse error skips only that file
// - Unsupported files are counted as skipped
// - An unreadable file fails the run
// - Conflicts keep the symbol from the earlier file in input order, on every run
// - Progress callbacks fire once per file
// - A cancelled context fails the run
// - Watch re-runs after a supported file changes
// - With a root, Python and Go namespaces follow the directory layout
// - Files over the size limit become parse errors without being read
// - Denied files are skipped, matched by base name ignoring case

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newIndexer(t *testing.T, opts ...Option) *Indexer {
	t.Helper()
	reg, err := adapters.Default(nil)
	require.NoError(t, err)
	return New(reg, opts...)
}

func TestIndexer_FixtureEndToEnd(t *testing.T) {
	t.Parallel()

	ix := newIndexer(t)
	result, err := ix.Run(context.Background(), []string{"../../testdata/code/cpp/sample.cpp"})
	require.NoError(t, err)

	assert.Empty(t, result.ParseErrors)
	assert.Empty(t, result.ExtractionErrors)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, 1, result.Stats.FilesExtracted)
	assert.Equal(t, 5, result.Stats.Symbols)

	var names []string
	for s := range result.Registry.Walk() {
		names = append(names, s.QualifiedName())
	}
	assert.Equal(t, []string{
		"engine",
		"engine::Service",
		"engine::Config",
		"engine::Mode",
		"engine::parse_value",
	}, names)

	mode, ok := result.Registry.Lookup(symbol.Path{"engine", "Mode"})
	require.True(t, ok)
	require.Len(t, mode.Enumerators, 2)
	assert.Equal(t, "Fast", mode.Enumerators[0].Name)
	assert.Equal(t, 0, mode.Enumerators[0].Value)
	assert.Equal(t, 1, mode.Enumerators[1].Value)
}

func TestIndexer_MixedBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "engine.hpp", "namespace engine {\nstruct Widget;\n}\n"),
		writeFile(t, dir, "engine.cpp", "namespace engine {\nstruct Widget { int size; };\nint start() { return 0; }\n}\n"),
		writeFile(t, dir, "broken.cpp", "namespace engine {\nclass Broken {\n    int value\n"),
		writeFile(t, dir, "util.c", "int add(int a, int b) { return a + b; }\n"),
		writeFile(t, dir, "tmpl.cpp", "template <typename T>\nclass Box { T value; };\n"),
		writeFile(t, dir, "README.md", "# readme\n"),
	}

	result, err := newIndexer(t, WithWorkers(2)).Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 6, result.Stats.FilesDiscovered)
	assert.Equal(t, 4, result.Stats.FilesExtracted)
	assert.Equal(t, 1, result.Stats.FilesSkipped)
	require.Len(t, result.ParseErrors, 1)
	assert.Equal(t, files[2], result.ParseErrors[0].File)
	assert.Len(t, result.ExtractionErrors, 1)
	assert.Empty(t, result.Conflicts)

	widget, ok := result.Registry.Lookup(symbol.Path{"engine", "Widget"})
	require.True(t, ok)
	assert.False(t, widget.DeclarationOnly)
	assert.Len(t, widget.Members, 1)

	_, ok = result.Registry.Lookup(symbol.Path{"add"})
	assert.True(t, ok)
	_, ok = result.Registry.Lookup(symbol.Path{"Box"})
	assert.True(t, ok)
}

func TestIndexer_UnreadableFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a.cpp", "int a() { return 1; }\n"),
		filepath.Join(dir, "missing.cpp"),
	}

	result, err := newIndexer(t).Run(context.Background(), files)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "missing.cpp")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIndexer_ConflictsFollowInputOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeFile(t, dir, "first.cpp", "int run() { return 1; }\n")
	second := writeFile(t, dir, "second.cpp", "long run() { return 2; }\n")

	for range 5 {
		result, err := newIndexer(t, WithWorkers(4)).Run(context.Background(), []string{first, second})
		require.NoError(t, err)

		require.Len(t, result.Conflicts, 1)
		assert.Equal(t, first, result.Conflicts[0].Existing.File)
		assert.Equal(t, second, result.Conflicts[0].Incoming.File)

		run, ok := result.Registry.Lookup(symbol.Path{"run"})
		require.True(t, ok)
		assert.Equal(t, "int", run.ReturnType)
	}
}

// countingReporter counts progress callbacks.
type countingReporter struct {
	NoOpProgressReporter
	mu        sync.Mutex
	processed []string
	total     int
	completed *Stats
}

func (r *countingReporter) OnFileProcessingStart(total int) { r.total = total }

func (r *countingReporter) OnFileProcessed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, name)
}

func (r *countingReporter) OnComplete(stats *Stats) { r.completed = stats }

func TestIndexer_Progress(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a.cpp", "int a();\n"),
		writeFile(t, dir, "b.rs", "fn b() {}\n"),
		writeFile(t, dir, "c.txt", "text\n"),
	}

	reporter := &countingReporter{}
	_, err := newIndexer(t, WithProgress(reporter)).Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 3, reporter.total)
	assert.ElementsMatch(t, files, reporter.processed)
	require.NotNil(t, reporter.completed)
	assert.Equal(t, 2, reporter.completed.Symbols)
}

func TestIndexer_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeFile(t, dir, "a.cpp", "int a();\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newIndexer(t).Run(ctx, []string{file})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexer_Watch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.cpp", "int a();\n")

	ix := newIndexer(t)
	fd, err := NewFileDiscovery(dir, nil, nil, ix.adapters.Supports)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan *Result, 4)
	done := make(chan error, 1)
	go func() {
		done <- ix.Watch(ctx, fd, WatchOptions{Dirs: []string{dir}, Debounce: 100 * time.Millisecond}, func(r *Result, err error) {
			if err == nil {
				results <- r
			}
		})
	}()

	first := waitResult(t, results)
	assert.Equal(t, 1, first.Stats.Symbols)

	writeFile(t, dir, "b.cpp", "int b();\n")
	writeFile(t, dir, "notes.md", "ignored\n")

	second := waitResult(t, results)
	assert.Equal(t, 2, second.Stats.Symbols)
	assert.Equal(t, 2, second.Stats.FilesDiscovered)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func waitResult(t *testing.T, results <-chan *Result) *Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no result before timeout")
		return nil
	}
}

func TestIndexer_RootNamesPackages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "pkg_a/utils.py", "def helper():\n    pass\n"),
		writeFile(t, dir, "pkg_b/utils.py", "def helper():\n    pass\n"),
		writeFile(t, dir, "pkg_b/__init__.py", "def setup():\n    pass\n"),
		writeFile(t, dir, "cmd/one/main.go", "package main\n\nfunc main() {}\n"),
		writeFile(t, dir, "cmd/two/main.go", "package main\n\nfunc main() {}\n"),
		writeFile(t, dir, "worker/run.go", "package worker\n\nfunc Run() {}\n"),
	}

	result, err := newIndexer(t, WithRoot(dir)).Run(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, result.Conflicts)

	for _, path := range []string{
		"pkg_a::utils::helper",
		"pkg_b::utils::helper",
		"pkg_b::setup",
		"cmd::one::main::main",
		"cmd::two::main::main",
		"worker::Run",
	} {
		_, ok := result.Registry.Lookup(symbol.ParsePath(path))
		assert.True(t, ok, "missing %s", path)
	}

	flat, err := newIndexer(t).Run(context.Background(), files[:2])
	require.NoError(t, err)
	require.Len(t, flat.Conflicts, 1)
	assert.Equal(t, "utils::helper", flat.Conflicts[0].Path.String())
}

func TestIndexer_MaxFileBytes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	small := writeFile(t, dir, "small.cpp", "int f();\n")
	large := writeFile(t, dir, "large.cpp", "int g();\n// 0123456789012345678901234567890123456789\n")

	result, err := newIndexer(t, WithMaxFileBytes(32)).Run(context.Background(), []string{small, large})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.FilesExtracted)
	require.Len(t, result.ParseErrors, 1)
	assert.Equal(t, large, result.ParseErrors[0].File)
	assert.Contains(t, result.ParseErrors[0].Error(), "byte limit")

	unlimited, err := newIndexer(t, WithMaxFileBytes(0)).Run(context.Background(), []string{small, large})
	require.NoError(t, err)
	assert.Equal(t, 2, unlimited.Stats.FilesExtracted)
}

func TestIndexer_DenyList(t *testing.T) {
	t.Parallel()

	deny, err := NewDenyList([]string{".env", "*.pem", "id_rsa*"})
	require.NoError(t, err)
	assert.True(t, deny.Match("/repo/.env"))
	assert.True(t, deny.Match("keys/Server.PEM"))
	assert.True(t, deny.Match("id_rsa.py"))
	assert.False(t, deny.Match("env.py"))

	var none *DenyList
	assert.False(t, none.Match(".env"))

	_, err = NewDenyList([]string{"[oops"})
	assert.Error(t, err)

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "id_rsa.py", "def key():\n    pass\n"),
		writeFile(t, dir, "ok.py", "def ok():\n    pass\n"),
	}
	ix := newIndexer(t, WithDenyList(deny))
	assert.True(t, ix.Denied(files[0]))

	result, err := ix.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.FilesSkipped)
	assert.Equal(t, 1, result.Stats.FilesExtracted)
}
