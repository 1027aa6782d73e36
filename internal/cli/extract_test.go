package cli

// Test Plan for extract, query and adapters:
// - Commands are registered on the root command
// - extract over a directory prints the merged tree, skipping unsupported files
// - --json prints a document with symbols, conflicts and errors
// - Conflicting definitions across files are reported, the run still succeeds
// - File arguments are analysed as given alongside directories, without duplicates
// - A missing path argument fails before extraction
// - --sqlite stores the run and query reads it back by name and by path
// - query on a missing database fails without creating it
// - --watch rejects several directories
// - adapters honours adapters.enabled
// - formatNumber inserts thousand separators

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/symgraph/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sourceA = `namespace demo {
int add(int a, int b) { return a + b; }
}
`
	sourceB = `namespace demo {
enum Mode { Fast, Slow };
}
int run() { return 1; }
`
	sourceC = `int run() { return 2; }
`
)

// setupProject writes files (relative path -> content) under a fresh root.
func setupProject(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func extract(t *testing.T, opts extractOptions) (string, error) {
	t.Helper()

	opts.quiet = true
	var stdout, stderr bytes.Buffer
	err := executeExtract(context.Background(), opts, &stdout, &stderr)
	return stdout.String(), err
}

func TestCommands_AreRegistered(t *testing.T) {
	t.Parallel()

	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"extract", "query", "adapters", "mcp", "version"} {
		assert.True(t, names[want], "%s command should be registered", want)
	}
}

func TestExtract_DirectoryTree(t *testing.T) {
	t.Parallel()

	root := setupProject(t, map[string]string{
		"src/a.cpp": sourceA,
		"src/b.cpp": sourceB,
		"README.md": "# not code\n",
	})

	out, err := extract(t, extractOptions{root: root})
	require.NoError(t, err)

	assert.Contains(t, out, "namespace demo (")
	assert.Contains(t, out, "function int add(int, int)")
	assert.Contains(t, out, "enum Mode { Fast, Slow }")
	assert.Contains(t, out, "function int run()")
	assert.NotContains(t, out, "Conflicts:")
	assert.NotContains(t, out, "README")
}

func TestExtract_JSON(t *testing.T) {
	t.Parallel()

	root := setupProject(t, map[string]string{
		"a.cpp":   sourceA,
		"bad.cpp": "namespace demo {\nclass Broken {\n    int value\n",
	})

	out, err := extract(t, extractOptions{root: root, json: true})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	for _, key := range []string{"symbols", "conflicts", "parse_errors", "extraction_errors", "stats"} {
		assert.Contains(t, doc, key)
	}

	symbols, ok := doc["symbols"].([]any)
	require.True(t, ok)
	require.Len(t, symbols, 1)
	assert.Equal(t, "demo", symbols[0].(map[string]any)["name"])

	parseErrors, ok := doc["parse_errors"].([]any)
	require.True(t, ok)
	assert.Len(t, parseErrors, 1)
}

func TestExtract_ReportsConflicts(t *testing.T) {
	t.Parallel()

	root := setupProject(t, map[string]string{
		"b.cpp": sourceB,
		"c.cpp": sourceC,
	})

	out, err := extract(t, extractOptions{root: root})
	require.NoError(t, err)

	assert.Contains(t, out, "Conflicts:")
	assert.Contains(t, out, "conflict at run")
	assert.Contains(t, out, "b.cpp:4")
	assert.Contains(t, out, "c.cpp:1")
}

func TestExtract_FileAndDirectoryArguments(t *testing.T) {
	t.Parallel()

	root := setupProject(t, map[string]string{
		"lib/a.cpp":   sourceA,
		"other/b.cpp": sourceB,
	})
	libDir := filepath.Join(root, "lib")
	fileB := filepath.Join(root, "other", "b.cpp")

	// lib/a.cpp is named twice but extracted once
	out, err := extract(t, extractOptions{
		root:  root,
		json:  true,
		paths: []string{libDir, fileB, filepath.Join(libDir, "a.cpp")},
	})
	require.NoError(t, err)

	var doc struct {
		Stats struct {
			FilesDiscovered int `json:"files_discovered"`
			Conflicts       int `json:"conflicts"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 2, doc.Stats.FilesDiscovered)
	assert.Zero(t, doc.Stats.Conflicts)

	_, err = extract(t, extractOptions{root: root, paths: []string{filepath.Join(root, "missing")}})
	assert.Error(t, err)
}

func TestExtract_SQLiteAndQuery(t *testing.T) {
	t.Parallel()

	root := setupProject(t, map[string]string{
		"a.cpp": sourceA,
		"b.cpp": sourceB,
	})

	_, err := extract(t, extractOptions{root: root, sqlite: "out/symbols.db"})
	require.NoError(t, err)

	dbPath := filepath.Join(root, "out", "symbols.db")
	require.FileExists(t, dbPath)

	var byName bytes.Buffer
	require.NoError(t, executeQuery(dbPath, "add", &byName))
	assert.Equal(t, "demo::add\n", byName.String())

	var byPath bytes.Buffer
	require.NoError(t, executeQuery(dbPath, "demo::Mode", &byPath))
	var sym map[string]any
	require.NoError(t, json.Unmarshal(byPath.Bytes(), &sym))
	assert.Equal(t, "Mode", sym["name"])

	assert.Error(t, executeQuery(dbPath, "nothing", &bytes.Buffer{}))
	assert.Error(t, executeQuery(dbPath, "demo::nothing", &bytes.Buffer{}))
}

func TestQuery_MissingDatabase(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "absent.db")
	assert.Error(t, executeQuery(dbPath, "add", &bytes.Buffer{}))
	assert.NoFileExists(t, dbPath)
}

func TestExtract_WatchRejectsSeveralDirectories(t *testing.T) {
	t.Parallel()

	root := setupProject(t, map[string]string{"a.cpp": sourceA})
	_, err := extract(t, extractOptions{root: root, watch: true, paths: []string{root, root}})
	assert.ErrorContains(t, err, "at most one directory")
}

func TestListAdapters(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Adapters.Enabled = []string{"rust", "cpp"}

	var out bytes.Buffer
	require.NoError(t, listAdapters(cfg, &out))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "cpp")
	assert.Contains(t, string(lines[0]), ".hpp")
	assert.Contains(t, string(lines[1]), "rust")
	assert.Contains(t, string(lines[1]), ".rs")
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		number   int
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatNumber(tt.number))
	}
}
