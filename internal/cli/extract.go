package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mvp-joe/symgraph/internal/config"
	"github.com/mvp-joe/symgraph/internal/export"
	"github.com/mvp-joe/symgraph/internal/indexer"
	"github.com/mvp-joe/symgraph/internal/storage"
	"github.com/spf13/cobra"
)

var (
	quietFlag   bool
	watchFlag   bool
	jsonFlag    bool
	sqliteFlag  string
	workersFlag int
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [paths...]",
	Short: "Extract and merge the symbols of source files",
	Long: `Extract parses every supported source file and merges the declarations
into one symbol graph keyed by fully qualified path.

Directories are walked using paths.code and paths.ignore from the project
configuration. Files are analysed as given, even when ignored.

The run prints the merged tree (or JSON with --json) followed by any
conflicts, parse errors and extraction errors. A parse error skips its
file; the run itself only fails on I/O errors or interruption.

Examples:
  # Extract the current directory
  symgraph extract

  # Extract two files and print JSON
  symgraph extract --json src/a.cpp src/b.cpp

  # Also store the run in SQLite
  symgraph extract --sqlite .symgraph/symbols.db

  # Re-run whenever a source file changes
  symgraph extract --watch
`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	extractCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and re-run")
	extractCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of a tree (overrides output.format)")
	extractCmd.Flags().StringVar(&sqliteFlag, "sqlite", "", "Also write the run to this SQLite database (overrides output.sqlite_path)")
	extractCmd.Flags().IntVar(&workersFlag, "workers", 0, "Parallel extractions (overrides indexer.workers)")
}

// extractOptions carries the resolved command line of one extract invocation.
type extractOptions struct {
	root    string
	paths   []string
	quiet   bool
	watch   bool
	json    bool
	sqlite  string
	workers int
}

func runExtract(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted! Cancelling extraction...")
			cancel()
		case <-ctx.Done():
		}
	}()

	root, err := projectRoot()
	if err != nil {
		return err
	}

	opts := extractOptions{
		root:    root,
		paths:   args,
		quiet:   quietFlag,
		watch:   watchFlag,
		json:    jsonFlag,
		sqlite:  sqliteFlag,
		workers: workersFlag,
	}
	return executeExtract(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// executeExtract runs one extraction (or a watch loop) and renders the result to stdout.
func executeExtract(ctx context.Context, opts extractOptions, stdout, stderr io.Writer) error {
	cfg, err := config.LoadConfigFromDir(opts.root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.workers > 0 {
		cfg.Indexer.Workers = opts.workers
	}
	if opts.json {
		cfg.Output.Format = config.FormatJSON
	}
	if opts.sqlite != "" {
		cfg.Output.SQLitePath = opts.sqlite
	}

	var progress indexer.ProgressReporter = &indexer.NoOpProgressReporter{}
	if !opts.quiet {
		progress = NewCLIProgressReporter(stderr, false)
	}

	rt, err := cfg.NewRuntime(opts.root, progress)
	if err != nil {
		return err
	}
	defer rt.Close()

	if opts.watch {
		return watchExtract(ctx, cfg, rt, opts, stdout)
	}

	files, err := collectFiles(cfg, rt, opts)
	if err != nil {
		return err
	}
	result, err := rt.Indexer.Run(ctx, files)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction cancelled")
		}
		return fmt.Errorf("extraction failed: %w", err)
	}
	return emitResult(cfg, opts.root, result, stdout)
}

// collectFiles expands directory arguments through discovery and keeps file
// arguments as given. No arguments means the project root.
func collectFiles(cfg *config.Config, rt *config.Runtime, opts extractOptions) ([]string, error) {
	paths := opts.paths
	if len(paths) == 0 {
		paths = []string{opts.root}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		fd, err := rt.Discovery(cfg, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create file discovery: %w", err)
		}
		found, err := rt.Indexer.Discover(fd)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

// watchExtract renders every run until ctx ends. At most one directory may
// be given; it defaults to the project root.
func watchExtract(ctx context.Context, cfg *config.Config, rt *config.Runtime, opts extractOptions, stdout io.Writer) error {
	dir := opts.root
	switch len(opts.paths) {
	case 0:
	case 1:
		dir = opts.paths[0]
	default:
		return errors.New("--watch takes at most one directory")
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("--watch needs a directory, got %s", dir)
	}

	fd, err := rt.Discovery(cfg, dir)
	if err != nil {
		return fmt.Errorf("failed to create file discovery: %w", err)
	}

	if !opts.quiet {
		log.Printf("Watching %s for changes...", dir)
	}
	err = rt.Indexer.Watch(ctx, fd, indexer.WatchOptions{Dirs: []string{dir}}, func(result *indexer.Result, err error) {
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("Warning: extraction failed: %v", err)
			}
			return
		}
		if err := emitResult(cfg, opts.root, result, stdout); err != nil {
			log.Printf("Warning: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("watch mode failed: %w", err)
	}

	if !opts.quiet {
		log.Println("Watch mode stopped")
	}
	return nil
}

// emitResult prints result in the configured format and stores it when a
// SQLite path is configured. Relative database paths resolve against root.
func emitResult(cfg *config.Config, root string, result *indexer.Result, stdout io.Writer) error {
	var err error
	if cfg.Output.Format == config.FormatJSON {
		err = export.WriteJSON(stdout, result)
	} else {
		err = export.WriteTree(stdout, result)
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if cfg.Output.SQLitePath == "" {
		return nil
	}
	dbPath := cfg.Output.SQLitePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.NewSymbolWriter(db).WriteResult(result); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}
