package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mvp-joe/symgraph/internal/storage"
	"github.com/mvp-joe/symgraph/internal/symbol"
	"github.com/spf13/cobra"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <database> <name | qualified::path>",
	Short: "Query a symbol database written by extract --sqlite",
	Long: `Query reads a database written by "symgraph extract --sqlite".

A qualified path (containing "::") prints that symbol as JSON, namespace
children included. A bare name lists the qualified path of every symbol
with that name.

Examples:
  symgraph query .symgraph/symbols.db Service
  symgraph query .symgraph/symbols.db engine::Service
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeQuery(args[0], args[1], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func executeQuery(dbPath, query string, out io.Writer) error {
	// Opening would create an empty database
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	reader := storage.NewSymbolReader(db)

	if strings.Contains(query, symbol.Separator) {
		s, err := reader.Lookup(symbol.ParsePath(query))
		if errors.Is(err, storage.ErrSymbolNotFound) {
			return fmt.Errorf("no symbol at %s", query)
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	paths, err := reader.FindByName(query)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no symbol named %s", query)
	}
	for _, p := range paths {
		fmt.Fprintln(out, p.String())
	}
	return nil
}
