package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootDirFlag string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "symgraph",
	Short: "symgraph - multi-language symbol extraction",
	Long: `symgraph parses source files with tree-sitter and merges the declarations
of every file into one symbol graph keyed by fully qualified path.

Configuration is read from .symgraph/config.yml in the project root and
may be overridden with SYMGRAPH_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDirFlag, "root", "C", "", "project root holding .symgraph/config.yml (default is the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// projectRoot resolves the --root flag, falling back to the working directory.
func projectRoot() (string, error) {
	if rootDirFlag != "" {
		return rootDirFlag, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return dir, nil
}
