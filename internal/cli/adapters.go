package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mvp-joe/symgraph/internal/adapters"
	"github.com/mvp-joe/symgraph/internal/config"
	"github.com/spf13/cobra"
)

// adaptersCmd represents the adapters command
var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List the enabled language adapters and the extensions they claim",
	Long: `Adapters lists the language adapters enabled by adapters.enabled, in the
order they are consulted. When two adapters claim an extension the first
one listed wins.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		cfg, err := config.LoadConfigFromDir(root)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return listAdapters(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(adaptersCmd)
}

func listAdapters(cfg *config.Config, out io.Writer) error {
	reg, err := adapters.Default(cfg.Adapters.Enabled)
	if err != nil {
		return err
	}
	for _, a := range reg.Adapters() {
		fmt.Fprintf(out, "%-12s %s\n", a.Language(), strings.Join(a.Extensions(), " "))
	}
	return nil
}
