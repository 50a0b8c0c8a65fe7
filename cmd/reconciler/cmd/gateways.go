package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gateway-reconciliation-service/internal/gateway"
)

// gatewaysCmd lists the built-in gateway configurations.
var gatewaysCmd = &cobra.Command{
	Use:   "gateways",
	Short: "List registered gateway configurations",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "GATEWAY\tSIDE\tFILETYPES\tPREFIX\tSCORER\tFUZZY")
		for _, cfg := range gateway.BuiltinConfigs() {
			cfg.ApplyDefaults()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
				cfg.Gateway, cfg.ConfigType,
				strings.Join(cfg.ExpectedFiletypes, ","),
				cfg.FilenamePrefix, cfg.FuzzyScorer, cfg.FuzzyThreshold)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(gatewaysCmd)
}
