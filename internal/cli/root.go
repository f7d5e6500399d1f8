// Package cli wires the daemon's commands: store initialization, batch
// application, and version reporting.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/speedex-core/speedexd/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "speedexd",
	Short: "speedexd - batch-auction exchange daemon",
	Long: `speedexd runs the batch-auction exchange core: it admits
immediate-or-cancel offers against a ledger store, clears them together with
constant-product liquidity pools at a single price per asset, and archives
the clearing output.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}
