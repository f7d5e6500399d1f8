package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speedex-core/speedexd/internal/storage/ledgerstore"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the ledger store with the configured exchange pair table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dexCfg, err := cfg.Exchange.BuildDexConfig()
		if err != nil {
			return err
		}

		store, err := ledgerstore.Open(cfg.Store.LedgerPath, cfg.Store.CacheSize)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.StoreDexConfig(dexCfg); err != nil {
			return fmt.Errorf("writing exchange configuration: %w", err)
		}
		fmt.Printf("initialized %s with %d tradable pairs\n",
			cfg.Store.LedgerPath, len(dexCfg.Pairs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
