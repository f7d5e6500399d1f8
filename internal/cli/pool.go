package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speedex-core/speedexd/internal/config"
	"github.com/speedex-core/speedexd/internal/core/ledger/entry/entries"
	"github.com/speedex-core/speedexd/internal/storage/ledgerstore"
)

var (
	poolSelling  string
	poolBuying   string
	poolFeeBps   uint32
	poolReserveA int64
	poolReserveB int64
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Liquidity pool operations",
}

var poolCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a liquidity pool over an asset pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		assetA, err := config.ParseAsset(poolSelling)
		if err != nil {
			return err
		}
		assetB, err := config.ParseAsset(poolBuying)
		if err != nil {
			return err
		}

		fee := poolFeeBps
		if !cmd.Flags().Changed("fee-bps") {
			fee = cfg.Exchange.DefaultPoolFeeBps
		}
		pool, err := entries.NewLiquidityPool(assetA, assetB, fee)
		if err != nil {
			return err
		}
		if err := pool.Transfer(poolReserveA, poolReserveB); err != nil {
			return err
		}

		store, err := ledgerstore.Open(cfg.Store.LedgerPath, cfg.Store.CacheSize)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.StorePool(pool); err != nil {
			return err
		}
		fmt.Printf("pool %x: %s/%s fee %d bps reserves (%d, %d)\n",
			pool.PoolID, pool.AssetA, pool.AssetB, pool.FeeBps,
			pool.ReserveA, pool.ReserveB)
		return nil
	},
}

func init() {
	poolCreateCmd.Flags().StringVar(&poolSelling, "asset-a", "", "first pool asset")
	poolCreateCmd.Flags().StringVar(&poolBuying, "asset-b", "", "second pool asset")
	poolCreateCmd.Flags().Uint32Var(&poolFeeBps, "fee-bps", 0, "pool fee in basis points")
	poolCreateCmd.Flags().Int64Var(&poolReserveA, "reserve-a", 0, "initial reserve of the first asset")
	poolCreateCmd.Flags().Int64Var(&poolReserveB, "reserve-b", 0, "initial reserve of the second asset")
	_ = poolCreateCmd.MarkFlagRequired("asset-a")
	_ = poolCreateCmd.MarkFlagRequired("asset-b")
	poolCmd.AddCommand(poolCreateCmd)
	rootCmd.AddCommand(poolCmd)
}
