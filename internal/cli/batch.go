package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/speedex-core/speedexd/internal/config"
	"github.com/speedex-core/speedexd/internal/core/speedex"
	"github.com/speedex-core/speedexd/internal/core/tx"
	"github.com/speedex-core/speedexd/internal/core/types"
	"github.com/speedex-core/speedexd/internal/storage/history"
	"github.com/speedex-core/speedexd/internal/storage/ledgerstore"
)

// batchFile is the on-disk description of one batch: the offers to admit,
// the pools participating, and the candidate clearing prices per asset.
type batchFile struct {
	Seq    uint64            `json:"seq"`
	Prices map[string]uint64 `json:"prices"`
	Pools  []string          `json:"pools"`
	Offers []offerSpec       `json:"offers"`
}

type offerSpec struct {
	Account    string `json:"account"`
	Seq        int64  `json:"seq"`
	Op         uint32 `json:"op"`
	SellAsset  string `json:"sell_asset"`
	BuyAsset   string `json:"buy_asset"`
	SellAmount int64  `json:"sell_amount"`
	PriceN     int32  `json:"price_n"`
	PriceD     int32  `json:"price_d"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch operations",
}

var batchApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Admit, clear, and settle one batch from a batch file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runBatchApply(cfg, args[0])
	},
}

func init() {
	batchCmd.AddCommand(batchApplyCmd)
	rootCmd.AddCommand(batchCmd)
}

func parseAccountID(s string) (types.AccountID, error) {
	var id types.AccountID
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(id) {
		return id, fmt.Errorf("account %q: want %d hex-encoded bytes", s, len(id))
	}
	copy(id[:], raw)
	return id, nil
}

func parsePoolID(s string) (types.PoolID, error) {
	var id types.PoolID
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(id) {
		return id, fmt.Errorf("pool %q: want %d hex-encoded bytes", s, len(id))
	}
	copy(id[:], raw)
	return id, nil
}

func readBatchFile(path string) (*batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bf batchFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
	}
	return &bf, nil
}

func runBatchApply(cfg *config.Config, path string) error {
	bf, err := readBatchFile(path)
	if err != nil {
		return err
	}

	store, err := ledgerstore.Open(cfg.Store.LedgerPath, cfg.Store.CacheSize)
	if err != nil {
		return err
	}
	defer store.Close()

	archive, err := history.Open(cfg.Store.HistoryPath)
	if err != nil {
		return err
	}
	defer archive.Close()

	batch := speedex.NewBatchState()

	for _, ps := range bf.Pools {
		id, err := parsePoolID(ps)
		if err != nil {
			return err
		}
		pool, err := store.LoadPool(id)
		if err != nil {
			return fmt.Errorf("loading pool %s: %w", ps, err)
		}
		if err := batch.AttachPool(pool); err != nil {
			return err
		}
	}

	admitted := 0
	for i, spec := range bf.Offers {
		op, err := buildOp(spec)
		if err != nil {
			return fmt.Errorf("offer %d: %w", i, err)
		}
		res, err := op.Apply(store, batch)
		if err != nil {
			return fmt.Errorf("offer %d: %w", i, err)
		}
		if !res.Success() {
			log.Printf("offer %d rejected: %s", i, res)
			continue
		}
		admitted++
	}

	if err := batch.Requirements().Validate(store); err != nil {
		return fmt.Errorf("commutativity requirements: %w", err)
	}
	if err := batch.Freeze(context.Background()); err != nil {
		return err
	}

	prices := make(speedex.PriceVector, len(bf.Prices))
	for name, p := range bf.Prices {
		asset, err := config.ParseAsset(name)
		if err != nil {
			return err
		}
		prices[asset] = p
	}

	engine, err := speedex.NewClearingEngine(batch)
	if err != nil {
		return err
	}
	if err := engine.ApplySettlement(prices, store); err != nil {
		return fmt.Errorf("batch %d rejected: %w", bf.Seq, err)
	}

	records, fills := store.DrainBatchOutput()
	if err := archive.AppendBatch(bf.Seq, records, fills); err != nil {
		return err
	}

	fmt.Printf("batch %d: %d offers admitted, %d filled, %d pool clearings\n",
		bf.Seq, admitted, len(fills), len(records))
	return nil
}

func buildOp(spec offerSpec) (*tx.CreateSpeedexIOCOffer, error) {
	account, err := parseAccountID(spec.Account)
	if err != nil {
		return nil, err
	}
	sellAsset, err := config.ParseAsset(spec.SellAsset)
	if err != nil {
		return nil, err
	}
	buyAsset, err := config.ParseAsset(spec.BuyAsset)
	if err != nil {
		return nil, err
	}
	return &tx.CreateSpeedexIOCOffer{
		Account:    account,
		SeqNum:     spec.Seq,
		OpIndex:    spec.Op,
		SellAsset:  sellAsset,
		BuyAsset:   buyAsset,
		SellAmount: spec.SellAmount,
		MinPrice:   types.Price{N: spec.PriceN, D: spec.PriceD},
	}, nil
}
