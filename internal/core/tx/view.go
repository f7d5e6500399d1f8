package tx

import (
	"errors"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry/entries"
	"github.com/speedex-core/speedexd/internal/core/speedex"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// ErrNotFound is returned by the Load methods when the entry is absent.
// Callers that tolerate absence test for it with errors.Is.
var ErrNotFound = errors.New("ledger entry not found")

// LedgerView is the adaptor contract the exchange core consumes. A view is
// scoped: Begin opens a nested scope whose writes are staged until Commit
// and discarded on Rollback. Loads observe staged writes of the open scope.
type LedgerView interface {
	LoadDexConfig() (*entries.DexConfig, error)
	LoadPool(id types.PoolID) (*entries.LiquidityPool, error)
	LoadAccount(id types.AccountID) (*entries.AccountRoot, error)
	LoadTrustline(id types.AccountID, asset types.Asset) (*entries.TrustLine, error)

	// AvailableBalance is the spendable balance net of liabilities: the
	// account's native balance, or the trustline balance for issued assets.
	AvailableBalance(id types.AccountID, asset types.Asset) (int64, error)
	AddBalance(id types.AccountID, asset types.Asset, delta int64) error

	StorePool(pool *entries.LiquidityPool) error
	AppendClearingRecord(rec speedex.ClearingRecord) error
	AppendOfferClearing(rec speedex.OfferClearing) error

	Begin() error
	Commit() error
	Rollback() error
}
