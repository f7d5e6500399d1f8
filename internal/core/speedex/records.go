package speedex

import (
	"fmt"

	"github.com/speedex-core/speedexd/internal/core/types"
)

// ClearingRecord reports one pool's participation in a pair's clearing:
// what it sold, what it bought, at the batch's clearing price. Emitted at
// most once per pool per direction.
type ClearingRecord struct {
	PoolID       types.PoolID `codec:"pool"`
	SoldAsset    types.Asset  `codec:"soldAsset"`
	BoughtAsset  types.Asset  `codec:"boughtAsset"`
	SoldAmount   int64        `codec:"soldAmount"`
	BoughtAmount int64        `codec:"boughtAmount"`
}

func (r ClearingRecord) String() string {
	return fmt.Sprintf("pool %x sold %d %s for %d %s",
		r.PoolID[:4], r.SoldAmount, r.SoldAsset, r.BoughtAmount, r.BoughtAsset)
}

// OfferClearing reports one offer's fill. IOC semantics mean an offer
// either appears here with its full sell amount or was dropped and appears
// nowhere.
type OfferClearing struct {
	Owner        types.AccountID `codec:"owner"`
	SeqNum       int64           `codec:"seq"`
	OpIndex      uint32          `codec:"op"`
	SoldAsset    types.Asset     `codec:"soldAsset"`
	BoughtAsset  types.Asset     `codec:"boughtAsset"`
	SoldAmount   int64           `codec:"soldAmount"`
	BoughtAmount int64           `codec:"boughtAmount"`
}

func (r OfferClearing) String() string {
	return fmt.Sprintf("offer %x/%d/%d sold %d %s for %d %s",
		r.Owner[:4], r.SeqNum, r.OpIndex, r.SoldAmount, r.SoldAsset, r.BoughtAmount, r.BoughtAsset)
}
