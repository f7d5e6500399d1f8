// Package speedex implements the batch-auction exchange core: per-pair IOC
// orderbooks with price-indexed supply queries, constant-product liquidity
// pool frames, the clearing engine that evaluates candidate price vectors and
// applies settlement, and the commutativity requirements collector that makes
// unordered batch admission safe.
package speedex

import (
	"bytes"
	"fmt"

	"github.com/speedex-core/speedexd/internal/core/types"
)

// IOCOffer is an immediate-or-cancel sell offer. It is immutable once
// admitted: it either fills at the batch clearing price or is dropped.
type IOCOffer struct {
	SellAmount int64
	MinPrice   types.Price
	Owner      types.AccountID
	SeqNum     int64
	OpIndex    uint32
}

// Validate rejects non-positive amounts and prices. These are operation
// level failures caught at admission, never inside the clearing path.
func (o IOCOffer) Validate() error {
	if o.SellAmount <= 0 {
		return fmt.Errorf("offer sell amount %d not positive", o.SellAmount)
	}
	if !o.MinPrice.Valid() {
		return fmt.Errorf("offer price %s not positive", o.MinPrice)
	}
	return nil
}

// Less imposes the processing order on offers: ascending min price, then
// owner, sequence number, and op index as deterministic tiebreaks. Insertion
// order never matters.
func (o IOCOffer) Less(p IOCOffer) bool {
	if c := o.MinPrice.Cmp(p.MinPrice); c != 0 {
		return c < 0
	}
	if c := bytes.Compare(o.Owner[:], p.Owner[:]); c != 0 {
		return c < 0
	}
	if o.SeqNum != p.SeqNum {
		return o.SeqNum < p.SeqNum
	}
	return o.OpIndex < p.OpIndex
}
