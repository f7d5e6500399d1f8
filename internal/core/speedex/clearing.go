package speedex

import (
	"fmt"
	"math"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry/entries"
	"github.com/speedex-core/speedexd/internal/core/num"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// PriceVector is the candidate clearing price per asset, proposed by the
// outer solver. Prices are positive; a missing or zero price for an active
// asset rejects the batch.
type PriceVector map[types.Asset]uint64

// SettlementLedger is the slice of the ledger adaptor the engine needs to
// apply a clearing: balance moves for filled offers, persistence of mutated
// pool entries, clearing-record output, and a transactional scope that
// makes the whole settlement atomic.
type SettlementLedger interface {
	Begin() error
	Commit() error
	Rollback() error
	AddBalance(account types.AccountID, asset types.Asset, delta int64) error
	StorePool(pool *entries.LiquidityPool) error
	AppendClearingRecord(rec ClearingRecord) error
	AppendOfferClearing(rec OfferClearing) error
}

// ClearingEngine evaluates candidate price vectors against a frozen batch
// and applies settlement once a vector is accepted. Single threaded; it
// holds exclusive access to the batch's books and pools.
type ClearingEngine struct {
	batch *BatchState
}

// NewClearingEngine wraps a frozen batch.
func NewClearingEngine(batch *BatchState) (*ClearingEngine, error) {
	if !batch.Frozen() {
		return nil, fmt.Errorf("clearing engine requires a frozen batch")
	}
	return &ClearingEngine{batch: batch}, nil
}

func (e *ClearingEngine) priceFor(prices PriceVector, a types.Asset) (uint64, error) {
	p, ok := prices[a]
	if !ok || p == 0 {
		return 0, fmt.Errorf("no candidate price for active asset %s", a)
	}
	return p, nil
}

// directionSupply is one direction's supply at the candidate prices: the
// orderbook value split into strictly-below and at-price portions, and the
// pool frame's quoted value.
type directionSupply struct {
	pair      types.AssetPair
	sellPrice uint64
	buyPrice  uint64

	book  *Orderbook
	frame *LiquidityPoolFrame

	strictValue num.Uint128 // offers strictly below candidate, times sellPrice
	poolValue   num.Uint128 // pool quote, an exact multiple of sellPrice
	tieValue    num.Uint128 // at-price offers, times sellPrice
}

func (d *directionSupply) total() (num.Uint128, error) {
	t, sat := d.strictValue.AddSat(d.poolValue)
	if sat {
		return num.Uint128{}, fmt.Errorf("supply value for %s saturated", d.pair)
	}
	t, sat = t.AddSat(d.tieValue)
	if sat {
		return num.Uint128{}, fmt.Errorf("supply value for %s saturated", d.pair)
	}
	return t, nil
}

// evalDirection gathers the supply of pair.Selling at the candidate prices.
func (e *ClearingEngine) evalDirection(prices PriceVector, pair types.AssetPair, pool *entries.LiquidityPool) (*directionSupply, error) {
	sellPrice, err := e.priceFor(prices, pair.Selling)
	if err != nil {
		return nil, err
	}
	buyPrice, err := e.priceFor(prices, pair.Buying)
	if err != nil {
		return nil, err
	}

	d := &directionSupply{pair: pair, sellPrice: sellPrice, buyPrice: buyPrice}

	if book, ok := e.batch.books[keyOf(pair)]; ok {
		var sat bool
		d.book = book
		d.strictValue, sat = book.StrictSupply(sellPrice, buyPrice).Mul64Sat(sellPrice)
		if sat {
			return nil, fmt.Errorf("supply value for %s saturated", pair)
		}
		atValue := book.OfferedForSaleTimesSellPrice(sellPrice, buyPrice)
		if book.Saturated() {
			return nil, fmt.Errorf("orderbook %s saturated", pair)
		}
		d.tieValue = atValue.Sub(d.strictValue)
	}

	if pool != nil {
		frame, err := NewPoolFrame(pool, pair)
		if err != nil {
			return nil, err
		}
		d.frame = frame
		d.poolValue = frame.AmountOfferedForSaleTimesSellPrice(sellPrice, buyPrice)
	}

	return d, nil
}

// evalPair gathers both directions of a canonical pair.
func (e *ClearingEngine) evalPair(prices PriceVector, canonical types.AssetPair) (fwd, rev *directionSupply, err error) {
	pool := e.batch.pool(canonical)
	fwd, err = e.evalDirection(prices, canonical, pool)
	if err != nil {
		return nil, nil, err
	}
	rev, err = e.evalDirection(prices, canonical.Reverse(), pool)
	if err != nil {
		return nil, nil, err
	}
	return fwd, rev, nil
}

// EvaluateFeasibility checks whether the candidate price vector clears the
// batch: per asset, the aggregate value sold must equal the aggregate value
// bought, within a tolerance of one sell-price unit per participating pair.
// Strictly-in offers and pool quotes must execute whole, so they form the
// floor of each direction's supply; at-price offers are partially
// executable and stretch it to a ceiling. Feasibility is the overlap of the
// resulting sold and bought intervals per asset.
func (e *ClearingEngine) EvaluateFeasibility(prices PriceVector) error {
	soldMin := make(map[types.Asset]num.Uint128)
	soldMax := make(map[types.Asset]num.Uint128)
	boughtMin := make(map[types.Asset]num.Uint128)
	boughtMax := make(map[types.Asset]num.Uint128)
	slack := make(map[types.Asset]num.Uint128)

	addSat := func(m map[types.Asset]num.Uint128, a types.Asset, v num.Uint128) error {
		sum, sat := m[a].AddSat(v)
		if sat {
			return fmt.Errorf("aggregate value for %s saturated", a)
		}
		m[a] = sum
		return nil
	}

	for _, canonical := range e.batch.canonicalPairs() {
		fwd, rev, err := e.evalPair(prices, canonical)
		if err != nil {
			return err
		}
		for _, d := range []*directionSupply{fwd, rev} {
			floor, sat := d.strictValue.AddSat(d.poolValue)
			if sat {
				return fmt.Errorf("supply value for %s saturated", d.pair)
			}
			ceil, err := d.total()
			if err != nil {
				return err
			}
			if err := addSat(soldMin, d.pair.Selling, floor); err != nil {
				return err
			}
			if err := addSat(soldMax, d.pair.Selling, ceil); err != nil {
				return err
			}
			if err := addSat(boughtMin, d.pair.Buying, floor); err != nil {
				return err
			}
			if err := addSat(boughtMax, d.pair.Buying, ceil); err != nil {
				return err
			}
			if err := addSat(slack, d.pair.Selling, num.U128(d.sellPrice)); err != nil {
				return err
			}
		}
	}

	exceeds := func(lo, hi, tol num.Uint128) bool {
		if lo.Cmp(hi) <= 0 {
			return false
		}
		return lo.Sub(hi).Cmp(tol) > 0
	}

	for _, a := range e.batch.activeAssets() {
		if exceeds(soldMin[a], boughtMax[a], slack[a]) {
			return fmt.Errorf("infeasible at %s: must sell %s but at most %s is bought",
				a, soldMin[a], boughtMax[a])
		}
		if exceeds(boughtMin[a], soldMax[a], slack[a]) {
			return fmt.Errorf("infeasible at %s: must buy %s but at most %s is sold",
				a, boughtMin[a], soldMax[a])
		}
	}
	return nil
}

// convertValue turns a value quantity (amount times sellPrice) into a buy
// side amount at the clearing price, rounding down.
func convertValue(value num.Uint128, buyPrice uint64) (int64, error) {
	q, _ := value.Div64(buyPrice)
	v, ok := q.Uint64()
	if !ok || v > math.MaxInt64 {
		return 0, fmt.Errorf("clearing amount %s overflows int64", q)
	}
	return int64(v), nil
}

// crossAmount returns floor(amount * sellPrice / buyPrice), the buy-side
// amount a seller of amount units receives at the clearing price.
func crossAmount(amount int64, sellPrice, buyPrice uint64) (int64, error) {
	return convertValue(num.Mul64(uint64(amount), sellPrice), buyPrice)
}

// settleDirection applies one direction's fills under the matched value
// target: pool and strictly-in offers fill whole, at-price offers fill
// whole in processing order while they fit, the rest drop.
func (e *ClearingEngine) settleDirection(d *directionSupply, target num.Uint128, ledger SettlementLedger) error {
	committed, sat := d.strictValue.AddSat(d.poolValue)
	if sat {
		return fmt.Errorf("supply value for %s saturated", d.pair)
	}
	limit, sat := target.AddSat(num.U128(d.sellPrice))
	if sat {
		limit = num.MaxUint128
	}
	if committed.Cmp(limit) > 0 {
		return fmt.Errorf("pair %s: committed value %s exceeds clearing target %s",
			d.pair, committed, target)
	}

	if d.frame != nil && !d.poolValue.IsZero() {
		sellAmount, err := convertValue(d.poolValue, d.sellPrice)
		if err != nil {
			return err
		}
		buyAmount, err := convertValue(d.poolValue, d.buyPrice)
		if err != nil {
			return err
		}
		rec, err := d.frame.DoTransfer(sellAmount, buyAmount, d.sellPrice, d.buyPrice)
		if err != nil {
			return err
		}
		if err := ledger.StorePool(e.batch.pool(mustCanonical(d.pair))); err != nil {
			return err
		}
		if err := ledger.AppendClearingRecord(rec); err != nil {
			return err
		}
	}

	fill := func(o IOCOffer) error {
		bought, err := crossAmount(o.SellAmount, d.sellPrice, d.buyPrice)
		if err != nil {
			return err
		}
		if err := ledger.AddBalance(o.Owner, d.pair.Selling, -o.SellAmount); err != nil {
			return err
		}
		if err := ledger.AddBalance(o.Owner, d.pair.Buying, bought); err != nil {
			return err
		}
		return ledger.AppendOfferClearing(OfferClearing{
			Owner:        o.Owner,
			SeqNum:       o.SeqNum,
			OpIndex:      o.OpIndex,
			SoldAsset:    d.pair.Selling,
			BoughtAsset:  d.pair.Buying,
			SoldAmount:   o.SellAmount,
			BoughtAmount: bought,
		})
	}

	if d.book == nil {
		return nil
	}
	for _, o := range d.book.StrictOffers(d.sellPrice, d.buyPrice) {
		if err := fill(o); err != nil {
			return err
		}
	}
	for _, o := range d.book.TieOffers(d.sellPrice, d.buyPrice) {
		v, sat := committed.AddSat(num.Mul64(uint64(o.SellAmount), d.sellPrice))
		if sat || v.Cmp(limit) > 0 {
			break
		}
		if err := fill(o); err != nil {
			return err
		}
		committed = v
	}
	return nil
}

func mustCanonical(pair types.AssetPair) types.AssetPair {
	canon, _ := pair.Canonical()
	return canon
}

// ApplySettlement commits the batch at the candidate price vector. The
// whole settlement runs inside one ledger scope: any invariant violation
// rolls everything back and rejects the batch.
func (e *ClearingEngine) ApplySettlement(prices PriceVector, ledger SettlementLedger) error {
	if err := e.EvaluateFeasibility(prices); err != nil {
		return err
	}

	if err := ledger.Begin(); err != nil {
		return err
	}

	settle := func() error {
		for _, canonical := range e.batch.canonicalPairs() {
			fwd, rev, err := e.evalPair(prices, canonical)
			if err != nil {
				return err
			}
			fwdTotal, err := fwd.total()
			if err != nil {
				return err
			}
			revTotal, err := rev.total()
			if err != nil {
				return err
			}
			// Matched volume is the smaller side's value; the larger
			// side trims its at-price offers down to it.
			target := fwdTotal
			if revTotal.Cmp(target) < 0 {
				target = revTotal
			}
			if err := e.settleDirection(fwd, target, ledger); err != nil {
				return err
			}
			if err := e.settleDirection(rev, target, ledger); err != nil {
				return err
			}
		}
		return nil
	}

	if err := settle(); err != nil {
		if rbErr := ledger.Rollback(); rbErr != nil {
			return fmt.Errorf("settlement failed (%w); rollback also failed: %v", err, rbErr)
		}
		return err
	}
	return ledger.Commit()
}
