package speedex

import (
	"fmt"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry/entries"
	"github.com/speedex-core/speedexd/internal/core/num"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// LiquidityPoolFrame adapts a pool entry to one directed trading pair. The
// frame reorients the canonical reserves so that sellReserve is the reserve
// of the pair's selling asset, answers the supply query at a candidate
// price, and applies clearing trades while enforcing the constant-product
// invariant.
//
// Rounding discipline: the quoted value is always an underestimate of the
// mathematically exact amount, and always an exact multiple of the sell
// price. The pool can then honor every quote at integer precision without
// ever rounding against itself.
type LiquidityPoolFrame struct {
	pool     *entries.LiquidityPool
	pair     types.AssetPair
	inverted bool
}

// NewPoolFrame wraps pool for the directed pair. The pair's assets must be
// exactly the pool's assets, in either direction.
func NewPoolFrame(pool *entries.LiquidityPool, pair types.AssetPair) (*LiquidityPoolFrame, error) {
	switch {
	case pair.Selling.Cmp(pool.AssetA) == 0 && pair.Buying.Cmp(pool.AssetB) == 0:
		return &LiquidityPoolFrame{pool: pool, pair: pair}, nil
	case pair.Selling.Cmp(pool.AssetB) == 0 && pair.Buying.Cmp(pool.AssetA) == 0:
		return &LiquidityPoolFrame{pool: pool, pair: pair, inverted: true}, nil
	}
	return nil, fmt.Errorf("pool %x does not trade pair %s", pool.PoolID[:4], pair)
}

// Pair returns the directed trading pair the frame is oriented to.
func (f *LiquidityPoolFrame) Pair() types.AssetPair {
	return f.pair
}

// sellBuyReserves returns the reserves oriented to the trading direction.
func (f *LiquidityPoolFrame) sellBuyReserves() (sellReserve, buyReserve int64) {
	if f.inverted {
		return f.pool.ReserveB, f.pool.ReserveA
	}
	return f.pool.ReserveA, f.pool.ReserveB
}

// subtractFee returns x reduced by the pool fee, computed as
// x - floor(x*fee/10000) at 128-bit width. Returns 0 when the tax would
// consume the whole amount.
func (f *LiquidityPoolFrame) subtractFee(x uint64) uint64 {
	tax, _ := num.Mul64(x, uint64(f.pool.FeeBps)).Div64(10000)
	t, ok := tax.Uint64()
	if !ok || t >= x {
		return 0
	}
	return x - t
}

// MinPriceRatio returns the worst price n/d at which the pool sells any
// unit: buyReserve over the fee-discounted sell reserve. A zero denominator
// means the pool sells at no finite price.
func (f *LiquidityPoolFrame) MinPriceRatio() (n, d uint64) {
	sellReserve, buyReserve := f.sellBuyReserves()
	return uint64(buyReserve), f.subtractFee(uint64(sellReserve))
}

// AmountOfferedForSaleTimesSellPrice returns the value (sell amount times
// sellPrice) the pool is willing to sell at the candidate price
// sellPrice/buyPrice. Zero when the candidate is below the pool's minimum
// ratio. With D the fee-discounted sell reserve, the exact form is
//
//	sellPrice*sqrt(sellReserve*D) - sqrt(sellReserve*sellPrice)*sqrt(buyReserve*buyPrice)
//
// with the first root rounded down and the second two rounded up, saturated
// to the signed 128-bit maximum, then truncated to a multiple of sellPrice.
func (f *LiquidityPoolFrame) AmountOfferedForSaleTimesSellPrice(sellPrice, buyPrice uint64) num.Uint128 {
	sellReserve, buyReserve := f.sellBuyReserves()
	if sellReserve == 0 {
		return num.Uint128{}
	}

	priceN, priceD := f.MinPriceRatio()
	if priceD == 0 {
		return num.Uint128{}
	}
	if types.RatioLess(sellPrice, buyPrice, priceN, priceD) {
		return num.Uint128{}
	}

	firstRoot := num.SqrtProdFloor(uint64(sellReserve), priceD)
	secondA := num.SqrtProdCeil(uint64(buyReserve), buyPrice)
	secondB := num.SqrtProdCeil(uint64(sellReserve), sellPrice)

	top := num.Mul64(sellPrice, firstRoot)
	bot := num.Mul64(secondA, secondB)

	if top.Cmp(bot) < 0 {
		return num.Uint128{}
	}
	total := top.Sub(bot)

	if total.Cmp(num.MaxInt128) > 0 {
		total = num.MaxInt128
	}

	// The pool can only settle whole sell units at the quoted price.
	rem := total.Mod64(sellPrice)
	return total.Sub(num.U128(rem))
}

// checkValidTrade verifies the trade against the quote and the
// constant-product invariant before any mutation. The new product is
// evaluated with the fee-discounted inflow even though settlement credits
// the full buy amount; the surplus is the pool's fee income.
func (f *LiquidityPoolFrame) checkValidTrade(sellAmount, buyAmount int64, sellPrice, buyPrice uint64) error {
	if sellAmount < 0 {
		return fmt.Errorf("negative pool sell amount %d", sellAmount)
	}
	if buyAmount < 0 {
		return fmt.Errorf("negative pool buy amount %d", buyAmount)
	}

	offered := f.AmountOfferedForSaleTimesSellPrice(sellPrice, buyPrice)
	queried := num.Mul64(uint64(sellAmount), sellPrice)
	if queried.Cmp(offered) > 0 {
		return fmt.Errorf("pool sell amount %d at price %d exceeds offered value %s",
			sellAmount, sellPrice, offered)
	}

	sellReserve, buyReserve := f.sellBuyReserves()
	if sellAmount > sellReserve {
		return fmt.Errorf("pool sell amount %d exceeds reserve %d", sellAmount, sellReserve)
	}

	discounted, _ := num.Mul64(uint64(buyAmount), uint64(10000-f.pool.FeeBps)).Div64(10000)
	inflow, ok := discounted.Uint64()
	if !ok {
		return fmt.Errorf("pool buy amount %d overflows after fee discount", buyAmount)
	}

	prevK := num.Mul64(uint64(sellReserve), uint64(buyReserve))
	newK := num.Mul64(uint64(sellReserve-sellAmount), uint64(buyReserve)+inflow)
	if newK.Cmp(prevK) < 0 {
		return fmt.Errorf("pool trade (%d, %d) would shrink constant product", sellAmount, buyAmount)
	}
	return nil
}

// DoTransfer applies a clearing trade: the pool sells sellAmount of the
// pair's selling asset and receives buyAmount of the buying asset, at the
// clearing price sellPrice/buyPrice. The full buy amount is credited to the
// reserve. Returns the clearing record to append to the batch output. Any
// failure here is fatal to the batch.
func (f *LiquidityPoolFrame) DoTransfer(sellAmount, buyAmount int64, sellPrice, buyPrice uint64) (ClearingRecord, error) {
	if err := f.checkValidTrade(sellAmount, buyAmount, sellPrice, buyPrice); err != nil {
		return ClearingRecord{}, err
	}

	var err error
	if f.inverted {
		err = f.pool.Transfer(buyAmount, -sellAmount)
	} else {
		err = f.pool.Transfer(-sellAmount, buyAmount)
	}
	if err != nil {
		return ClearingRecord{}, err
	}

	return ClearingRecord{
		PoolID:       f.pool.PoolID,
		SoldAsset:    f.pair.Selling,
		BoughtAsset:  f.pair.Buying,
		SoldAmount:   sellAmount,
		BoughtAmount: buyAmount,
	}, nil
}
