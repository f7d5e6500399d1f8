package speedex

import (
	"fmt"
	"sort"

	"github.com/speedex-core/speedexd/internal/core/num"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// Orderbook collects the IOC offers for one directed trading pair. It has
// two phases: during admission AddOffer appends offers in any order; after
// DoPriceComputationPreprocessing the book is frozen and answers
// price-indexed supply queries in O(log n).
//
// The weighted prefix sum stores, per offer, sellAmount scaled by the
// offer's own min price in Q32: (sellAmount * price.N << 32) / price.D.
// Accumulation saturates stickily; a saturated book rejects the whole batch.
type Orderbook struct {
	pair   types.AssetPair
	offers []IOCOffer

	frozen    bool
	saturated bool

	// prefix sums, cum*[k] covers offers[:k]
	cumAmount           []num.Uint128
	cumAmountTimesPrice []num.Uint128
}

// NewOrderbook returns an empty book for the pair.
func NewOrderbook(pair types.AssetPair) (*Orderbook, error) {
	if !pair.Valid() {
		return nil, fmt.Errorf("orderbook pair %s names the same asset twice", pair)
	}
	return &Orderbook{pair: pair}, nil
}

// Pair returns the directed trading pair.
func (b *Orderbook) Pair() types.AssetPair {
	return b.pair
}

// Size returns the number of admitted offers.
func (b *Orderbook) Size() int {
	return len(b.offers)
}

// AddOffer admits an offer. Fails on malformed offers and after the book
// has been frozen.
func (b *Orderbook) AddOffer(o IOCOffer) error {
	if b.frozen {
		return fmt.Errorf("orderbook %s is frozen", b.pair)
	}
	if err := o.Validate(); err != nil {
		return err
	}
	b.offers = append(b.offers, o)
	return nil
}

// DoPriceComputationPreprocessing freezes the book: sorts offers into the
// deterministic processing order and builds both Q32 prefix sums. Must be
// called exactly once, after which the book is read only.
func (b *Orderbook) DoPriceComputationPreprocessing() error {
	if b.frozen {
		return fmt.Errorf("orderbook %s already preprocessed", b.pair)
	}
	b.frozen = true

	sort.Slice(b.offers, func(i, j int) bool {
		return b.offers[i].Less(b.offers[j])
	})

	b.cumAmount = make([]num.Uint128, len(b.offers)+1)
	b.cumAmountTimesPrice = make([]num.Uint128, len(b.offers)+1)

	for i, o := range b.offers {
		var sat bool
		b.cumAmount[i+1], sat = b.cumAmount[i].AddSat(num.U128(uint64(o.SellAmount)))
		b.saturated = b.saturated || sat

		// sellAmount <= 2^63 and price.N <= 2^31, so the product is at
		// most 2^94 and the shifted value at most 2^126. The divide by
		// price.D only shrinks it.
		weighted, lost := num.Mul64(uint64(o.SellAmount), uint64(o.MinPrice.N)).Lsh(32)
		if lost {
			weighted = num.MaxUint128
			b.saturated = true
		}
		q, _ := weighted.Div64(uint64(o.MinPrice.D))

		b.cumAmountTimesPrice[i+1], sat = b.cumAmountTimesPrice[i].AddSat(q)
		b.saturated = b.saturated || sat
	}
	return nil
}

// Saturated reports whether any accumulation overflowed 128 bits. The
// clearing engine rejects a batch containing a saturated book.
func (b *Orderbook) Saturated() bool {
	return b.saturated
}

func (b *Orderbook) mustBeFrozen() {
	if !b.frozen {
		panic("speedex: orderbook queried before preprocessing")
	}
}

// partition returns the index boundaries for the candidate price pn/pd:
// offers[:below] are strictly below it, offers[below:at] are exactly at it.
func (b *Orderbook) partition(pn, pd uint64) (below, at int) {
	below = sort.Search(len(b.offers), func(i int) bool {
		return b.offers[i].MinPrice.CmpRatio(pn, pd) >= 0
	})
	at = sort.Search(len(b.offers), func(i int) bool {
		return b.offers[i].MinPrice.CmpRatio(pn, pd) > 0
	})
	return below, at
}

// SupplyAt returns the total sell amount from offers whose min price is at
// or below the candidate pn/pd. An at-price bucket is included whole: an
// offer priced exactly at the candidate is willing at that price.
func (b *Orderbook) SupplyAt(pn, pd uint64) num.Uint128 {
	b.mustBeFrozen()
	_, at := b.partition(pn, pd)
	return b.cumAmount[at]
}

// SupplyTimesPriceAt returns the included supply with each offer weighted by
// its own min price in Q32 encoding.
func (b *Orderbook) SupplyTimesPriceAt(pn, pd uint64) num.Uint128 {
	b.mustBeFrozen()
	_, at := b.partition(pn, pd)
	return b.cumAmountTimesPrice[at]
}

// OfferedForSaleTimesSellPrice returns the included supply multiplied by the
// candidate sell price pn. This is the value quantity the clearing engine
// aggregates per asset. Saturates stickily.
func (b *Orderbook) OfferedForSaleTimesSellPrice(pn, pd uint64) num.Uint128 {
	b.mustBeFrozen()
	_, at := b.partition(pn, pd)
	v, sat := b.cumAmount[at].Mul64Sat(pn)
	if sat {
		b.saturated = true
	}
	return v
}

// OfferedForSaleTimesSellPriceCapped bounds the value query by cap, letting
// the engine limit exposure when several pairs share an asset.
func (b *Orderbook) OfferedForSaleTimesSellPriceCapped(pn, pd uint64, cap num.Uint128) num.Uint128 {
	v := b.OfferedForSaleTimesSellPrice(pn, pd)
	if v.Cmp(cap) > 0 {
		return cap
	}
	return v
}

// StrictOffers returns the offers priced strictly below the candidate, in
// processing order. Valid only on a frozen book; the slice must not be
// mutated.
func (b *Orderbook) StrictOffers(pn, pd uint64) []IOCOffer {
	b.mustBeFrozen()
	below, _ := b.partition(pn, pd)
	return b.offers[:below]
}

// TieOffers returns the offers priced exactly at the candidate, in
// processing order.
func (b *Orderbook) TieOffers(pn, pd uint64) []IOCOffer {
	b.mustBeFrozen()
	below, at := b.partition(pn, pd)
	return b.offers[below:at]
}

// StrictSupply returns the total sell amount strictly below the candidate.
func (b *Orderbook) StrictSupply(pn, pd uint64) num.Uint128 {
	b.mustBeFrozen()
	below, _ := b.partition(pn, pd)
	return b.cumAmount[below]
}
