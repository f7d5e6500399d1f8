package speedex

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry/entries"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// fakeLedger records every settlement effect in order.
type fakeLedger struct {
	began, committed, rolledBack int

	balances map[types.AccountID]map[types.Asset]int64
	pools    []*entries.LiquidityPool
	records  []ClearingRecord
	fills    []OfferClearing

	failAddBalance bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[types.AccountID]map[types.Asset]int64)}
}

func (l *fakeLedger) Begin() error    { l.began++; return nil }
func (l *fakeLedger) Commit() error   { l.committed++; return nil }
func (l *fakeLedger) Rollback() error { l.rolledBack++; return nil }

func (l *fakeLedger) AddBalance(account types.AccountID, asset types.Asset, delta int64) error {
	if l.failAddBalance {
		return fmt.Errorf("injected balance failure")
	}
	if l.balances[account] == nil {
		l.balances[account] = make(map[types.Asset]int64)
	}
	l.balances[account][asset] += delta
	return nil
}

func (l *fakeLedger) StorePool(pool *entries.LiquidityPool) error {
	l.pools = append(l.pools, pool)
	return nil
}

func (l *fakeLedger) AppendClearingRecord(rec ClearingRecord) error {
	l.records = append(l.records, rec)
	return nil
}

func (l *fakeLedger) AppendOfferClearing(rec OfferClearing) error {
	l.fills = append(l.fills, rec)
	return nil
}

func accountN(n byte) types.AccountID {
	var id types.AccountID
	id[0] = n
	return id
}

func ownedOffer(owner byte, amount int64, n, d int32, seq int64) IOCOffer {
	return IOCOffer{
		SellAmount: amount,
		MinPrice:   types.Price{N: n, D: d},
		Owner:      accountN(owner),
		SeqNum:     seq,
	}
}

func TestClearingBalancedBooks(t *testing.T) {
	pair := testPair(t)
	eur, usd := pair.Selling, pair.Buying

	batch := NewBatchState()
	require.NoError(t, batch.AddOffer(pair, ownedOffer(1, 1000, 1, 1, 1)))
	require.NoError(t, batch.AddOffer(pair.Reverse(), ownedOffer(2, 1000, 1, 1, 1)))
	require.NoError(t, batch.Freeze(context.Background()))

	engine, err := NewClearingEngine(batch)
	require.NoError(t, err)

	prices := PriceVector{eur: 10, usd: 10}
	require.NoError(t, engine.EvaluateFeasibility(prices))

	ledger := newFakeLedger()
	require.NoError(t, engine.ApplySettlement(prices, ledger))

	assert.Equal(t, 1, ledger.began)
	assert.Equal(t, 1, ledger.committed)
	assert.Zero(t, ledger.rolledBack)
	assert.Empty(t, ledger.records, "no pools participated")

	require.Len(t, ledger.fills, 2)
	assert.Equal(t, int64(-1000), ledger.balances[accountN(1)][eur])
	assert.Equal(t, int64(1000), ledger.balances[accountN(1)][usd])
	assert.Equal(t, int64(-1000), ledger.balances[accountN(2)][usd])
	assert.Equal(t, int64(1000), ledger.balances[accountN(2)][eur])
}

func TestClearingInfeasibleOneSided(t *testing.T) {
	pair := testPair(t)

	batch := NewBatchState()
	// The seller's min price is strictly below the candidate, so the supply
	// floor cannot be trimmed and nothing buys it back.
	require.NoError(t, batch.AddOffer(pair, ownedOffer(1, 1000, 1, 2, 1)))
	require.NoError(t, batch.Freeze(context.Background()))

	engine, err := NewClearingEngine(batch)
	require.NoError(t, err)

	prices := PriceVector{pair.Selling: 10, pair.Buying: 10}
	err = engine.EvaluateFeasibility(prices)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "infeasible")
}

func TestClearingMissingPriceRejected(t *testing.T) {
	pair := testPair(t)

	batch := NewBatchState()
	require.NoError(t, batch.AddOffer(pair, ownedOffer(1, 10, 1, 1, 1)))
	require.NoError(t, batch.Freeze(context.Background()))

	engine, err := NewClearingEngine(batch)
	require.NoError(t, err)

	assert.Error(t, engine.EvaluateFeasibility(PriceVector{pair.Selling: 10}))
	assert.Error(t, engine.EvaluateFeasibility(PriceVector{pair.Selling: 10, pair.Buying: 0}))
}

func TestClearingPoolAgainstBook(t *testing.T) {
	pair := testPair(t)
	eur, usd := pair.Selling, pair.Buying

	batch := NewBatchState()
	pool := &entries.LiquidityPool{
		PoolID:   types.PoolID{7},
		AssetA:   eur,
		AssetB:   usd,
		ReserveA: 1_000_000,
		ReserveB: 1_000_000,
	}
	require.NoError(t, batch.AttachPool(pool))
	// Bob sells USD for EUR at the clearing ratio exactly; the pool is the
	// whole opposite side.
	require.NoError(t, batch.AddOffer(pair.Reverse(), ownedOffer(2, 51_160, 1000, 1100, 1)))
	require.NoError(t, batch.Freeze(context.Background()))

	engine, err := NewClearingEngine(batch)
	require.NoError(t, err)

	prices := PriceVector{eur: 1100, usd: 1000}
	require.NoError(t, engine.EvaluateFeasibility(prices))

	ledger := newFakeLedger()
	require.NoError(t, engine.ApplySettlement(prices, ledger))

	require.Len(t, ledger.records, 1)
	rec := ledger.records[0]
	assert.Equal(t, eur, rec.SoldAsset)
	assert.Equal(t, usd, rec.BoughtAsset)
	assert.Equal(t, int64(46_509), rec.SoldAmount)
	assert.Equal(t, int64(51_159), rec.BoughtAmount)

	assert.Equal(t, int64(1_000_000-46_509), pool.ReserveA)
	assert.Equal(t, int64(1_000_000+51_159), pool.ReserveB)
	require.Len(t, ledger.pools, 1)

	require.Len(t, ledger.fills, 1)
	fill := ledger.fills[0]
	assert.Equal(t, accountN(2), fill.Owner)
	assert.Equal(t, int64(51_160), fill.SoldAmount)
	assert.Equal(t, int64(46_509), fill.BoughtAmount)
}

func TestClearingAtPricePartialFill(t *testing.T) {
	pair := testPair(t)
	eur, usd := pair.Selling, pair.Buying

	batch := NewBatchState()
	pool := &entries.LiquidityPool{
		PoolID:   types.PoolID{7},
		AssetA:   eur,
		AssetB:   usd,
		ReserveA: 1_000_000,
		ReserveB: 1_000_000,
	}
	require.NoError(t, batch.AttachPool(pool))
	// Two identical at-price offers; the pool only buys enough to fill one.
	require.NoError(t, batch.AddOffer(pair.Reverse(), ownedOffer(2, 51_160, 1000, 1100, 1)))
	require.NoError(t, batch.AddOffer(pair.Reverse(), ownedOffer(3, 51_160, 1000, 1100, 1)))
	require.NoError(t, batch.Freeze(context.Background()))

	engine, err := NewClearingEngine(batch)
	require.NoError(t, err)

	prices := PriceVector{eur: 1100, usd: 1000}
	ledger := newFakeLedger()
	require.NoError(t, engine.ApplySettlement(prices, ledger))

	require.Len(t, ledger.fills, 1, "only the first tie offer fits the clearing target")
	assert.Equal(t, accountN(2), ledger.fills[0].Owner)
	assert.NotContains(t, ledger.balances, accountN(3), "dropped offer moves no balance")
}

func TestClearingRollbackOnFailure(t *testing.T) {
	pair := testPair(t)

	batch := NewBatchState()
	require.NoError(t, batch.AddOffer(pair, ownedOffer(1, 1000, 1, 1, 1)))
	require.NoError(t, batch.AddOffer(pair.Reverse(), ownedOffer(2, 1000, 1, 1, 1)))
	require.NoError(t, batch.Freeze(context.Background()))

	engine, err := NewClearingEngine(batch)
	require.NoError(t, err)

	ledger := newFakeLedger()
	ledger.failAddBalance = true
	err = engine.ApplySettlement(PriceVector{pair.Selling: 10, pair.Buying: 10}, ledger)
	require.Error(t, err)
	assert.Equal(t, 1, ledger.began)
	assert.Equal(t, 1, ledger.rolledBack)
	assert.Zero(t, ledger.committed)
}

func TestClearingDeterministicRecords(t *testing.T) {
	run := func(flip bool) *fakeLedger {
		pair := testPair(t)
		batch := NewBatchState()
		offers := []IOCOffer{
			ownedOffer(1, 400, 1, 1, 1),
			ownedOffer(2, 600, 1, 1, 1),
		}
		if flip {
			offers[0], offers[1] = offers[1], offers[0]
		}
		for _, o := range offers {
			require.NoError(t, batch.AddOffer(pair, o))
		}
		require.NoError(t, batch.AddOffer(pair.Reverse(), ownedOffer(3, 1000, 1, 1, 1)))
		require.NoError(t, batch.Freeze(context.Background()))

		engine, err := NewClearingEngine(batch)
		require.NoError(t, err)
		ledger := newFakeLedger()
		require.NoError(t, engine.ApplySettlement(PriceVector{pair.Selling: 5, pair.Buying: 5}, ledger))
		return ledger
	}

	a := run(false)
	b := run(true)
	assert.Equal(t, a.fills, b.fills)
	assert.Equal(t, a.records, b.records)
}

func TestClearingRequiresFrozenBatch(t *testing.T) {
	batch := NewBatchState()
	_, err := NewClearingEngine(batch)
	assert.Error(t, err)
}
