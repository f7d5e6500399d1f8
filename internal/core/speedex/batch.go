package speedex

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry/entries"
	"github.com/speedex-core/speedexd/internal/core/types"
)

type pairKey [66]byte

func keyOf(p types.AssetPair) pairKey {
	var k pairKey
	s := p.Selling.Encode()
	b := p.Buying.Encode()
	copy(k[:33], s[:])
	copy(k[33:], b[:])
	return k
}

// BatchState owns everything one clearing batch accumulates during
// admission: one orderbook per directed pair, the pools attached to the
// batch's pairs, and the commutativity requirements. Single-threaded until
// Freeze, which preprocesses the books in parallel; read only afterwards.
type BatchState struct {
	books        map[pairKey]*Orderbook
	pools        map[pairKey]*entries.LiquidityPool // keyed by canonical pair
	requirements *RequirementsCollector
	frozen       bool
}

// NewBatchState returns an empty batch.
func NewBatchState() *BatchState {
	return &BatchState{
		books:        make(map[pairKey]*Orderbook),
		pools:        make(map[pairKey]*entries.LiquidityPool),
		requirements: NewRequirementsCollector(),
	}
}

// Requirements returns the batch's commutativity collector.
func (s *BatchState) Requirements() *RequirementsCollector {
	return s.requirements
}

// Orderbook returns the book for the directed pair, creating it on first
// use during admission.
func (s *BatchState) Orderbook(pair types.AssetPair) (*Orderbook, error) {
	if s.frozen {
		if b, ok := s.books[keyOf(pair)]; ok {
			return b, nil
		}
		return nil, fmt.Errorf("no orderbook for %s in frozen batch", pair)
	}
	if b, ok := s.books[keyOf(pair)]; ok {
		return b, nil
	}
	b, err := NewOrderbook(pair)
	if err != nil {
		return nil, err
	}
	s.books[keyOf(pair)] = b
	return b, nil
}

// AddOffer admits an offer on the directed pair.
func (s *BatchState) AddOffer(pair types.AssetPair, o IOCOffer) error {
	if s.frozen {
		return fmt.Errorf("batch is frozen")
	}
	b, err := s.Orderbook(pair)
	if err != nil {
		return err
	}
	return b.AddOffer(o)
}

// AttachPool registers the pool under its canonical pair. At most one pool
// per pair participates in a batch.
func (s *BatchState) AttachPool(pool *entries.LiquidityPool) error {
	if s.frozen {
		return fmt.Errorf("batch is frozen")
	}
	if err := pool.Validate(); err != nil {
		return err
	}
	key := keyOf(types.AssetPair{Selling: pool.AssetA, Buying: pool.AssetB})
	if _, dup := s.pools[key]; dup {
		return fmt.Errorf("pool for %s/%s already attached", pool.AssetA, pool.AssetB)
	}
	s.pools[key] = pool
	return nil
}

// pool returns the pool trading the canonical pair, or nil.
func (s *BatchState) pool(canonical types.AssetPair) *entries.LiquidityPool {
	return s.pools[keyOf(canonical)]
}

// Freeze closes admission and preprocesses every orderbook. Books are
// independent until queries start, so the prefix-sum passes run in
// parallel. A saturated book fails the freeze and with it the batch.
func (s *BatchState) Freeze(ctx context.Context) error {
	if s.frozen {
		return fmt.Errorf("batch already frozen")
	}
	s.frozen = true

	g, _ := errgroup.WithContext(ctx)
	for _, b := range s.books {
		b := b
		g.Go(b.DoPriceComputationPreprocessing)
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, b := range s.books {
		if b.Saturated() {
			return fmt.Errorf("orderbook %s saturated during preprocessing", b.Pair())
		}
	}
	return nil
}

// Frozen reports whether admission has closed.
func (s *BatchState) Frozen() bool {
	return s.frozen
}

// canonicalPairs returns the sorted canonical pairs that have a book or a
// pool, the deterministic iteration order for feasibility and settlement.
func (s *BatchState) canonicalPairs() []types.AssetPair {
	seen := make(map[pairKey]types.AssetPair)
	for _, b := range s.books {
		canon, _ := b.Pair().Canonical()
		seen[keyOf(canon)] = canon
	}
	for _, p := range s.pools {
		canon := types.AssetPair{Selling: p.AssetA, Buying: p.AssetB}
		seen[keyOf(canon)] = canon
	}
	pairs := make([]types.AssetPair, 0, len(seen))
	for _, p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Cmp(pairs[j]) < 0
	})
	return pairs
}

// activeAssets returns the sorted assets participating in the batch.
func (s *BatchState) activeAssets() []types.Asset {
	seen := make(map[[33]byte]types.Asset)
	for _, pair := range s.canonicalPairs() {
		seen[pair.Selling.Encode()] = pair.Selling
		seen[pair.Buying.Encode()] = pair.Buying
	}
	assets := make([]types.Asset, 0, len(seen))
	for _, a := range seen {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Less(assets[j])
	})
	return assets
}
