// Package entries holds the concrete ledger entries and their binary forms.
package entries

import (
	"encoding/binary"
	"fmt"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// MaxPoolFeeBps is the largest representable pool fee (100%).
const MaxPoolFeeBps uint32 = 10000

// LiquidityPool is a constant-product pool over two assets held in
// canonical order (AssetA < AssetB).
type LiquidityPool struct {
	PoolID   types.PoolID
	AssetA   types.Asset
	AssetB   types.Asset
	ReserveA int64
	ReserveB int64
	FeeBps   uint32
}

// NewLiquidityPool builds an empty pool over two assets with the derived
// pool ID. The assets may be given in either order.
func NewLiquidityPool(a, b types.Asset, feeBps uint32) (*LiquidityPool, error) {
	if b.Less(a) {
		a, b = b, a
	}
	p := &LiquidityPool{
		PoolID: types.DerivePoolID(a, b),
		AssetA: a,
		AssetB: b,
		FeeBps: feeBps,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Type returns the entry type.
func (p *LiquidityPool) Type() entry.Type {
	return entry.TypeLiquidityPool
}

// Validate checks structural invariants.
func (p *LiquidityPool) Validate() error {
	if !p.AssetA.Less(p.AssetB) {
		return fmt.Errorf("pool assets not in canonical order")
	}
	if p.ReserveA < 0 || p.ReserveB < 0 {
		return fmt.Errorf("negative pool reserve (%d, %d)", p.ReserveA, p.ReserveB)
	}
	if p.FeeBps > MaxPoolFeeBps {
		return fmt.Errorf("pool fee %d exceeds %d bps", p.FeeBps, MaxPoolFeeBps)
	}
	return nil
}

// Transfer applies reserve deltas. The caller (the pool frame) has already
// verified the constant-product invariant; this only guards against a
// reserve going negative.
func (p *LiquidityPool) Transfer(deltaA, deltaB int64) error {
	newA := p.ReserveA + deltaA
	newB := p.ReserveB + deltaB
	if newA < 0 || newB < 0 {
		return fmt.Errorf("pool transfer (%d, %d) would leave negative reserve", deltaA, deltaB)
	}
	p.ReserveA = newA
	p.ReserveB = newB
	return nil
}

const poolEncodedLen = 32 + 33 + 33 + 8 + 8 + 4

// Serialize writes the pool to its binary form.
func (p *LiquidityPool) Serialize() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data := make([]byte, poolEncodedLen)
	offset := 0

	copy(data[offset:offset+32], p.PoolID[:])
	offset += 32

	a := p.AssetA.Encode()
	copy(data[offset:offset+33], a[:])
	offset += 33

	b := p.AssetB.Encode()
	copy(data[offset:offset+33], b[:])
	offset += 33

	binary.BigEndian.PutUint64(data[offset:offset+8], uint64(p.ReserveA))
	offset += 8
	binary.BigEndian.PutUint64(data[offset:offset+8], uint64(p.ReserveB))
	offset += 8
	binary.BigEndian.PutUint32(data[offset:offset+4], p.FeeBps)

	return data, nil
}

// ParseLiquidityPool deserializes a pool entry.
func ParseLiquidityPool(data []byte) (*LiquidityPool, error) {
	if len(data) != poolEncodedLen {
		return nil, fmt.Errorf("pool entry: want %d bytes, got %d", poolEncodedLen, len(data))
	}
	p := &LiquidityPool{}
	offset := 0

	copy(p.PoolID[:], data[offset:offset+32])
	offset += 32

	a, err := types.DecodeAsset(data[offset : offset+33])
	if err != nil {
		return nil, err
	}
	p.AssetA = a
	offset += 33

	b, err := types.DecodeAsset(data[offset : offset+33])
	if err != nil {
		return nil, err
	}
	p.AssetB = b
	offset += 33

	p.ReserveA = int64(binary.BigEndian.Uint64(data[offset : offset+8]))
	offset += 8
	p.ReserveB = int64(binary.BigEndian.Uint64(data[offset : offset+8]))
	offset += 8
	p.FeeBps = binary.BigEndian.Uint32(data[offset : offset+4])

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
