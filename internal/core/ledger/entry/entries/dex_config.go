package entries

import (
	"encoding/binary"
	"fmt"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// DexConfig is the batch-exchange configuration singleton: the set of
// tradable asset pairs. Pairs are stored in canonical (unordered) form;
// both directions of a listed pair are tradable.
type DexConfig struct {
	Pairs []types.AssetPair
}

// Type returns the entry type.
func (c *DexConfig) Type() entry.Type {
	return entry.TypeDexConfig
}

// Validate checks structural invariants.
func (c *DexConfig) Validate() error {
	seen := make(map[[2][33]byte]struct{}, len(c.Pairs))
	for _, p := range c.Pairs {
		if !p.Valid() {
			return fmt.Errorf("config pair %s names the same asset twice", p)
		}
		if !p.Selling.Less(p.Buying) {
			return fmt.Errorf("config pair %s not in canonical order", p)
		}
		if p.Selling.IsPoolShare() || p.Buying.IsPoolShare() {
			return fmt.Errorf("config pair %s references a pool share", p)
		}
		key := [2][33]byte{p.Selling.Encode(), p.Buying.Encode()}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate config pair %s", p)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// IsValidAssetPair reports whether the pair (in either direction) is
// tradable on the batch exchange.
func (c *DexConfig) IsValidAssetPair(p types.AssetPair) bool {
	canon, _ := p.Canonical()
	for _, q := range c.Pairs {
		if q.Cmp(canon) == 0 {
			return true
		}
	}
	return false
}

// Serialize writes the config to its binary form.
func (c *DexConfig) Serialize() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	data := make([]byte, 4+len(c.Pairs)*66)
	binary.BigEndian.PutUint32(data[:4], uint32(len(c.Pairs)))
	offset := 4
	for _, p := range c.Pairs {
		s := p.Selling.Encode()
		copy(data[offset:offset+33], s[:])
		offset += 33
		b := p.Buying.Encode()
		copy(data[offset:offset+33], b[:])
		offset += 33
	}
	return data, nil
}

// ParseDexConfig deserializes the config entry.
func ParseDexConfig(data []byte) (*DexConfig, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("dex config entry too short: %d bytes", len(data))
	}
	count := binary.BigEndian.Uint32(data[:4])
	if len(data) != 4+int(count)*66 {
		return nil, fmt.Errorf("dex config entry: want %d bytes for %d pairs, got %d",
			4+int(count)*66, count, len(data))
	}
	c := &DexConfig{Pairs: make([]types.AssetPair, 0, count)}
	offset := 4
	for i := uint32(0); i < count; i++ {
		selling, err := types.DecodeAsset(data[offset : offset+33])
		if err != nil {
			return nil, err
		}
		offset += 33
		buying, err := types.DecodeAsset(data[offset : offset+33])
		if err != nil {
			return nil, err
		}
		offset += 33
		c.Pairs = append(c.Pairs, types.AssetPair{Selling: selling, Buying: buying})
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
