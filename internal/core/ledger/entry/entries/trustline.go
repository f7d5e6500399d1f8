package entries

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// TrustLine records an account's holding of an issued asset.
type TrustLine struct {
	AccountID types.AccountID
	Asset     types.Asset
	Balance   int64
	Limit     int64
	Flags     uint32
}

// Type returns the entry type.
func (t *TrustLine) Type() entry.Type {
	return entry.TypeTrustLine
}

// Validate checks structural invariants.
func (t *TrustLine) Validate() error {
	if t.Asset.IsNative() {
		return fmt.Errorf("trustline cannot reference the native asset")
	}
	if t.Balance < 0 {
		return fmt.Errorf("negative trustline balance %d", t.Balance)
	}
	if t.Limit < 0 {
		return fmt.Errorf("negative trustline limit %d", t.Limit)
	}
	if t.Balance > t.Limit {
		return fmt.Errorf("trustline balance %d exceeds limit %d", t.Balance, t.Limit)
	}
	return nil
}

// IsAuthorizedToMaintainLiabilities reports whether the line may keep
// balances and offers. Pool-share lines are always permitted.
func (t *TrustLine) IsAuthorizedToMaintainLiabilities() bool {
	if t.Asset.IsPoolShare() {
		return true
	}
	const mask = entry.FlagTrustAuthorized | entry.FlagTrustAuthorizedToMaintainLiabilities
	return t.Flags&mask != 0
}

// IsCommutativeTxEnabled reports whether the line can back unordered batch
// execution: it must be allowed to maintain liabilities and must carry no
// limit that a concurrent credit could overrun.
func (t *TrustLine) IsCommutativeTxEnabled() bool {
	return t.IsAuthorizedToMaintainLiabilities() && t.Limit == math.MaxInt64
}

const trustlineEncodedLen = 20 + 33 + 8 + 8 + 4

// Serialize writes the trustline to its binary form.
func (t *TrustLine) Serialize() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	data := make([]byte, trustlineEncodedLen)
	offset := 0

	copy(data[offset:offset+20], t.AccountID[:])
	offset += 20

	a := t.Asset.Encode()
	copy(data[offset:offset+33], a[:])
	offset += 33

	binary.BigEndian.PutUint64(data[offset:offset+8], uint64(t.Balance))
	offset += 8
	binary.BigEndian.PutUint64(data[offset:offset+8], uint64(t.Limit))
	offset += 8
	binary.BigEndian.PutUint32(data[offset:offset+4], t.Flags)

	return data, nil
}

// ParseTrustLine deserializes a trustline entry.
func ParseTrustLine(data []byte) (*TrustLine, error) {
	if len(data) != trustlineEncodedLen {
		return nil, fmt.Errorf("trustline entry: want %d bytes, got %d", trustlineEncodedLen, len(data))
	}
	t := &TrustLine{}
	offset := 0

	copy(t.AccountID[:], data[offset:offset+20])
	offset += 20

	a, err := types.DecodeAsset(data[offset : offset+33])
	if err != nil {
		return nil, err
	}
	t.Asset = a
	offset += 33

	t.Balance = int64(binary.BigEndian.Uint64(data[offset : offset+8]))
	offset += 8
	t.Limit = int64(binary.BigEndian.Uint64(data[offset : offset+8]))
	offset += 8
	t.Flags = binary.BigEndian.Uint32(data[offset : offset+4])

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
