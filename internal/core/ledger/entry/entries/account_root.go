package entries

import (
	"encoding/binary"
	"fmt"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// AccountRoot is an account object. Balance is the native-asset balance.
type AccountRoot struct {
	AccountID types.AccountID
	Balance   int64
	Sequence  int64
	Flags     uint32
}

// Type returns the entry type.
func (a *AccountRoot) Type() entry.Type {
	return entry.TypeAccountRoot
}

// Validate checks structural invariants.
func (a *AccountRoot) Validate() error {
	if a.Balance < 0 {
		return fmt.Errorf("negative account balance %d", a.Balance)
	}
	if a.Sequence < 0 {
		return fmt.Errorf("negative account sequence %d", a.Sequence)
	}
	return nil
}

// IsIssuanceLimited reports whether the account opted into batch-clearing
// issuance semantics; assets it issues are then commutative.
func (a *AccountRoot) IsIssuanceLimited() bool {
	return a.Flags&entry.FlagAuthIssuanceLimit != 0
}

const accountEncodedLen = 20 + 8 + 8 + 4

// Serialize writes the account to its binary form.
func (a *AccountRoot) Serialize() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	data := make([]byte, accountEncodedLen)
	copy(data[:20], a.AccountID[:])
	binary.BigEndian.PutUint64(data[20:28], uint64(a.Balance))
	binary.BigEndian.PutUint64(data[28:36], uint64(a.Sequence))
	binary.BigEndian.PutUint32(data[36:40], a.Flags)
	return data, nil
}

// ParseAccountRoot deserializes an account entry.
func ParseAccountRoot(data []byte) (*AccountRoot, error) {
	if len(data) != accountEncodedLen {
		return nil, fmt.Errorf("account entry: want %d bytes, got %d", accountEncodedLen, len(data))
	}
	a := &AccountRoot{}
	copy(a.AccountID[:], data[:20])
	a.Balance = int64(binary.BigEndian.Uint64(data[20:28]))
	a.Sequence = int64(binary.BigEndian.Uint64(data[28:36]))
	a.Flags = binary.BigEndian.Uint32(data[36:40])
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
