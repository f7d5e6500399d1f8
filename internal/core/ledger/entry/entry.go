// Package entry defines the ledger entry types the exchange core touches.
package entry

import "fmt"

// Type represents a ledger entry type.
type Type uint16

const (
	// TypeAccountRoot holds account objects.
	TypeAccountRoot Type = 0x0061
	// TypeTrustLine holds issued-asset trust lines.
	TypeTrustLine Type = 0x0072
	// TypeLiquidityPool holds constant-product pools.
	TypeLiquidityPool Type = 0x0079
	// TypeDexConfig is the batch-exchange configuration singleton.
	TypeDexConfig Type = 0x0081
)

func (t Type) String() string {
	switch t {
	case TypeAccountRoot:
		return "AccountRoot"
	case TypeTrustLine:
		return "TrustLine"
	case TypeLiquidityPool:
		return "LiquidityPool"
	case TypeDexConfig:
		return "DexConfig"
	}
	return fmt.Sprintf("Unknown(0x%04x)", uint16(t))
}

// Entry is implemented by every concrete ledger entry.
type Entry interface {
	Type() Type
	Validate() error
	Serialize() ([]byte, error)
}
