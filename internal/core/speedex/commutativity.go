package speedex

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/speedex-core/speedexd/internal/core/types"
)

// BalanceSource is the slice of the ledger the requirements collector needs:
// an account's spendable balance in an asset at batch start, net of
// liabilities.
type BalanceSource interface {
	AvailableBalance(account types.AccountID, asset types.Asset) (int64, error)
}

type requirementKey struct {
	owner types.AccountID
	asset types.Asset
}

// RequirementsCollector accumulates, per (owner, asset), the maximum amount
// the owner's batch operations could debit. Registering every offer's full
// sell amount before any operation applies is what makes unordered batch
// execution safe: no interleaving can overdraw an account whose totals were
// validated up front.
type RequirementsCollector struct {
	totals map[requirementKey]int64
}

// NewRequirementsCollector returns an empty collector.
func NewRequirementsCollector() *RequirementsCollector {
	return &RequirementsCollector{totals: make(map[requirementKey]int64)}
}

// AddAssetRequirement registers a potential debit of amount against the
// owner's balance in asset. Overflow of the running total fails the
// offending operation.
func (c *RequirementsCollector) AddAssetRequirement(owner types.AccountID, asset types.Asset, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("requirement amount %d not positive", amount)
	}
	key := requirementKey{owner: owner, asset: asset}
	cur := c.totals[key]
	if cur > math.MaxInt64-amount {
		return fmt.Errorf("requirement total for %x in %s overflows", owner[:4], asset)
	}
	c.totals[key] = cur + amount
	return nil
}

// Requirement returns the running total for (owner, asset).
func (c *RequirementsCollector) Requirement(owner types.AccountID, asset types.Asset) int64 {
	return c.totals[requirementKey{owner: owner, asset: asset}]
}

// Validate checks every registered total against the owner's available
// balance at batch start. Iteration is sorted so failures are reported
// deterministically.
func (c *RequirementsCollector) Validate(balances BalanceSource) error {
	keys := make([]requirementKey, 0, len(c.totals))
	for k := range c.totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if c := bytes.Compare(a.owner[:], b.owner[:]); c != 0 {
			return c < 0
		}
		return a.asset.Less(b.asset)
	})

	for _, k := range keys {
		avail, err := balances.AvailableBalance(k.owner, k.asset)
		if err != nil {
			return fmt.Errorf("loading balance for %x in %s: %w", k.owner[:4], k.asset, err)
		}
		if c.totals[k] > avail {
			return fmt.Errorf("account %x requires %d %s but only %d is available",
				k.owner[:4], c.totals[k], k.asset, avail)
		}
	}
	return nil
}
