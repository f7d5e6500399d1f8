package tx

import (
	"errors"
	"fmt"

	"github.com/speedex-core/speedexd/internal/core/speedex"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// CreateSpeedexIOCOffer admits one immediate-or-cancel offer to the current
// batch: sell SellAmount of SellAsset for BuyAsset at MinPrice or better.
// The operation registers its maximum debit with the batch's commutativity
// collector before touching the orderbook, so admission order never matters.
type CreateSpeedexIOCOffer struct {
	Account    types.AccountID
	SeqNum     int64
	OpIndex    uint32
	SellAsset  types.Asset
	BuyAsset   types.Asset
	SellAmount int64
	MinPrice   types.Price
}

// checkMalformed rejects structurally bad operations without consulting the
// ledger.
func (op *CreateSpeedexIOCOffer) checkMalformed() bool {
	if op.SellAmount <= 0 {
		return true
	}
	if !op.MinPrice.Valid() {
		return true
	}
	if op.SellAsset.Cmp(op.BuyAsset) == 0 {
		return true
	}
	if op.SellAsset.IsPoolShare() || op.BuyAsset.IsPoolShare() {
		return true
	}
	return false
}

// isCommutativeAsset reports whether the asset can participate in unordered
// batch execution: the native asset always can, pool shares never can, and
// an issued asset can when its issuer opted in with the issuance-limit
// flag.
func isCommutativeAsset(view LedgerView, asset types.Asset) (bool, error) {
	switch {
	case asset.IsNative():
		return true, nil
	case asset.IsPoolShare():
		return false, nil
	}
	issuer, err := view.LoadAccount(asset.Issuer)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return issuer.IsIssuanceLimited(), nil
}

// checkTrustline reports whether the account's line in the asset can back
// batch execution. Native needs no line; issued assets need a line that is
// authorized to maintain liabilities and carries no finite limit.
func checkTrustline(view LedgerView, account types.AccountID, asset types.Asset) (bool, error) {
	if asset.IsNative() {
		return true, nil
	}
	line, err := view.LoadTrustline(account, asset)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return line.IsCommutativeTxEnabled(), nil
}

// checkValid runs every ledger-dependent admission check and maps failures
// to result codes.
func (op *CreateSpeedexIOCOffer) checkValid(view LedgerView) (Result, error) {
	if op.checkMalformed() {
		return ResultMalformed, nil
	}

	for _, asset := range []types.Asset{op.SellAsset, op.BuyAsset} {
		ok, err := isCommutativeAsset(view, asset)
		if err != nil {
			return ResultMalformed, err
		}
		if !ok {
			return ResultMalformed, nil
		}
	}

	cfg, err := view.LoadDexConfig()
	if errors.Is(err, ErrNotFound) {
		return ResultNoSpeedexConfig, nil
	}
	if err != nil {
		return ResultNoSpeedexConfig, err
	}
	if !cfg.IsValidAssetPair(types.AssetPair{Selling: op.SellAsset, Buying: op.BuyAsset}) {
		return ResultInvalidTradingPair, nil
	}

	for _, asset := range []types.Asset{op.SellAsset, op.BuyAsset} {
		ok, err := checkTrustline(view, op.Account, asset)
		if err != nil {
			return ResultMalformed, err
		}
		if !ok {
			return ResultMalformed, nil
		}
	}

	return ResultOK, nil
}

// AddCommutativityRequirements registers the offer's maximum potential
// debit: the full sell amount, since an IOC offer either fills whole or is
// dropped.
func (op *CreateSpeedexIOCOffer) AddCommutativityRequirements(batch *speedex.BatchState) error {
	return batch.Requirements().AddAssetRequirement(op.Account, op.SellAsset, op.SellAmount)
}

// Apply validates the operation against the ledger and admits the offer to
// the batch. A non-OK result leaves the batch untouched.
func (op *CreateSpeedexIOCOffer) Apply(view LedgerView, batch *speedex.BatchState) (Result, error) {
	res, err := op.checkValid(view)
	if err != nil || !res.Success() {
		return res, err
	}

	if err := op.AddCommutativityRequirements(batch); err != nil {
		return ResultMalformed, nil
	}

	offer := speedex.IOCOffer{
		SellAmount: op.SellAmount,
		MinPrice:   op.MinPrice,
		Owner:      op.Account,
		SeqNum:     op.SeqNum,
		OpIndex:    op.OpIndex,
	}
	pair := types.AssetPair{Selling: op.SellAsset, Buying: op.BuyAsset}
	if err := batch.AddOffer(pair, offer); err != nil {
		return ResultMalformed, fmt.Errorf("admitting offer: %w", err)
	}
	return ResultOK, nil
}
