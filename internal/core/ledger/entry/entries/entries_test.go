package entries

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry"
	"github.com/speedex-core/speedexd/internal/core/types"
)

func acct(b byte) types.AccountID {
	var id types.AccountID
	id[0] = b
	return id
}

func issued(t *testing.T, code string, issuer byte) types.Asset {
	t.Helper()
	a, err := types.IssuedAsset(code, acct(issuer))
	require.NoError(t, err)
	return a
}

func canonicalPair(t *testing.T) (types.Asset, types.Asset) {
	t.Helper()
	a := issued(t, "EUR", 1)
	b := issued(t, "USD", 1)
	require.True(t, a.Less(b))
	return a, b
}

func TestLiquidityPoolRoundTrip(t *testing.T) {
	a, b := canonicalPair(t)
	pool := &LiquidityPool{
		PoolID:   types.PoolID{9, 9},
		AssetA:   a,
		AssetB:   b,
		ReserveA: 1_000_000,
		ReserveB: 2_000_000,
		FeeBps:   30,
	}
	assert.Equal(t, entry.TypeLiquidityPool, pool.Type())

	data, err := pool.Serialize()
	require.NoError(t, err)
	got, err := ParseLiquidityPool(data)
	require.NoError(t, err)
	assert.Equal(t, pool, got)
}

func TestLiquidityPoolValidate(t *testing.T) {
	a, b := canonicalPair(t)

	t.Run("non-canonical order", func(t *testing.T) {
		pool := &LiquidityPool{AssetA: b, AssetB: a}
		assert.Error(t, pool.Validate())
	})
	t.Run("negative reserve", func(t *testing.T) {
		pool := &LiquidityPool{AssetA: a, AssetB: b, ReserveA: -1}
		assert.Error(t, pool.Validate())
	})
	t.Run("fee over 100 percent", func(t *testing.T) {
		pool := &LiquidityPool{AssetA: a, AssetB: b, FeeBps: 10001}
		assert.Error(t, pool.Validate())
	})
}

func TestLiquidityPoolTransfer(t *testing.T) {
	a, b := canonicalPair(t)
	pool := &LiquidityPool{AssetA: a, AssetB: b, ReserveA: 100, ReserveB: 200}

	require.NoError(t, pool.Transfer(-40, 60))
	assert.Equal(t, int64(60), pool.ReserveA)
	assert.Equal(t, int64(260), pool.ReserveB)

	err := pool.Transfer(-100, 0)
	assert.Error(t, err)
	assert.Equal(t, int64(60), pool.ReserveA, "failed transfer must not mutate")
}

func TestAccountRootRoundTrip(t *testing.T) {
	acctEntry := &AccountRoot{
		AccountID: acct(3),
		Balance:   500,
		Sequence:  42,
		Flags:     entry.FlagAuthIssuanceLimit,
	}
	data, err := acctEntry.Serialize()
	require.NoError(t, err)
	got, err := ParseAccountRoot(data)
	require.NoError(t, err)
	assert.Equal(t, acctEntry, got)
	assert.True(t, got.IsIssuanceLimited())

	plain := &AccountRoot{AccountID: acct(4)}
	assert.False(t, plain.IsIssuanceLimited())
}

func TestTrustLineCommutativeGate(t *testing.T) {
	usd := issued(t, "USD", 1)

	tests := []struct {
		name  string
		line  TrustLine
		want  bool
	}{
		{
			"authorized unlimited",
			TrustLine{Asset: usd, Limit: math.MaxInt64, Flags: entry.FlagTrustAuthorized},
			true,
		},
		{
			"maintain liabilities unlimited",
			TrustLine{Asset: usd, Limit: math.MaxInt64, Flags: entry.FlagTrustAuthorizedToMaintainLiabilities},
			true,
		},
		{
			"unauthorized",
			TrustLine{Asset: usd, Limit: math.MaxInt64},
			false,
		},
		{
			"finite limit",
			TrustLine{Asset: usd, Limit: 1000, Flags: entry.FlagTrustAuthorized},
			false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.line.IsCommutativeTxEnabled())
		})
	}
}

func TestTrustLineRoundTrip(t *testing.T) {
	line := &TrustLine{
		AccountID: acct(5),
		Asset:     issued(t, "USD", 1),
		Balance:   10,
		Limit:     1000,
		Flags:     entry.FlagTrustAuthorized,
	}
	data, err := line.Serialize()
	require.NoError(t, err)
	got, err := ParseTrustLine(data)
	require.NoError(t, err)
	assert.Equal(t, line, got)

	bad := &TrustLine{Asset: types.NativeAsset(), Limit: 1}
	_, err = bad.Serialize()
	assert.Error(t, err)
}

func TestDexConfig(t *testing.T) {
	a, b := canonicalPair(t)
	cfg := &DexConfig{Pairs: []types.AssetPair{{Selling: a, Buying: b}}}
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.IsValidAssetPair(types.AssetPair{Selling: a, Buying: b}))
	assert.True(t, cfg.IsValidAssetPair(types.AssetPair{Selling: b, Buying: a}),
		"both directions of a listed pair are tradable")

	other := issued(t, "GBP", 2)
	assert.False(t, cfg.IsValidAssetPair(types.AssetPair{Selling: a, Buying: other}))

	data, err := cfg.Serialize()
	require.NoError(t, err)
	got, err := ParseDexConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.Pairs, got.Pairs)
}

func TestDexConfigRejectsBadPairs(t *testing.T) {
	a, b := canonicalPair(t)

	assert.Error(t, (&DexConfig{Pairs: []types.AssetPair{{Selling: b, Buying: a}}}).Validate(),
		"non-canonical")
	assert.Error(t, (&DexConfig{Pairs: []types.AssetPair{{Selling: a, Buying: a}}}).Validate(),
		"degenerate")
	assert.Error(t, (&DexConfig{Pairs: []types.AssetPair{
		{Selling: a, Buying: b}, {Selling: a, Buying: b},
	}}).Validate(), "duplicate")

	share := types.PoolShareAsset(types.PoolID{1})
	pair := types.AssetPair{Selling: a, Buying: share}
	canon, _ := pair.Canonical()
	assert.Error(t, (&DexConfig{Pairs: []types.AssetPair{canon}}).Validate(), "pool share")
}
