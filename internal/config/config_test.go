package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedex-core/speedexd/internal/core/types"
)

const issuerHex = "0101010101010101010101010101010101010101"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/ledger", cfg.Store.LedgerPath)
	assert.Equal(t, "data/history.db", cfg.Store.HistoryPath)
	assert.Equal(t, 4096, cfg.Store.CacheSize)
	assert.Equal(t, uint32(30), cfg.Exchange.DefaultPoolFeeBps)
	assert.Empty(t, cfg.Exchange.Pairs)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speedexd.toml")
	content := strings.ReplaceAll(`
[store]
ledger_path = "/var/lib/speedexd/ledger"
cache_size = 128

[exchange]
default_pool_fee_bps = 10

[[exchange.pairs]]
selling = "EUR:@"
buying = "USD:@"
`, "@", issuerHex)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/speedexd/ledger", cfg.Store.LedgerPath)
	assert.Equal(t, "data/history.db", cfg.Store.HistoryPath, "file keeps unset defaults")
	assert.Equal(t, 128, cfg.Store.CacheSize)
	assert.Equal(t, uint32(10), cfg.Exchange.DefaultPoolFeeBps)

	pairs, err := cfg.Exchange.AssetPairs()
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	dex, err := cfg.Exchange.BuildDexConfig()
	require.NoError(t, err)
	assert.True(t, dex.IsValidAssetPair(pairs[0].Reverse()))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SPEEDEXD_STORE_CACHE_SIZE", "9")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Store.CacheSize)
}

func TestLoadRejectsBadFee(t *testing.T) {
	t.Setenv("SPEEDEXD_EXCHANGE_DEFAULT_POOL_FEE_BPS", "10001")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_pool_fee_bps")
}

func TestParseAsset(t *testing.T) {
	a, err := ParseAsset("native")
	require.NoError(t, err)
	assert.True(t, a.IsNative())

	a, err = ParseAsset("EUR:" + issuerHex)
	require.NoError(t, err)
	assert.Equal(t, types.AssetTypeIssued, a.Type)

	for _, bad := range []string{"", "EUR", "EUR:zz", "EUR:0101", ":"} {
		_, err := ParseAsset(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestValidateRejectsDegeneratePairs(t *testing.T) {
	cfg := &Config{
		Store: StoreConfig{LedgerPath: "x", HistoryPath: "y"},
		Exchange: ExchangeConfig{Pairs: []PairConfig{
			{Selling: "native", Buying: "native"},
		}},
	}
	assert.Error(t, cfg.Validate())
}
