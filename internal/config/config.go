// Package config loads the daemon configuration: store paths, cache sizing,
// and the exchange's tradable pair table.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry/entries"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// Config is the full daemon configuration.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
}

// StoreConfig locates the persistent stores.
type StoreConfig struct {
	// LedgerPath is the pebble directory holding ledger entries.
	LedgerPath string `mapstructure:"ledger_path"`
	// HistoryPath is the sqlite file holding the clearing archive.
	HistoryPath string `mapstructure:"history_path"`
	// CacheSize is the decoded-entry LRU capacity.
	CacheSize int `mapstructure:"cache_size"`
}

// ExchangeConfig describes the batch exchange.
type ExchangeConfig struct {
	// DefaultPoolFeeBps is applied to pools created without an explicit fee.
	DefaultPoolFeeBps uint32 `mapstructure:"default_pool_fee_bps"`
	// Pairs lists the tradable asset pairs.
	Pairs []PairConfig `mapstructure:"pairs"`
}

// PairConfig is one tradable pair in textual asset notation.
type PairConfig struct {
	Selling string `mapstructure:"selling"`
	Buying  string `mapstructure:"buying"`
}

// ParseAsset parses the textual asset notation: "native", or
// "CODE:<40 hex chars of issuer>".
func ParseAsset(s string) (types.Asset, error) {
	if s == "native" {
		return types.NativeAsset(), nil
	}
	code, issuerHex, ok := strings.Cut(s, ":")
	if !ok {
		return types.Asset{}, fmt.Errorf("asset %q: want \"native\" or CODE:ISSUER", s)
	}
	raw, err := hex.DecodeString(issuerHex)
	if err != nil || len(raw) != 20 {
		return types.Asset{}, fmt.Errorf("asset %q: issuer must be 20 hex-encoded bytes", s)
	}
	var issuer types.AccountID
	copy(issuer[:], raw)
	return types.IssuedAsset(code, issuer)
}

// AssetPairs parses the configured pair table.
func (e *ExchangeConfig) AssetPairs() ([]types.AssetPair, error) {
	pairs := make([]types.AssetPair, 0, len(e.Pairs))
	for _, pc := range e.Pairs {
		selling, err := ParseAsset(pc.Selling)
		if err != nil {
			return nil, err
		}
		buying, err := ParseAsset(pc.Buying)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, types.AssetPair{Selling: selling, Buying: buying})
	}
	return pairs, nil
}

// BuildDexConfig turns the configured pair table into the ledger's exchange
// configuration entry, canonicalizing pair order.
func (e *ExchangeConfig) BuildDexConfig() (*entries.DexConfig, error) {
	pairs, err := e.AssetPairs()
	if err != nil {
		return nil, err
	}
	cfg := &entries.DexConfig{Pairs: make([]types.AssetPair, 0, len(pairs))}
	for _, p := range pairs {
		canon, _ := p.Canonical()
		cfg.Pairs = append(cfg.Pairs, canon)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Store.LedgerPath == "" {
		return fmt.Errorf("store.ledger_path must be set")
	}
	if c.Store.HistoryPath == "" {
		return fmt.Errorf("store.history_path must be set")
	}
	if c.Store.CacheSize < 0 {
		return fmt.Errorf("store.cache_size cannot be negative")
	}
	if c.Exchange.DefaultPoolFeeBps > entries.MaxPoolFeeBps {
		return fmt.Errorf("exchange.default_pool_fee_bps %d exceeds %d",
			c.Exchange.DefaultPoolFeeBps, entries.MaxPoolFeeBps)
	}
	if _, err := c.Exchange.BuildDexConfig(); err != nil {
		return fmt.Errorf("exchange pair table: %w", err)
	}
	return nil
}
