package ledgerstore

import (
	"fmt"

	"github.com/speedex-core/speedexd/internal/core/ledger/entry/entries"
	"github.com/speedex-core/speedexd/internal/core/speedex"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// LoadDexConfig loads the exchange configuration singleton.
func (s *Store) LoadDexConfig() (*entries.DexConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.get(configKey())
	if err != nil {
		return nil, err
	}
	return entries.ParseDexConfig(data)
}

// StoreDexConfig writes the exchange configuration singleton.
func (s *Store) StoreDexConfig(cfg *entries.DexConfig) error {
	data, err := cfg.Serialize()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(configKey(), data)
}

// LoadPool loads a liquidity pool entry.
func (s *Store) LoadPool(id types.PoolID) (*entries.LiquidityPool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.get(poolKey(id))
	if err != nil {
		return nil, err
	}
	return entries.ParseLiquidityPool(data)
}

// StorePool writes a liquidity pool entry.
func (s *Store) StorePool(pool *entries.LiquidityPool) error {
	data, err := pool.Serialize()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(poolKey(pool.PoolID), data)
}

// LoadAccount loads an account root.
func (s *Store) LoadAccount(id types.AccountID) (*entries.AccountRoot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.get(accountKey(id))
	if err != nil {
		return nil, err
	}
	return entries.ParseAccountRoot(data)
}

// StoreAccount writes an account root.
func (s *Store) StoreAccount(account *entries.AccountRoot) error {
	data, err := account.Serialize()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(accountKey(account.AccountID), data)
}

// LoadTrustline loads an account's line in an asset.
func (s *Store) LoadTrustline(id types.AccountID, asset types.Asset) (*entries.TrustLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.get(trustlineKey(id, asset))
	if err != nil {
		return nil, err
	}
	return entries.ParseTrustLine(data)
}

// StoreTrustline writes a trustline entry.
func (s *Store) StoreTrustline(line *entries.TrustLine) error {
	data, err := line.Serialize()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(trustlineKey(line.AccountID, line.Asset), data)
}

// AvailableBalance returns the spendable balance: the account balance for
// the native asset, otherwise the trustline balance. A missing trustline
// holds nothing.
func (s *Store) AvailableBalance(id types.AccountID, asset types.Asset) (int64, error) {
	if asset.IsNative() {
		account, err := s.LoadAccount(id)
		if err != nil {
			return 0, err
		}
		return account.Balance, nil
	}
	line, err := s.LoadTrustline(id, asset)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return line.Balance, nil
}

// AddBalance applies a settlement balance move. The target entry must
// already exist; admission checks guarantee that for every filled offer.
func (s *Store) AddBalance(id types.AccountID, asset types.Asset, delta int64) error {
	if asset.IsNative() {
		account, err := s.LoadAccount(id)
		if err != nil {
			return err
		}
		if account.Balance+delta < 0 {
			return fmt.Errorf("account %x native balance %d cannot absorb %d",
				id[:4], account.Balance, delta)
		}
		account.Balance += delta
		return s.StoreAccount(account)
	}

	line, err := s.LoadTrustline(id, asset)
	if err != nil {
		return err
	}
	if line.Balance+delta < 0 {
		return fmt.Errorf("account %x balance %d in %s cannot absorb %d",
			id[:4], line.Balance, asset, delta)
	}
	line.Balance += delta
	return s.StoreTrustline(line)
}

// AppendClearingRecord stages a pool clearing record in the open scope.
func (s *Store) AppendClearingRecord(rec speedex.ClearingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.scopes); n > 0 {
		s.scopes[n-1].records = append(s.scopes[n-1].records, rec)
		return nil
	}
	s.records = append(s.records, rec)
	return nil
}

// AppendOfferClearing stages an offer fill record in the open scope.
func (s *Store) AppendOfferClearing(rec speedex.OfferClearing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.scopes); n > 0 {
		s.scopes[n-1].fills = append(s.scopes[n-1].fills, rec)
		return nil
	}
	s.fills = append(s.fills, rec)
	return nil
}
