// Package ledgerstore is the pebble-backed implementation of the ledger
// adaptor contract. Entries live under a one-byte key prefix per type;
// decoded-entry bytes are cached in an LRU in front of the database. Nested
// scopes stage writes in memory and reach pebble only when the outermost
// scope commits, which makes batch settlement atomic.
package ledgerstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/speedex-core/speedexd/internal/core/speedex"
	"github.com/speedex-core/speedexd/internal/core/tx"
	"github.com/speedex-core/speedexd/internal/core/types"
)

var errClosed = errors.New("ledger store is closed")

func isNotFound(err error) bool {
	return errors.Is(err, tx.ErrNotFound)
}

const (
	prefixAccount   = 'a'
	prefixTrustline = 't'
	prefixPool      = 'p'
	prefixConfig    = 'c'
)

// DefaultCacheSize is the entry-cache capacity used when the caller passes
// a non-positive size.
const DefaultCacheSize = 4096

// scope is one nested staging level: writes and record output held back
// until commit.
type scope struct {
	writes  map[string][]byte
	records []speedex.ClearingRecord
	fills   []speedex.OfferClearing
}

func newScope() *scope {
	return &scope{writes: make(map[string][]byte)}
}

// Store implements tx.LedgerView on top of pebble.
type Store struct {
	mu     sync.Mutex
	db     *pebble.DB
	cache  *lru.Cache[string, []byte]
	scopes []*scope

	// committed batch output, drained by the archiver
	records []speedex.ClearingRecord
	fills   []speedex.OfferClearing
}

// Open opens (or creates) the store at path.
func Open(path string, cacheSize int) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening ledger store at %s: %w", path, err)
	}
	return newStore(db, cacheSize)
}

// OpenMem opens an in-memory store, used by tests.
func OpenMem(cacheSize int) (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return newStore(db, cacheSize)
}

func newStore(db *pebble.DB, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, cache: cache}, nil
}

// Close flushes nothing: open scopes are discarded, like a rollback.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func accountKey(id types.AccountID) []byte {
	return append([]byte{prefixAccount}, id[:]...)
}

func trustlineKey(id types.AccountID, asset types.Asset) []byte {
	k := make([]byte, 0, 1+20+33)
	k = append(k, prefixTrustline)
	k = append(k, id[:]...)
	enc := asset.Encode()
	return append(k, enc[:]...)
}

func poolKey(id types.PoolID) []byte {
	return append([]byte{prefixPool}, id[:]...)
}

func configKey() []byte {
	return []byte{prefixConfig}
}

// get reads raw entry bytes: open scopes first (newest wins), then the
// cache, then pebble.
func (s *Store) get(key []byte) ([]byte, error) {
	if s.db == nil {
		return nil, errClosed
	}
	ks := string(key)
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i].writes[ks]; ok {
			return v, nil
		}
	}
	if v, ok := s.cache.Get(ks); ok {
		return v, nil
	}

	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("key %x: %w", key, tx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	cp := make([]byte, len(val))
	copy(cp, val)
	s.cache.Add(ks, cp)
	return cp, nil
}

// put stages raw entry bytes in the innermost scope, or writes straight to
// pebble when no scope is open.
func (s *Store) put(key, value []byte) error {
	if s.db == nil {
		return errClosed
	}
	if n := len(s.scopes); n > 0 {
		s.scopes[n-1].writes[string(key)] = value
		return nil
	}
	if err := s.db.Set(key, value, pebble.Sync); err != nil {
		return err
	}
	s.cache.Add(string(key), value)
	return nil
}

// Begin opens a nested scope.
func (s *Store) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return errClosed
	}
	s.scopes = append(s.scopes, newScope())
	return nil
}

// Commit merges the innermost scope into its parent, or flushes it to
// pebble in one synced batch when it is the outermost.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.scopes)
	if n == 0 {
		return errors.New("commit without open scope")
	}
	top := s.scopes[n-1]
	s.scopes = s.scopes[:n-1]

	if n > 1 {
		parent := s.scopes[n-2]
		for k, v := range top.writes {
			parent.writes[k] = v
		}
		parent.records = append(parent.records, top.records...)
		parent.fills = append(parent.fills, top.fills...)
		return nil
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	for k, v := range top.writes {
		if err := batch.Set([]byte(k), v, nil); err != nil {
			return err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return err
	}
	for k, v := range top.writes {
		s.cache.Add(k, v)
	}
	s.records = append(s.records, top.records...)
	s.fills = append(s.fills, top.fills...)
	return nil
}

// Rollback discards the innermost scope.
func (s *Store) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.scopes)
	if n == 0 {
		return errors.New("rollback without open scope")
	}
	s.scopes = s.scopes[:n-1]
	return nil
}

// DrainBatchOutput returns and clears the committed clearing output. The
// archiver calls this once per batch.
func (s *Store) DrainBatchOutput() ([]speedex.ClearingRecord, []speedex.OfferClearing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, fills := s.records, s.fills
	s.records, s.fills = nil, nil
	return records, fills
}

var _ tx.LedgerView = (*Store)(nil)
