// Package history archives clearing output. Each batch becomes one
// lz4-compressed CBOR blob, stored in sqlite next to a flat index of its
// pool records so per-pool activity can be queried without decoding blobs.
package history

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pierrec/lz4"
	"github.com/ugorji/go/codec"
	_ "modernc.org/sqlite"

	"github.com/speedex-core/speedexd/internal/core/speedex"
	"github.com/speedex-core/speedexd/internal/core/types"
)

// Batch is the archived output of one cleared batch.
type Batch struct {
	Seq      uint64                   `codec:"seq"`
	ClosedAt int64                    `codec:"closedAt"` // unix seconds
	Records  []speedex.ClearingRecord `codec:"records"`
	Fills    []speedex.OfferClearing  `codec:"fills"`
}

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	seq        INTEGER PRIMARY KEY,
	closed_at  INTEGER NOT NULL,
	records    INTEGER NOT NULL,
	fills      INTEGER NOT NULL,
	blob       BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS pool_records (
	seq           INTEGER NOT NULL,
	pool_id       BLOB NOT NULL,
	sold_asset    BLOB NOT NULL,
	bought_asset  BLOB NOT NULL,
	sold_amount   INTEGER NOT NULL,
	bought_amount INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS pool_records_by_pool ON pool_records(pool_id, seq);
`

// Archive is the sqlite-backed batch archive.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive at path.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive at %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// AppendBatch archives one batch. Seq must be fresh; re-archiving a
// sequence is a caller bug surfaced as a constraint error.
func (a *Archive) AppendBatch(seq uint64, records []speedex.ClearingRecord, fills []speedex.OfferClearing) error {
	b := Batch{
		Seq:      seq,
		ClosedAt: time.Now().Unix(),
		Records:  records,
		Fills:    fills,
	}
	blob, err := encodeBatch(&b)
	if err != nil {
		return err
	}

	dbtx, err := a.db.Begin()
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	_, err = dbtx.Exec(
		`INSERT INTO batches (seq, closed_at, records, fills, blob) VALUES (?, ?, ?, ?, ?)`,
		int64(seq), b.ClosedAt, len(records), len(fills), blob)
	if err != nil {
		return fmt.Errorf("archiving batch %d: %w", seq, err)
	}
	for _, rec := range records {
		soldAsset := rec.SoldAsset.Encode()
		boughtAsset := rec.BoughtAsset.Encode()
		_, err = dbtx.Exec(
			`INSERT INTO pool_records (seq, pool_id, sold_asset, bought_asset, sold_amount, bought_amount)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			int64(seq), rec.PoolID[:], soldAsset[:], boughtAsset[:], rec.SoldAmount, rec.BoughtAmount)
		if err != nil {
			return fmt.Errorf("indexing batch %d: %w", seq, err)
		}
	}
	return dbtx.Commit()
}

// LoadBatch decodes the archived batch with the given sequence.
func (a *Archive) LoadBatch(seq uint64) (*Batch, error) {
	var blob []byte
	err := a.db.QueryRow(`SELECT blob FROM batches WHERE seq = ?`, int64(seq)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no archived batch %d", seq)
	}
	if err != nil {
		return nil, err
	}
	return decodeBatch(blob)
}

// PoolHistory returns the pool's clearing records across all archived
// batches, oldest first.
func (a *Archive) PoolHistory(id types.PoolID) ([]speedex.ClearingRecord, error) {
	rows, err := a.db.Query(
		`SELECT pool_id, sold_asset, bought_asset, sold_amount, bought_amount
		 FROM pool_records WHERE pool_id = ? ORDER BY seq`, id[:])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []speedex.ClearingRecord
	for rows.Next() {
		var rec speedex.ClearingRecord
		var poolID, soldAsset, boughtAsset []byte
		if err := rows.Scan(&poolID, &soldAsset, &boughtAsset, &rec.SoldAmount, &rec.BoughtAmount); err != nil {
			return nil, err
		}
		copy(rec.PoolID[:], poolID)
		if rec.SoldAsset, err = types.DecodeAsset(soldAsset); err != nil {
			return nil, err
		}
		if rec.BoughtAsset, err = types.DecodeAsset(boughtAsset); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var cborHandle codec.CborHandle

// encodeBatch serializes and compresses a batch. The uncompressed length is
// prefixed so decoding can allocate exactly.
func encodeBatch(b *Batch) ([]byte, error) {
	var raw []byte
	if err := codec.NewEncoderBytes(&raw, &cborHandle).Encode(b); err != nil {
		return nil, fmt.Errorf("encoding batch %d: %w", b.Seq, err)
	}

	compressed := make([]byte, 4+lz4.CompressBlockBound(len(raw)))
	binary.BigEndian.PutUint32(compressed[:4], uint32(len(raw)))
	n, err := lz4.CompressBlock(raw, compressed[4:], nil)
	if err != nil {
		return nil, fmt.Errorf("compressing batch %d: %w", b.Seq, err)
	}
	if n == 0 {
		// Incompressible; store raw with a zero marker length.
		binary.BigEndian.PutUint32(compressed[:4], 0)
		return append(compressed[:4], raw...), nil
	}
	return compressed[:4+n], nil
}

func decodeBatch(blob []byte) (*Batch, error) {
	if len(blob) < 4 {
		return nil, fmt.Errorf("archive blob too short: %d bytes", len(blob))
	}
	rawLen := binary.BigEndian.Uint32(blob[:4])

	var raw []byte
	if rawLen == 0 {
		raw = blob[4:]
	} else {
		raw = make([]byte, rawLen)
		n, err := lz4.UncompressBlock(blob[4:], raw)
		if err != nil {
			return nil, fmt.Errorf("decompressing archive blob: %w", err)
		}
		raw = raw[:n]
	}

	b := &Batch{}
	if err := codec.NewDecoderBytes(raw, &cborHandle).Decode(b); err != nil {
		return nil, fmt.Errorf("decoding archive blob: %w", err)
	}
	return b, nil
}
