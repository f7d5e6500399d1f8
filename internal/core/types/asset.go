// Package types holds the identifier and price primitives shared by the
// batch-auction core: assets, trading pairs, accounts, pools, and the
// rational price fraction.
package types

import (
	"bytes"
	"crypto/sha512"
	"fmt"
)

// AccountID is a 20-byte account identifier.
type AccountID [20]byte

// PoolID identifies a liquidity pool.
type PoolID [32]byte

// AssetType discriminates the asset variants.
type AssetType uint8

const (
	AssetTypeNative AssetType = iota
	AssetTypeIssued
	AssetTypePoolShare
)

// Asset is an opaque asset identifier with a total order. Issued assets
// carry a code and the issuer account; pool-share assets reference a pool
// and are never tradable on the batch exchange.
type Asset struct {
	Type   AssetType
	Code   [12]byte
	Issuer AccountID
}

// NativeAsset returns the native asset.
func NativeAsset() Asset {
	return Asset{Type: AssetTypeNative}
}

// IssuedAsset builds an issued asset from a short code and issuer.
func IssuedAsset(code string, issuer AccountID) (Asset, error) {
	if code == "" || len(code) > 12 {
		return Asset{}, fmt.Errorf("invalid asset code %q", code)
	}
	a := Asset{Type: AssetTypeIssued, Issuer: issuer}
	copy(a.Code[:], code)
	return a, nil
}

// PoolShareAsset builds the trustline asset for a pool's shares. The pool ID
// is packed across the code and issuer fields.
func PoolShareAsset(pool PoolID) Asset {
	a := Asset{Type: AssetTypePoolShare}
	copy(a.Code[:], pool[:12])
	copy(a.Issuer[:], pool[12:])
	return a
}

// IsNative reports whether a is the native asset.
func (a Asset) IsNative() bool {
	return a.Type == AssetTypeNative
}

// IsPoolShare reports whether a is a pool-share asset.
func (a Asset) IsPoolShare() bool {
	return a.Type == AssetTypePoolShare
}

// PoolShareID recovers the pool ID from a pool-share asset.
func (a Asset) PoolShareID() (PoolID, bool) {
	if a.Type != AssetTypePoolShare {
		return PoolID{}, false
	}
	var id PoolID
	copy(id[:12], a.Code[:])
	copy(id[12:], a.Issuer[:])
	return id, true
}

// assetEncodedLen is the fixed width of Asset.Encode output.
const assetEncodedLen = 1 + 12 + 20

// Encode writes a to a fixed 33-byte form usable as a store key component.
func (a Asset) Encode() [assetEncodedLen]byte {
	var out [assetEncodedLen]byte
	out[0] = byte(a.Type)
	copy(out[1:13], a.Code[:])
	copy(out[13:], a.Issuer[:])
	return out
}

// DecodeAsset is the inverse of Encode.
func DecodeAsset(data []byte) (Asset, error) {
	if len(data) != assetEncodedLen {
		return Asset{}, fmt.Errorf("asset: want %d bytes, got %d", assetEncodedLen, len(data))
	}
	if data[0] > byte(AssetTypePoolShare) {
		return Asset{}, fmt.Errorf("asset: unknown type %d", data[0])
	}
	a := Asset{Type: AssetType(data[0])}
	copy(a.Code[:], data[1:13])
	copy(a.Issuer[:], data[13:])
	return a, nil
}

// Cmp imposes the total order on assets: by type, then code, then issuer.
func (a Asset) Cmp(b Asset) int {
	if a.Type != b.Type {
		if a.Type < b.Type {
			return -1
		}
		return 1
	}
	if c := bytes.Compare(a.Code[:], b.Code[:]); c != 0 {
		return c
	}
	return bytes.Compare(a.Issuer[:], b.Issuer[:])
}

// Less reports a < b in the total order.
func (a Asset) Less(b Asset) bool {
	return a.Cmp(b) < 0
}

func (a Asset) String() string {
	switch a.Type {
	case AssetTypeNative:
		return "native"
	case AssetTypePoolShare:
		id, _ := a.PoolShareID()
		return fmt.Sprintf("pool-share:%x", id[:4])
	}
	code := a.Code[:]
	if i := bytes.IndexByte(code, 0); i >= 0 {
		code = code[:i]
	}
	return fmt.Sprintf("%s:%x", code, a.Issuer[:4])
}

// DerivePoolID computes the identifier of the pool over two assets as the
// first half of SHA-512 over their canonical-order encodings. Both argument
// orders yield the same ID.
func DerivePoolID(a, b Asset) PoolID {
	if b.Less(a) {
		a, b = b, a
	}
	h := sha512.New()
	ea, eb := a.Encode(), b.Encode()
	h.Write(ea[:])
	h.Write(eb[:])
	var id PoolID
	copy(id[:], h.Sum(nil))
	return id
}

// AssetPair is a directed trading pair: the selling asset is exchanged for
// the buying asset.
type AssetPair struct {
	Selling Asset
	Buying  Asset
}

// Valid reports whether the pair names two distinct assets.
func (p AssetPair) Valid() bool {
	return p.Selling.Cmp(p.Buying) != 0
}

// Reverse returns the opposite direction of the pair.
func (p AssetPair) Reverse() AssetPair {
	return AssetPair{Selling: p.Buying, Buying: p.Selling}
}

// Canonical returns the pair with its assets in total order, plus whether
// the input was reversed to get there.
func (p AssetPair) Canonical() (AssetPair, bool) {
	if p.Selling.Less(p.Buying) {
		return p, false
	}
	return p.Reverse(), true
}

// Cmp orders pairs deterministically (selling first, then buying).
func (p AssetPair) Cmp(q AssetPair) int {
	if c := p.Selling.Cmp(q.Selling); c != 0 {
		return c
	}
	return p.Buying.Cmp(q.Buying)
}

func (p AssetPair) String() string {
	return p.Selling.String() + "/" + p.Buying.String()
}
