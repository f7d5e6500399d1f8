package types

import (
	"fmt"
	"math/bits"
)

// Price is an unsigned rational n/d. Offers store it with 32-bit terms; the
// clearing engine proposes candidate prices as 64-bit per-asset values. No
// normalization is applied; comparison is by cross-multiplication at 128-bit
// width so it can never overflow.
type Price struct {
	N int32
	D int32
}

// Valid reports whether both terms are positive.
func (p Price) Valid() bool {
	return p.N > 0 && p.D > 0
}

// cross128 compares a1*b2 against a2*b1 without overflow.
func cross128(a1, b2, a2, b1 uint64) int {
	h1, l1 := bits.Mul64(a1, b2)
	h2, l2 := bits.Mul64(a2, b1)
	switch {
	case h1 < h2:
		return -1
	case h1 > h2:
		return 1
	case l1 < l2:
		return -1
	case l1 > l2:
		return 1
	}
	return 0
}

// Cmp compares two offer prices.
func (p Price) Cmp(q Price) int {
	return cross128(uint64(p.N), uint64(q.D), uint64(q.N), uint64(p.D))
}

// Less reports p < q.
func (p Price) Less(q Price) bool {
	return p.Cmp(q) < 0
}

// CmpRatio compares p against the candidate fraction pn/pd.
func (p Price) CmpRatio(pn, pd uint64) int {
	return cross128(uint64(p.N), pd, pn, uint64(p.D))
}

// RatioLess reports whether the fraction an/ad is below bn/bd.
func RatioLess(an, ad, bn, bd uint64) bool {
	return cross128(an, bd, bn, ad) < 0
}

func (p Price) String() string {
	return fmt.Sprintf("%d/%d", p.N, p.D)
}
