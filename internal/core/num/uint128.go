// Package num provides the 128-bit fixed-point arithmetic used by the
// batch-auction supply computations. All operations are exact; anything that
// could exceed 128 bits saturates rather than wraps, and callers are told
// when it happened.
package num

import (
	"math/big"
	"math/bits"
)

// Uint128 is an unsigned 128-bit integer.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// MaxUint128 is 2^128 - 1.
var MaxUint128 = Uint128{Hi: ^uint64(0), Lo: ^uint64(0)}

// MaxInt128 is 2^127 - 1, the saturation bound for values that must fit a
// signed 128-bit quantity.
var MaxInt128 = Uint128{Hi: 1<<63 - 1, Lo: ^uint64(0)}

// U128 returns v as a Uint128.
func U128(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// Mul64 returns the full 128-bit product a*b.
func Mul64(a, b uint64) Uint128 {
	hi, lo := bits.Mul64(a, b)
	return Uint128{Hi: hi, Lo: lo}
}

// IsZero reports whether x is zero.
func (x Uint128) IsZero() bool {
	return x.Hi == 0 && x.Lo == 0
}

// Cmp returns -1, 0, or 1 comparing x to y.
func (x Uint128) Cmp(y Uint128) int {
	switch {
	case x.Hi < y.Hi:
		return -1
	case x.Hi > y.Hi:
		return 1
	case x.Lo < y.Lo:
		return -1
	case x.Lo > y.Lo:
		return 1
	}
	return 0
}

// Add returns x+y and a carry flag when the sum exceeds 128 bits.
func (x Uint128) Add(y Uint128) (Uint128, bool) {
	lo, c := bits.Add64(x.Lo, y.Lo, 0)
	hi, c2 := bits.Add64(x.Hi, y.Hi, c)
	return Uint128{Hi: hi, Lo: lo}, c2 != 0
}

// AddSat returns x+y, saturating to MaxUint128. The second return reports
// whether saturation occurred.
func (x Uint128) AddSat(y Uint128) (Uint128, bool) {
	sum, carry := x.Add(y)
	if carry {
		return MaxUint128, true
	}
	return sum, false
}

// Sub returns x-y. The caller must ensure x >= y.
func (x Uint128) Sub(y Uint128) Uint128 {
	lo, borrow := bits.Sub64(x.Lo, y.Lo, 0)
	hi, _ := bits.Sub64(x.Hi, y.Hi, borrow)
	return Uint128{Hi: hi, Lo: lo}
}

// Lsh returns x<<n and whether bits were shifted out.
func (x Uint128) Lsh(n uint) (Uint128, bool) {
	if n == 0 {
		return x, false
	}
	if n >= 128 {
		return Uint128{}, !x.IsZero()
	}
	lost := false
	if n >= 64 {
		lost = x.Hi != 0 || (n > 64 && x.Lo>>(128-n) != 0)
		return Uint128{Hi: x.Lo << (n - 64)}, lost
	}
	lost = x.Hi>>(64-n) != 0
	return Uint128{Hi: x.Hi<<n | x.Lo>>(64-n), Lo: x.Lo << n}, lost
}

// Div64 returns x/d and x%d. d must be nonzero.
func (x Uint128) Div64(d uint64) (Uint128, uint64) {
	if d == 0 {
		panic("num: division by zero")
	}
	qhi := x.Hi / d
	r := x.Hi % d
	qlo, rem := bits.Div64(r, x.Lo, d)
	return Uint128{Hi: qhi, Lo: qlo}, rem
}

// Mod64 returns x%d. d must be nonzero.
func (x Uint128) Mod64(d uint64) uint64 {
	_, rem := x.Div64(d)
	return rem
}

// Mul64Sat returns x*m, saturating to MaxUint128.
func (x Uint128) Mul64Sat(m uint64) (Uint128, bool) {
	hi1, lo := bits.Mul64(x.Lo, m)
	hi2, overflow := bits.Mul64(x.Hi, m)
	if overflow != 0 {
		return MaxUint128, true
	}
	hi, carry := bits.Add64(hi1, hi2, 0)
	if carry != 0 {
		return MaxUint128, true
	}
	return Uint128{Hi: hi, Lo: lo}, false
}

// Uint64 returns the low 64 bits; ok is false when x does not fit.
func (x Uint128) Uint64() (uint64, bool) {
	return x.Lo, x.Hi == 0
}

// Big returns x as a big.Int. Used by tests and error messages only.
func (x Uint128) Big() *big.Int {
	b := new(big.Int).SetUint64(x.Hi)
	b.Lsh(b, 64)
	return b.Add(b, new(big.Int).SetUint64(x.Lo))
}

func (x Uint128) String() string {
	return x.Big().String()
}
