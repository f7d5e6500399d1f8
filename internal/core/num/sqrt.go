package num

import "math"

// SqrtFloor returns floor(sqrt(x)) for a 128-bit x. The result always fits
// in 64 bits. A float64 seed is refined with Newton steps and then corrected
// against exact 128-bit products, so the answer is exact over the whole range
// (the float-only variant is only trustworthy below 2^53).
func SqrtFloor(x Uint128) uint64 {
	if x.IsZero() {
		return 0
	}

	f := float64(x.Hi)*0x1p64 + float64(x.Lo)
	fr := math.Sqrt(f)

	var r uint64
	if fr >= 0x1p64 {
		r = math.MaxUint64
	} else {
		r = uint64(fr)
		if r == 0 {
			r = 1
		}
	}

	// Two Newton steps pull the float seed to within one of the true root.
	for i := 0; i < 2; i++ {
		q, _ := x.Div64(r)
		qv, ok := q.Uint64()
		if !ok {
			qv = math.MaxUint64
		}
		r = r/2 + qv/2 + (r&qv)&1
	}

	// Exact correction.
	for r > 0 && Mul64(r, r).Cmp(x) > 0 {
		r--
	}
	for r < math.MaxUint64 && Mul64(r+1, r+1).Cmp(x) <= 0 {
		r++
	}
	return r
}

// SqrtCeil returns ceil(sqrt(x)), saturating at 2^64-1. The saturation is
// unreachable for x formed as a product of two 64-bit values.
func SqrtCeil(x Uint128) uint64 {
	r := SqrtFloor(x)
	if r < math.MaxUint64 && Mul64(r, r).Cmp(x) != 0 {
		r++
	}
	return r
}

// SqrtProdFloor returns floor(sqrt(a*b)) with the product taken at full
// 128-bit width.
func SqrtProdFloor(a, b uint64) uint64 {
	return SqrtFloor(Mul64(a, b))
}

// SqrtProdCeil returns ceil(sqrt(a*b)).
func SqrtProdCeil(a, b uint64) uint64 {
	return SqrtCeil(Mul64(a, b))
}
