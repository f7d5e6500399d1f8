package num

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSqrtFloorSmall(t *testing.T) {
	tests := []struct {
		x    uint64
		want uint64
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 1},
		{4, 2},
		{8, 2},
		{9, 3},
		{1000000, 1000},
		{999999, 999},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SqrtFloor(U128(tc.x)), "sqrt(%d)", tc.x)
	}
}

// Exactness beyond 2^53, where a float-only square root goes wrong.
func TestSqrtFloorLarge(t *testing.T) {
	roots := []uint64{
		1 << 32,
		(1 << 53) + 1,
		(1 << 63) + 12345,
		math.MaxUint64 - 1,
		math.MaxUint64,
	}
	for _, r := range roots {
		sq := Mul64(r, r)
		assert.Equal(t, r, SqrtFloor(sq), "floor at square of %d", r)
		assert.Equal(t, r, SqrtCeil(sq), "ceil at square of %d", r)

		below := sq.Sub(U128(1))
		assert.Equal(t, r-1, SqrtFloor(below), "floor just below square of %d", r)
		assert.Equal(t, r, SqrtCeil(below), "ceil just below square of %d", r)

		if r < math.MaxUint64 {
			above, carry := sq.Add(U128(1))
			assert.False(t, carry)
			assert.Equal(t, r, SqrtFloor(above), "floor just above square of %d", r)
			assert.Equal(t, r+1, SqrtCeil(above), "ceil just above square of %d", r)
		}
	}
}

func TestSqrtMaxUint128(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), SqrtFloor(MaxUint128))
	assert.Equal(t, uint64(math.MaxUint64), SqrtCeil(MaxUint128))
}

func TestSqrtProd(t *testing.T) {
	// sqrt(10^6 * 997000) straddles integers: 998498.87...
	assert.Equal(t, uint64(998498), SqrtProdFloor(1000000, 997000))
	assert.Equal(t, uint64(998499), SqrtProdCeil(1000000, 997000))

	// Exact product: sqrt(10^6 * 10^6) = 10^6.
	assert.Equal(t, uint64(1000000), SqrtProdFloor(1000000, 1000000))
	assert.Equal(t, uint64(1000000), SqrtProdCeil(1000000, 1000000))
}
