package num

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMul64(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
	}{
		{"zero", 0, math.MaxUint64},
		{"one", 1, math.MaxUint64},
		{"small", 12345, 67890},
		{"max times max", math.MaxUint64, math.MaxUint64},
		{"mid", 1 << 40, 1 << 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			want := new(big.Int).Mul(
				new(big.Int).SetUint64(tc.a),
				new(big.Int).SetUint64(tc.b),
			)
			assert.Equal(t, want.String(), Mul64(tc.a, tc.b).String())
		})
	}
}

func TestAddSat(t *testing.T) {
	sum, sat := Mul64(math.MaxUint64, math.MaxUint64).AddSat(U128(1))
	assert.False(t, sat)
	assert.Equal(t, Uint128{Hi: ^uint64(0) - 1, Lo: 0}, sum)

	_, sat = MaxUint128.AddSat(U128(1))
	assert.True(t, sat)

	sum, sat = MaxUint128.AddSat(MaxUint128)
	assert.True(t, sat)
	assert.Equal(t, MaxUint128, sum)
}

func TestSub(t *testing.T) {
	x := Mul64(1<<40, 1<<40) // 2^80
	y := U128(1)
	diff := x.Sub(y)
	want := new(big.Int).Sub(x.Big(), big.NewInt(1))
	assert.Equal(t, want.String(), diff.String())
}

func TestLsh(t *testing.T) {
	x := U128(1)
	shifted, lost := x.Lsh(32)
	assert.False(t, lost)
	assert.Equal(t, U128(1<<32), shifted)

	shifted, lost = x.Lsh(96)
	assert.False(t, lost)
	assert.Equal(t, Uint128{Hi: 1 << 32}, shifted)

	_, lost = MaxUint128.Lsh(1)
	assert.True(t, lost)

	// amount * price.n at the documented extremes still shifts cleanly:
	// 2^63 * 2^31 = 2^94, and 2^94 << 32 = 2^126.
	prod := Mul64(1<<63, 1<<31)
	shifted, lost = prod.Lsh(32)
	assert.False(t, lost)
	assert.Equal(t, Uint128{Hi: 1 << 62}, shifted)
}

func TestDiv64(t *testing.T) {
	x := Mul64(math.MaxUint64, 1000)
	q, r := x.Div64(1000)
	assert.Equal(t, uint64(0), r)
	v, ok := q.Uint64()
	require.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), v)

	q, r = U128(7).Div64(3)
	assert.Equal(t, U128(2), q)
	assert.Equal(t, uint64(1), r)

	assert.Equal(t, uint64(1), U128(7).Mod64(3))
	assert.Panics(t, func() { U128(1).Div64(0) })
}

func TestMul64Sat(t *testing.T) {
	x, sat := U128(1 << 32).Mul64Sat(1 << 32)
	assert.False(t, sat)
	assert.Equal(t, Uint128{Hi: 1}, x)

	_, sat = Uint128{Hi: 1}.Mul64Sat(1 << 63)
	assert.True(t, sat)

	// i64max * u64max is the largest product settlement produces; it must
	// not saturate.
	x, sat = U128(math.MaxInt64).Mul64Sat(math.MaxUint64)
	assert.False(t, sat)
	want := new(big.Int).Mul(
		big.NewInt(math.MaxInt64),
		new(big.Int).SetUint64(math.MaxUint64),
	)
	assert.Equal(t, want.String(), x.String())
}

func TestCmp(t *testing.T) {
	assert.Equal(t, 0, U128(5).Cmp(U128(5)))
	assert.Equal(t, -1, U128(5).Cmp(U128(6)))
	assert.Equal(t, 1, Uint128{Hi: 1}.Cmp(U128(math.MaxUint64)))
	assert.Equal(t, -1, U128(math.MaxUint64).Cmp(Uint128{Hi: 1}))
}
