package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMulDivFloor(t *testing.T) {
	a := NewFromUint64(10)
	b := NewFromUint64(3)
	d := NewFromUint64(4)
	got, err := MulDivFloor(a, b, d)
	require.NoError(t, err)
	require.Equal(t, "7", got.String()) // floor(30/4) = 7
}

func TestMulDivCeil(t *testing.T) {
	a := NewFromUint64(10)
	b := NewFromUint64(3)
	d := NewFromUint64(4)
	got, err := MulDivCeil(a, b, d)
	require.NoError(t, err)
	require.Equal(t, "8", got.String()) // ceil(30/4) = 8

	exact, err := MulDivCeil(NewFromUint64(8), NewFromUint64(1), NewFromUint64(4))
	require.NoError(t, err)
	require.Equal(t, "2", exact.String())
}

func TestMulDivDivByZero(t *testing.T) {
	_, err := MulDivFloor(NewFromUint64(1), NewFromUint64(1), Zero())
	require.ErrorIs(t, err, ErrDivByZero)
}

func TestAmountAddOverflow(t *testing.T) {
	max, err := NewFromString("340282366920938463463374607431768211455") // 2^128-1
	require.NoError(t, err)
	_, err = max.Add(NewFromUint64(1))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestAmountSubInsufficient(t *testing.T) {
	_, err := NewFromUint64(1).Sub(NewFromUint64(2))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestAmountJSONRoundTrip(t *testing.T) {
	a, err := NewFromString("123456789012345678901234567890")
	require.NoError(t, err)
	data, err := a.MarshalJSON()
	require.NoError(t, err)
	var b Amount
	require.NoError(t, b.UnmarshalJSON(data))
	require.Equal(t, 0, a.Cmp(b))
}

func TestAmountBinaryRoundTrip(t *testing.T) {
	a := NewFromUint64(42)
	data, err := a.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, 32)
	var b Amount
	require.NoError(t, b.UnmarshalBinary(data))
	require.Equal(t, 0, a.Cmp(b))
}

func TestEarnedFromShares(t *testing.T) {
	// shares=4, delta per_share = MULTIPLIER*9/10 (simulate a 90% payout
	// per share), so earned should be floor(4 * 0.9) = 3.
	delta, err := MulDivFloorWide(NewFromUint64(9), Multiplier, NewFromUint64(10))
	require.NoError(t, err)
	earned, err := EarnedFromShares(NewFromUint64(4), delta, Multiplier)
	require.NoError(t, err)
	require.Equal(t, "3", earned.String())
}

func TestAccumulatorDeltaGoesBackwards(t *testing.T) {
	lo := ZeroAccumulator()
	hi, err := MulDivFloorWide(NewFromUint64(1), Multiplier, NewFromUint64(1))
	require.NoError(t, err)
	_, err = lo.Delta(hi)
	require.Error(t, err)
	_, err = hi.Delta(lo)
	require.NoError(t, err)
}
