package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Multiplier is 10^38, chosen so the per_share accumulator loses at most
// one least-significant out-unit per touch even when total_shares
// approaches 2^128 (spec.md §4.1).
var Multiplier = NewMultiplier()

func NewMultiplier() Amount {
	v, ok := new(uint256.Int).SetString("100000000000000000000000000000000000000", 10)
	if !ok {
		panic("money: bad multiplier literal")
	}
	return Amount{v: *v}
}

// ErrDivByZero guards the mul_div primitives against a zero divisor;
// callers are expected to have already asserted total_shares > 0 /
// remaining_duration > 0 per the touch algorithm's preconditions, so
// this only fires on a caller bug.
var ErrDivByZero = errors.New("money: division by zero")

// MulDivFloor computes floor(a*b/d) using a 512-bit intermediate
// product, the "256-bit multiply-then-divide primitive" spec.md §4.1
// asks for. Errors if the result no longer fits in 128 bits.
func MulDivFloor(a, b, d Amount) (Amount, error) {
	if d.IsZero() {
		return Amount{}, ErrDivByZero
	}
	q, overflow := new(uint256.Int).MulDivOverflow(&a.v, &b.v, &d.v)
	if overflow {
		return Amount{}, ErrOverflow
	}
	if q.Gt(maxU128) {
		return Amount{}, ErrOverflow
	}
	return Amount{v: *q}, nil
}

// MulDivCeil is MulDivFloor rounded up on a nonzero remainder, used by
// in_amount_to_shares(round_up = true) (spec.md §4.6).
func MulDivCeil(a, b, d Amount) (Amount, error) {
	floor, err := MulDivFloor(a, b, d)
	if err != nil {
		return Amount{}, err
	}
	rem := new(uint256.Int).MulMod(&a.v, &b.v, &d.v)
	if rem.IsZero() {
		return floor, nil
	}
	one := NewFromUint64(1)
	return floor.Add(one)
}

// Accumulator is the 256-bit per_share register from spec.md §4.2 step
// 6e. Unlike every other domain quantity it is explicitly allowed to
// exceed 128 bits, so it does not reuse Amount's overflow-checked
// arithmetic.
type Accumulator struct {
	v uint256.Int
}

func ZeroAccumulator() Accumulator { return Accumulator{} }

// Add accumulates a wide increment (produced by MulDivFloorWide) into
// the running per_share total.
func (a Accumulator) Add(inc Accumulator) Accumulator {
	var out uint256.Int
	out.Add(&a.v, &inc.v)
	return Accumulator{v: out}
}

// Delta returns a-b, the per-subscription "how much has per_share moved
// since I last touched" value. per_share is monotonically
// non-decreasing (invariant I8's sibling for per_share), so b must be
// <= a; returns an error if that invariant is violated.
func (a Accumulator) Delta(b Accumulator) (Accumulator, error) {
	if a.v.Lt(&b.v) {
		return Accumulator{}, fmt.Errorf("money: per_share went backwards")
	}
	var out uint256.Int
	out.Sub(&a.v, &b.v)
	return Accumulator{v: out}, nil
}

func (a Accumulator) IsZero() bool   { return a.v.IsZero() }
func (a Accumulator) Cmp(b Accumulator) int { return a.v.Cmp(&b.v) }
func (a Accumulator) String() string { return a.v.String() }

func (a Accumulator) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.v.Dec())
}

func (a *Accumulator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := new(uint256.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("money: invalid accumulator %q", s)
	}
	a.v = *v
	return nil
}

// MarshalBinary stores the full 256-bit register as 32 raw bytes.
func (a Accumulator) MarshalBinary() ([]byte, error) {
	b := a.v.Bytes32()
	return b[:], nil
}

func (a *Accumulator) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("money: invalid accumulator encoding length %d", len(data))
	}
	a.v.SetBytes(data)
	return nil
}

// GobEncode/GobDecode let Accumulator be embedded in gob-encoded
// storage envelopes (internal/store blobs).
func (a Accumulator) GobEncode() ([]byte, error) { return a.MarshalBinary() }

func (a *Accumulator) GobDecode(data []byte) error { return a.UnmarshalBinary(data) }

// MulDivFloorWide computes floor(a*b/d) without clamping to 128 bits,
// returning an Accumulator. Used for the per_share increment
// (spec.md §4.2 step 6e), which routinely exceeds u128 once amount is
// scaled by Multiplier.
func MulDivFloorWide(a, b, d Amount) (Accumulator, error) {
	if d.IsZero() {
		return Accumulator{}, ErrDivByZero
	}
	q, overflow := new(uint256.Int).MulDivOverflow(&a.v, &b.v, &d.v)
	if overflow {
		return Accumulator{}, ErrOverflow
	}
	return Accumulator{v: *q}, nil
}

// EarnedFromShares computes floor(shares*delta/multiplier), the
// subscription-touch earning formula from spec.md §4.3 step 2. The
// result is asserted to fit back into a u128 Amount: a real token
// balance can never legitimately need more than 128 bits.
func EarnedFromShares(shares Amount, delta Accumulator, multiplier Amount) (Amount, error) {
	q, overflow := new(uint256.Int).MulDivOverflow(&shares.v, &delta.v, &multiplier.v)
	if overflow {
		return Amount{}, ErrOverflow
	}
	if q.Gt(maxU128) {
		return Amount{}, ErrOverflow
	}
	return Amount{v: *q}, nil
}
