// Package money implements the fixed-point arithmetic kernel the sale
// engine depends on: every distribution computation multiplies two
// 128-bit quantities and divides by a third, which requires carrying a
// wider intermediate than a machine word. We lean on uint256.Int for
// that intermediate rather than pulling in a general big-int dependency.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// ErrOverflow is returned whenever an operation would produce a value
// that no longer fits in 128 bits. Every domain quantity in the sale
// engine (balances, shares, remaining pools) is a u128 by contract;
// only the per_share Accumulator is allowed to use the full 256 bits.
var ErrOverflow = errors.New("BALANCE_OVERFLOW")

// maxU128 is 2^128 - 1, used to bound every Amount produced by this
// package.
var maxU128 = func() *uint256.Int {
	one := uint256.NewInt(1)
	shifted := new(uint256.Int).Lsh(one, 128)
	return new(uint256.Int).Sub(shifted, one)
}()

// Amount is a u128 value. The zero Amount is a valid representation of 0.
type Amount struct {
	v uint256.Int
}

// Zero returns the zero Amount.
func Zero() Amount { return Amount{} }

// NewFromUint64 builds an Amount from a machine-word value.
func NewFromUint64(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// NewFromString parses a base-10 string into an Amount, the same wire
// convention NEAR's U128 JSON type uses (and the one the original
// account-deposit contract speaks over ft_on_transfer messages).
func NewFromString(s string) (Amount, error) {
	v, ok := new(uint256.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("money: invalid amount %q", s)
	}
	if v.Gt(maxU128) {
		return Amount{}, ErrOverflow
	}
	return Amount{v: *v}, nil
}

// MustFromUint64 is a helper for tests and constant tables.
func MustFromUint64(v uint64) Amount { return NewFromUint64(v) }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Cmp compares two amounts the way bytes.Compare does: -1, 0, 1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// Gt, Lt, Gte, Lte are readability wrappers over Cmp.
func (a Amount) Gt(b Amount) bool  { return a.Cmp(b) > 0 }
func (a Amount) Lt(b Amount) bool  { return a.Cmp(b) < 0 }
func (a Amount) Gte(b Amount) bool { return a.Cmp(b) >= 0 }
func (a Amount) Lte(b Amount) bool { return a.Cmp(b) <= 0 }

// Add returns a+b, failing with ErrOverflow if the u128 bound is exceeded.
func (a Amount) Add(b Amount) (Amount, error) {
	var out uint256.Int
	out.Add(&a.v, &b.v)
	if out.Gt(maxU128) {
		return Amount{}, ErrOverflow
	}
	return Amount{v: out}, nil
}

// MustAdd panics on overflow; used only where the caller has already
// proven the addends fit (e.g. conservation-invariant bookkeeping in
// tests).
func (a Amount) MustAdd(b Amount) Amount {
	out, err := a.Add(b)
	if err != nil {
		panic(err)
	}
	return out
}

// Sub returns a-b. The caller is expected to have checked a >= b; a
// negative result is a programmer error (the Rust source's
// checked_sub().expect(NOT_ENOUGH_BALANCE) pattern), surfaced the same
// way here.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Lt(b) {
		return Amount{}, ErrInsufficientBalance
	}
	var out uint256.Int
	out.Sub(&a.v, &b.v)
	return Amount{v: out}, nil
}

// ErrInsufficientBalance mirrors errors::NOT_ENOUGH_BALANCE.
var ErrInsufficientBalance = errors.New("NOT_ENOUGH_BALANCE")

// String renders the amount in base 10.
func (a Amount) String() string { return a.v.String() }

// Uint64 returns the low 64 bits; callers must only use it where the
// value is known to be small (block heights, nanosecond durations),
// never for balances.
func (a Amount) Uint64() uint64 { return a.v.Uint64() }

// Big converts to *big.Int for interop with time/duration arithmetic
// elsewhere in the engine.
func (a Amount) Big() *big.Int { return a.v.ToBig() }

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.v.Dec())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// also accept bare JSON numbers for leniency with hand-written
		// request bodies
		var n uint64
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return err
		}
		a.v.SetUint64(n)
		return nil
	}
	v, ok := new(uint256.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("money: invalid amount %q", s)
	}
	if v.Gt(maxU128) {
		return ErrOverflow
	}
	a.v = *v
	return nil
}

// MarshalBinary encodes the amount as a fixed 32-byte big-endian word,
// the representation packdb stores in a snappy-compressed column.
func (a Amount) MarshalBinary() ([]byte, error) {
	b := a.v.Bytes32()
	return b[:], nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (a *Amount) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("money: invalid amount encoding length %d", len(data))
	}
	a.v.SetBytes(data)
	return nil
}

// GobEncode/GobDecode let Amount (whose only field is unexported) be
// embedded in gob-encoded storage envelopes (internal/store blobs).
func (a Amount) GobEncode() ([]byte, error) { return a.MarshalBinary() }

func (a *Amount) GobDecode(data []byte) error { return a.UnmarshalBinary(data) }
