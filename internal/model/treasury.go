package model

import (
	"time"

	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// VestingInterval is one linear-unlock window of the protocol token
// (spec.md §3 Treasury, original_source/treasury.rs VestingInterval).
type VestingInterval struct {
	StartTimestamp time.Time    `pack:"s,snappy" json:"start_timestamp"`
	EndTimestamp   time.Time    `pack:"e,snappy" json:"end_timestamp"`
	Amount         money.Amount `pack:"a,snappy" json:"amount"`
}

// Unlocked returns how much of this interval has linearly vested as of now.
func (v VestingInterval) Unlocked(now time.Time) (money.Amount, error) {
	switch {
	case !now.After(v.StartTimestamp):
		return money.Zero(), nil
	case !now.Before(v.EndTimestamp):
		return v.Amount, nil
	default:
		total := money.NewFromUint64(uint64(v.EndTimestamp.Sub(v.StartTimestamp).Nanoseconds()))
		passed := money.NewFromUint64(uint64(now.Sub(v.StartTimestamp).Nanoseconds()))
		return money.MulDivFloor(passed, v.Amount, total)
	}
}

// Treasury is the protocol-wide fee ledger from spec.md §3.
type Treasury struct {
	Balances map[string]money.Amount `pack:"b,snappy" json:"-"`

	SkywardTokenID string `pack:"k,snappy" json:"skyward_token_id"`
	WNearTokenID   string `pack:"w,snappy" json:"w_near_token_id"`

	SkywardBurnedAmount   money.Amount      `pack:"B,snappy" json:"skyward_burned_amount"`
	SkywardVestingSchedule []VestingInterval `pack:"v,snappy" json:"skyward_vesting_schedule"`

	ListingFee money.Amount `pack:"l,snappy" json:"listing_fee"`

	// LockedAttachedDeposits is the native-token amount reserved while
	// permission checks are in flight (spec.md §5).
	LockedAttachedDeposits money.Amount `pack:"L,snappy" json:"locked_attached_deposits"`
}

func NewTreasury(skywardTokenID, wNearTokenID string, vesting []VestingInterval, listingFee money.Amount) (*Treasury, error) {
	if skywardTokenID == wNearTokenID {
		return nil, ErrSameTokens
	}
	return &Treasury{
		Balances:               make(map[string]money.Amount),
		SkywardTokenID:         skywardTokenID,
		WNearTokenID:           wNearTokenID,
		SkywardBurnedAmount:    money.Zero(),
		SkywardVestingSchedule: vesting,
		ListingFee:             listingFee,
		LockedAttachedDeposits: money.Zero(),
	}, nil
}

// Deposit credits amount to tokenID's treasury balance. The protocol
// token is never allowed to sit in treasury (invariant I6); any
// deposit attempt of it is a programmer error.
func (t *Treasury) Deposit(tokenID string, amount money.Amount) error {
	if tokenID == t.SkywardTokenID {
		return ErrTreasuryCannotHoldSky
	}
	if amount.IsZero() {
		if _, ok := t.Balances[tokenID]; !ok {
			t.Balances[tokenID] = money.Zero()
		}
		return nil
	}
	bal := t.Balances[tokenID]
	newBal, err := bal.Add(amount)
	if err != nil {
		return ErrBalanceOverflow
	}
	t.Balances[tokenID] = newBal
	return nil
}

func (t *Treasury) Withdraw(tokenID string, amount money.Amount) error {
	bal, ok := t.Balances[tokenID]
	if !ok {
		bal = money.Zero()
	}
	newBal, err := bal.Sub(amount)
	if err != nil {
		return ErrNotEnoughBalance
	}
	t.Balances[tokenID] = newBal
	return nil
}

// Donate routes a settlement amount per invariant I6/I7: the protocol
// token burns, everything else banks into treasury.
func (t *Treasury) Donate(tokenID string, amount money.Amount) error {
	if tokenID == t.SkywardTokenID {
		t.SkywardBurnedAmount = t.SkywardBurnedAmount.MustAdd(amount)
		return nil
	}
	return t.Deposit(tokenID, amount)
}

// CirculatingSupply sums linearly-unlocked vesting amounts as of now,
// minus burned (spec.md §4.10).
func (t *Treasury) CirculatingSupply(now time.Time) (money.Amount, error) {
	total := money.Zero()
	for _, v := range t.SkywardVestingSchedule {
		u, err := v.Unlocked(now)
		if err != nil {
			return money.Zero(), err
		}
		total = total.MustAdd(u)
	}
	supply, err := total.Sub(t.SkywardBurnedAmount)
	if err != nil {
		return money.Zero(), err
	}
	return supply, nil
}
