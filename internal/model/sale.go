package model

import (
	"time"

	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// Tuning constants from spec.md §4.7 / original_source/sale.rs.
const (
	MinDurationBeforeStart = 7 * 24 * time.Hour
	MaxDurationBeforeStart = 365 * 24 * time.Hour
	MaxDuration            = 4 * 366 * 24 * time.Hour
	MinDuration            = 1 * time.Nanosecond

	MaxNumOutTokens  = 4
	MaxTitleLength   = 250
	MaxURLLength     = 250
	MaxReferralBpt   = 500
	ReferralBptDenom = 10000

	TreasuryFeeDenominator = 100
)

// SchemaVersion discriminates the on-disk Sale layout, mirroring
// original_source's OldSale/Sale VSale union (spec.md §9 "Versioned
// stored schemas"). SchemaV1 lacked block-height tracking.
type SchemaVersion uint8

const (
	SchemaV1 SchemaVersion = iota // no start/end block height
	SchemaV2                     // current: adds start/end block height
)

// SaleOutToken is one distribution lane of a Sale (spec.md §3).
type SaleOutToken struct {
	TokenID  string `pack:"t,snappy" json:"token_account_id"`
	Remaining   money.Amount `pack:"r,snappy" json:"remaining"`
	Distributed money.Amount `pack:"d,snappy" json:"distributed"`

	// TreasuryUnclaimed is nil when this out-token is the protocol
	// token: donations of the protocol token burn instead of banking
	// (invariant I6), so no treasury-fee/claim bookkeeping applies.
	TreasuryUnclaimed *money.Amount `pack:"u,snappy" json:"treasury_unclaimed,omitempty"`

	PerShare money.Accumulator `pack:"p,snappy" json:"per_share"`

	ReferralBpt *uint16 `pack:"b,snappy" json:"referral_bpt,omitempty"`
}

// SaleOutTokenInput is the caller-supplied shape at sale_create time.
type SaleOutTokenInput struct {
	TokenID     string       `json:"token_account_id"`
	Balance     money.Amount `json:"balance"`
	ReferralBpt *uint16      `json:"referral_bpt,omitempty"`
}

func NewSaleOutToken(in SaleOutTokenInput, protocolTokenID string) SaleOutToken {
	out := SaleOutToken{
		TokenID:     in.TokenID,
		Remaining:   in.Balance,
		Distributed: money.Zero(),
		PerShare:    money.ZeroAccumulator(),
		ReferralBpt: in.ReferralBpt,
	}
	if in.TokenID != protocolTokenID {
		zero := money.Zero()
		out.TreasuryUnclaimed = &zero
	}
	return out
}

// Sale is the continuous-distribution aggregate from spec.md §3/§4.2.
type Sale struct {
	SaleID uint64 `pack:"I,pk" json:"sale_id"`

	SchemaVersion SchemaVersion `pack:"V,snappy" json:"-"`

	OwnerID               string  `pack:"o,snappy" json:"owner_id"`
	Title                 string  `pack:"T,snappy" json:"title"`
	URL                   *string `pack:"u,snappy" json:"url,omitempty"`
	PermissionsContractID *string `pack:"P,snappy" json:"permissions_contract_id,omitempty"`

	OutTokens []SaleOutToken `pack:"O,snappy" json:"out_tokens"`

	InTokenID           string       `pack:"i,snappy" json:"in_token_account_id"`
	InTokenRemaining    money.Amount `pack:"r,snappy" json:"in_token_remaining"`
	InTokenPaidUnclaimed money.Amount `pack:"c,snappy" json:"in_token_paid_unclaimed"`
	InTokenPaid         money.Amount `pack:"p,snappy" json:"in_token_paid"`

	StartTime time.Time     `pack:"s,snappy" json:"start_time"`
	Duration  time.Duration `pack:"d,snappy" json:"duration"`

	TotalShares   money.Amount `pack:"S,snappy" json:"total_shares"`
	LastTimestamp time.Time    `pack:"l,snappy" json:"last_timestamp"`

	StartBlockHeight uint64  `pack:"B,snappy" json:"start_block_height"`
	EndBlockHeight   *uint64 `pack:"E,snappy" json:"end_block_height,omitempty"`
}

// EndTime is start_time + duration (spec.md §4.2 step 1).
func (s *Sale) EndTime() time.Time { return s.StartTime.Add(s.Duration) }

// HasEnded reports whether the sale is terminal (spec.md §4.2 invariant
// I5: once last_timestamp >= end, touch is a no-op forever after).
func (s *Sale) HasEnded() bool {
	return !s.LastTimestamp.Before(s.EndTime())
}

// OutTokenIndex returns the position of tokenID in OutTokens, or -1.
func (s *Sale) OutTokenIndex(tokenID string) int {
	for i := range s.OutTokens {
		if s.OutTokens[i].TokenID == tokenID {
			return i
		}
	}
	return -1
}

// Migrate lifts an older on-disk schema to the current one, the lazy
// migration spec.md §9 describes. SchemaV1 sales lacked block-height
// tracking; we backfill zero/none and re-touch immediately the same
// way original_source's `From<VSale> for Sale` does.
func (s *Sale) Migrate(now time.Time, blockHeight uint64) error {
	if s.SchemaVersion == SchemaV2 {
		return nil
	}
	s.SchemaVersion = SchemaV2
	s.StartBlockHeight = 0
	s.EndBlockHeight = nil
	return s.Touch(now, blockHeight)
}

// Touch advances last_timestamp and rolls the per_share/in_token
// accumulators forward to min(now, end_time). This is the continuous
// distribution core of spec.md §4.2; it must be called under exclusive
// access to the sale (single-threaded transactional model, spec.md §5).
func (s *Sale) Touch(now time.Time, currentBlockHeight uint64) error {
	end := s.EndTime()
	t := now
	if t.After(end) {
		t = end
	}

	if !t.After(s.LastTimestamp) {
		// Sale hasn't started, or was already updated to this instant.
		return nil
	}
	if !s.LastTimestamp.Before(end) {
		// Sale closed.
		return nil
	}
	if !t.Before(end) {
		h := currentBlockHeight
		s.EndBlockHeight = &h
	}

	if s.TotalShares.IsZero() {
		// No subscribers: the remaining pool is not decayed during this
		// idle interval. This is a deliberate policy decision (spec.md
		// §9 "Idle-time policy"), not a bug: the sale's clock still
		// advances, but later subscribers inherit the idle interval's
		// undistributed quota instead of it leaking away.
		s.LastTimestamp = t
		return nil
	}

	delta := money.NewFromUint64(uint64(t.Sub(s.LastTimestamp).Nanoseconds()))
	remainingDuration := money.NewFromUint64(uint64(end.Sub(s.LastTimestamp).Nanoseconds()))

	for i := range s.OutTokens {
		out := &s.OutTokens[i]
		amount, err := money.MulDivFloor(out.Remaining, delta, remainingDuration)
		if err != nil {
			return err
		}
		if amount.IsZero() {
			continue
		}
		out.Distributed = out.Distributed.MustAdd(amount)
		newRemaining, err := out.Remaining.Sub(amount)
		if err != nil {
			return err
		}
		out.Remaining = newRemaining

		if out.TreasuryUnclaimed != nil {
			fee, err := money.MulDivFloor(amount, money.NewFromUint64(1), money.NewFromUint64(TreasuryFeeDenominator))
			if err != nil {
				return err
			}
			*out.TreasuryUnclaimed = out.TreasuryUnclaimed.MustAdd(fee)
			amount, err = amount.Sub(fee)
			if err != nil {
				return err
			}
		}

		inc, err := money.MulDivFloorWide(amount, money.Multiplier, s.TotalShares)
		if err != nil {
			return err
		}
		out.PerShare = out.PerShare.Add(inc)
	}

	inAmount, err := money.MulDivFloor(s.InTokenRemaining, delta, remainingDuration)
	if err != nil {
		return err
	}
	s.InTokenPaidUnclaimed = s.InTokenPaidUnclaimed.MustAdd(inAmount)
	s.InTokenPaid = s.InTokenPaid.MustAdd(inAmount)
	newInRemaining, err := s.InTokenRemaining.Sub(inAmount)
	if err != nil {
		return err
	}
	s.InTokenRemaining = newInRemaining

	s.LastTimestamp = t
	return nil
}

// SharesToInBalance returns the in-balance a given share count currently
// represents (spec.md §4.3 step 3 / §4.5's dust check).
func (s *Sale) SharesToInBalance(shares money.Amount) (money.Amount, error) {
	if shares.IsZero() {
		return money.Zero(), nil
	}
	return money.MulDivFloor(s.InTokenRemaining, shares, s.TotalShares)
}

// InAmountToShares converts a desired in-token deposit/withdrawal amount
// into shares (spec.md §4.4 step 5 / §4.6's withdraw_in_exact). roundUp
// selects ceiling division, used when converting a withdrawal target
// back to shares so the shares burned are never worth less than the
// requested amount.
func (s *Sale) InAmountToShares(inAmount money.Amount, roundUp bool) (money.Amount, error) {
	if s.TotalShares.IsZero() {
		return inAmount, nil
	}
	if s.InTokenRemaining.IsZero() || s.HasEnded() {
		return money.Zero(), ErrSaleEnded
	}
	var shares money.Amount
	var err error
	if roundUp {
		shares, err = money.MulDivCeil(inAmount, s.TotalShares, s.InTokenRemaining)
	} else {
		shares, err = money.MulDivFloor(inAmount, s.TotalShares, s.InTokenRemaining)
	}
	if err != nil {
		return money.Zero(), err
	}
	if !roundUp {
		if _, err := shares.Add(s.TotalShares); err != nil {
			return money.Zero(), ErrSharesOverflow
		}
	}
	return shares, nil
}
