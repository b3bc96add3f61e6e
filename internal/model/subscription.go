package model

import "github.com/Shitzu-Apes/launchpad/internal/money"

// Subscription is a per-(account, sale) position (spec.md §3).
type Subscription struct {
	SaleID uint64 `pack:"s,pk" json:"sale_id"`

	Shares                     money.Amount `pack:"S,snappy" json:"shares"`
	SpentInBalanceWithoutShares money.Amount `pack:"p,snappy" json:"spent_in_balance_without_shares"`
	LastInBalance              money.Amount `pack:"l,snappy" json:"last_in_balance"`

	LastOutPerShare   []money.Accumulator `pack:"o,snappy" json:"last_out_per_share"`
	ClaimedOutBalance []money.Amount      `pack:"c,snappy" json:"claimed_out_balance"`

	ReferralID *string `pack:"r,snappy" json:"referral_id,omitempty"`

	// isNew marks a Subscription materialised for the first time this
	// operation; Touch uses it to seed LastOutPerShare instead of
	// computing a spurious first-touch earning.
	isNew bool
}

// NewSubscription creates the zero-value subscription for a first-time
// deposit into sale, seeding per-out-token snapshots to the sale's
// current per_share (spec.md §4.3 step 1).
func NewSubscription(sale *Sale, referralID *string) *Subscription {
	snap := make([]money.Accumulator, len(sale.OutTokens))
	claimed := make([]money.Amount, len(sale.OutTokens))
	for i, o := range sale.OutTokens {
		snap[i] = o.PerShare
		claimed[i] = money.Zero()
	}
	return &Subscription{
		SaleID:            sale.SaleID,
		Shares:            money.Zero(),
		SpentInBalanceWithoutShares: money.Zero(),
		LastInBalance:     money.Zero(),
		LastOutPerShare:   snap,
		ClaimedOutBalance: claimed,
		ReferralID:        referralID,
		isNew:             true,
	}
}

// Touch materialises earned out-tokens since the last touch and rolls
// last_in_balance/spent_in_balance_without_shares forward (spec.md
// §4.3). Must be called after sale.Touch. Returns the earned amount per
// out-token, in sale.OutTokens order.
func (sub *Subscription) Touch(sale *Sale) ([]money.Amount, error) {
	if sub.isNew {
		sub.isNew = false
		return make([]money.Amount, len(sale.OutTokens)), nil
	}

	earned := make([]money.Amount, len(sale.OutTokens))
	for i, o := range sale.OutTokens {
		delta, err := o.PerShare.Delta(sub.LastOutPerShare[i])
		if err != nil {
			return nil, err
		}
		e, err := money.EarnedFromShares(sub.Shares, delta, money.Multiplier)
		if err != nil {
			return nil, err
		}
		earned[i] = e
		sub.LastOutPerShare[i] = o.PerShare
	}

	curIn, err := sale.SharesToInBalance(sub.Shares)
	if err != nil {
		return nil, err
	}
	if sub.LastInBalance.Gt(curIn) {
		spent, err := sub.LastInBalance.Sub(curIn)
		if err != nil {
			return nil, err
		}
		sub.SpentInBalanceWithoutShares = sub.SpentInBalanceWithoutShares.MustAdd(spent)
	}
	sub.LastInBalance = curIn

	return earned, nil
}

// ShouldGarbageCollect reports whether the subscription should be
// removed from an account's subscription set (spec.md §3 lifecycle
// rule): shares == 0 AND (sale has no permissions contract OR sale has
// ended).
func (sub *Subscription) ShouldGarbageCollect(sale *Sale) bool {
	return sub.Shares.IsZero() && (sale.PermissionsContractID == nil || sale.HasEnded())
}

// RemainingInBalance and SpentInBalance back the view-layer
// SubscriptionOutput (original_source/account.rs
// internal_subscription_output, restored in SPEC_FULL.md's [ACCOUNT]
// section).
func (sub *Subscription) RemainingInBalance(sale *Sale) (money.Amount, error) {
	return sale.SharesToInBalance(sub.Shares)
}

func (sub *Subscription) SpentInBalance(sale *Sale) (money.Amount, error) {
	remaining, err := sub.RemainingInBalance(sale)
	if err != nil {
		return money.Zero(), err
	}
	spent := sub.SpentInBalanceWithoutShares
	if sub.LastInBalance.Gt(remaining) {
		extra, err := sub.LastInBalance.Sub(remaining)
		if err != nil {
			return money.Zero(), err
		}
		spent = spent.MustAdd(extra)
	}
	return spent, nil
}
