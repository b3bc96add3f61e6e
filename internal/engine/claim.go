package engine

import (
	"context"
	"time"

	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// touchAndClaim is the control-flow backbone spec.md §2 describes:
// touch(sale), then touch the subscription (materialising earned
// out-tokens), then run the §4.5 referral/claim payout against acc.
// tr is always loaded by the caller: most operations don't end up
// mutating it (no referral fallback, no dust reclaim touches treasury),
// but the one that does needs it on hand, so every caller of this
// function passes it through and persists it afterwards.
func (e *Engine) touchAndClaim(ctx context.Context, sale *model.Sale, sub *model.Subscription, acc *model.Account, tr *model.Treasury, now time.Time, blockHeight uint64) error {
	if err := sale.Touch(now, blockHeight); err != nil {
		return err
	}
	earned, err := sub.Touch(sale)
	if err != nil {
		return err
	}
	return e.claimOutTokens(ctx, sale, sub, acc, tr, earned)
}

// claimOutTokens implements spec.md §4.5: referral fee splitting,
// crediting the subscriber (registering the out-token on its account
// if needed), and reclaiming dust shares.
func (e *Engine) claimOutTokens(ctx context.Context, sale *model.Sale, sub *model.Subscription, acc *model.Account, tr *model.Treasury, earned []money.Amount) error {
	for i := range sale.OutTokens {
		out := &sale.OutTokens[i]
		amt := earned[i]
		if amt.IsZero() {
			continue
		}

		if out.ReferralBpt != nil {
			refAmt, err := money.MulDivFloor(amt, money.NewFromUint64(uint64(*out.ReferralBpt)), money.NewFromUint64(model.ReferralBptDenom))
			if err != nil {
				return err
			}
			if !refAmt.IsZero() {
				targetID := sale.OwnerID
				halved := sub.ReferralID != nil
				if halved {
					targetID = *sub.ReferralID
					refAmt, err = money.MulDivFloor(refAmt, money.NewFromUint64(1), money.NewFromUint64(2))
					if err != nil {
						return err
					}
				}
				if !refAmt.IsZero() {
					if _, err := e.creditRegisteredOrTreasury(ctx, out.TokenID, targetID, refAmt, tr); err != nil {
						return err
					}
					amt, err = amt.Sub(refAmt)
					if err != nil {
						return err
					}
				}
			}
		}

		if !amt.IsZero() {
			acc.RegisterToken(out.TokenID)
			if err := acc.Deposit(out.TokenID, amt); err != nil {
				return err
			}
			claimed, err := sub.ClaimedOutBalance[i].Add(amt)
			if err != nil {
				return err
			}
			sub.ClaimedOutBalance[i] = claimed
		}
	}

	if sub.Shares.IsZero() {
		return nil
	}
	remaining, err := sale.SharesToInBalance(sub.Shares)
	if err != nil {
		return err
	}
	if remaining.IsZero() {
		sale.TotalShares, err = sale.TotalShares.Sub(sub.Shares)
		if err != nil {
			return err
		}
		sub.Shares = money.Zero()
	}
	return nil
}

// creditRegisteredOrTreasury implements the referral-fallback rule in
// spec.md §4.5 step 1: credit amount of tokenID to targetID's internal
// balance if it is already registered there; otherwise route it to the
// treasury (or the burn counter, if tokenID is the protocol token),
// applying invariant I6/I7's donate policy. Returns whether the target
// account received the credit.
func (e *Engine) creditRegisteredOrTreasury(ctx context.Context, tokenID, targetID string, amount money.Amount, tr *model.Treasury) (bool, error) {
	target, ok, err := e.store.GetAccount(ctx, targetID)
	if err != nil {
		return false, err
	}
	if ok && target.IsRegistered(tokenID) {
		if err := target.Deposit(tokenID, amount); err != nil {
			return false, err
		}
		if err := e.store.PutAccount(ctx, target); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := tr.Donate(tokenID, amount); err != nil {
		return false, err
	}
	return false, nil
}
