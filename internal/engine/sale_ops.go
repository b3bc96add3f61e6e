package engine

import (
	"context"
	"time"

	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// SaleCreateResult is sale_create's return value plus the refund the
// caller owes the owner (spec.md §4.7's "refund excess attached
// deposit after storage cost + listing fee").
type SaleCreateResult struct {
	SaleID uint64
	Refund money.Amount
}

// SaleCreate implements spec.md §4.7. ownerID == e.EngineAccountID()
// bypasses the minimum lead-time check, matching ValidateForCreate's
// first assertion.
func (e *Engine) SaleCreate(ctx context.Context, ownerID string, in model.SaleInput, attached money.Amount, now time.Time, blockHeight uint64) (SaleCreateResult, error) {
	if err := in.ValidateForCreate(ownerID, e.EngineAccountID(), now); err != nil {
		return SaleCreateResult{}, err
	}

	owner, err := e.loadAccount(ctx, ownerID)
	if err != nil {
		return SaleCreateResult{}, err
	}

	// Withdraw each out-token balance from the owner up front (spec.md
	// §4.7 side effects); if the owner can't afford it, nothing below
	// ever runs.
	for _, o := range in.OutTokens {
		if err := owner.Withdraw(o.TokenID, o.Balance); err != nil {
			return SaleCreateResult{}, err
		}
	}
	owner.RegisterToken(in.InTokenID)

	saleID, err := e.store.NextSaleID(ctx)
	if err != nil {
		return SaleCreateResult{}, err
	}

	sale := model.NewSaleFromInput(in, ownerID, e.protocolTokenID(), now, blockHeight)
	sale.SaleID = saleID

	result, err := e.chargeStorageForSaleCreate(sale, owner, attached, func() error {
		owner.Sales[saleID] = struct{}{}
		return nil
	})
	if err != nil {
		return SaleCreateResult{}, err
	}

	if err := e.store.PutSale(ctx, sale); err != nil {
		return SaleCreateResult{}, err
	}
	if err := e.store.PutAccount(ctx, owner); err != nil {
		return SaleCreateResult{}, err
	}

	return SaleCreateResult{SaleID: saleID, Refund: result.Refund}, nil
}

// SaleDepositInToken implements the unconditional (no-permission-gate)
// path of spec.md §4.4 steps 4–7. Permissioned first-time admission
// goes through BeginAdmission/ResolveAdmission in permissions.go
// instead; callers are expected to have already checked
// RequiresAdmission before calling this directly.
func (e *Engine) SaleDepositInToken(ctx context.Context, accountID string, saleID uint64, inAmount money.Amount, referralID *string, now time.Time, blockHeight uint64) (money.Amount, error) {
	sale, err := e.loadSale(ctx, saleID, now, blockHeight)
	if err != nil {
		return money.Zero(), err
	}
	acc, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return money.Zero(), err
	}
	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return money.Zero(), err
	}

	refund, err := e.depositInToken(ctx, sale, acc, tr, inAmount, referralID, now, blockHeight)
	if err != nil {
		return money.Zero(), err
	}

	if err := e.store.PutSale(ctx, sale); err != nil {
		return money.Zero(), err
	}
	if err := e.store.PutAccount(ctx, acc); err != nil {
		return money.Zero(), err
	}
	if err := e.store.PutTreasury(ctx, tr); err != nil {
		return money.Zero(), err
	}
	return refund, nil
}

// depositInToken is the shared core of the unconditional deposit path
// and ResolveAdmission's post-approval continuation (spec.md §4.4).
func (e *Engine) depositInToken(ctx context.Context, sale *model.Sale, acc *model.Account, tr *model.Treasury, inAmount money.Amount, referralID *string, now time.Time, blockHeight uint64) (money.Amount, error) {
	if err := sale.Touch(now, blockHeight); err != nil {
		return money.Zero(), err
	}
	if sale.HasEnded() {
		return money.Zero(), model.ErrSaleEnded
	}

	if err := acc.Withdraw(sale.InTokenID, inAmount); err != nil {
		return money.Zero(), err
	}

	newShares, err := sale.InAmountToShares(inAmount, false)
	if err != nil {
		return money.Zero(), err
	}

	sub, found := acc.Subs[sale.SaleID]
	if !found {
		sub = model.NewSubscription(sale, referralID)
	}

	if err := e.touchAndClaim(ctx, sale, sub, acc, tr, now, blockHeight); err != nil {
		return money.Zero(), err
	}

	sub.Shares = sub.Shares.MustAdd(newShares)
	sub.LastInBalance = sub.LastInBalance.MustAdd(inAmount)

	sale.TotalShares = sale.TotalShares.MustAdd(newShares)
	sale.InTokenRemaining = sale.InTokenRemaining.MustAdd(inAmount)

	acc.SaveSubscription(sale, sub)
	return money.Zero(), nil
}

// WithdrawShares implements spec.md §4.6's withdraw_shares variant.
// shares == nil withdraws everything currently held.
func (e *Engine) WithdrawShares(ctx context.Context, accountID string, saleID uint64, shares *money.Amount, attached money.Amount, now time.Time, blockHeight uint64) error {
	if err := requireOneYocto(attached); err != nil {
		return err
	}
	sale, err := e.loadSale(ctx, saleID, now, blockHeight)
	if err != nil {
		return err
	}
	acc, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return err
	}
	sub, ok := acc.Subs[saleID]
	if !ok {
		return model.ErrAccountNotFound
	}

	if err := e.touchAndClaim(ctx, sale, sub, acc, tr, now, blockHeight); err != nil {
		return err
	}

	amount := sub.Shares
	if shares != nil {
		if shares.Gt(sub.Shares) {
			return model.ErrNotEnoughBalance
		}
		amount = *shares
	}

	if err := e.settleWithdrawShares(sale, sub, acc, amount); err != nil {
		return err
	}

	acc.SaveSubscription(sale, sub)
	if err := e.store.PutSale(ctx, sale); err != nil {
		return err
	}
	if err := e.store.PutAccount(ctx, acc); err != nil {
		return err
	}
	return e.store.PutTreasury(ctx, tr)
}

// WithdrawInExact implements spec.md §4.6's withdraw_in_exact variant:
// the desired in-amount is converted back to shares (rounding up, so
// the shares given up are never worth less than the requested amount;
// the in-balance credited for them can exceed it by rounding) before
// the same settlement as WithdrawShares.
func (e *Engine) WithdrawInExact(ctx context.Context, accountID string, saleID uint64, inAmount money.Amount, attached money.Amount, now time.Time, blockHeight uint64) error {
	if err := requireOneYocto(attached); err != nil {
		return err
	}
	sale, err := e.loadSale(ctx, saleID, now, blockHeight)
	if err != nil {
		return err
	}
	acc, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return err
	}
	sub, ok := acc.Subs[saleID]
	if !ok {
		return model.ErrAccountNotFound
	}

	if err := e.touchAndClaim(ctx, sale, sub, acc, tr, now, blockHeight); err != nil {
		return err
	}

	shares, err := sale.InAmountToShares(inAmount, true)
	if err != nil {
		return err
	}
	if shares.Gt(sub.Shares) {
		return model.ErrNotEnoughBalance
	}

	if err := e.settleWithdrawShares(sale, sub, acc, shares); err != nil {
		return err
	}

	acc.SaveSubscription(sale, sub)
	if err := e.store.PutSale(ctx, sale); err != nil {
		return err
	}
	if err := e.store.PutAccount(ctx, acc); err != nil {
		return err
	}
	return e.store.PutTreasury(ctx, tr)
}

// settleWithdrawShares decrements total_shares/subscription shares by
// amount and credits the proportional in-balance, computed *before* the
// decrement (spec.md §4.6).
func (e *Engine) settleWithdrawShares(sale *model.Sale, sub *model.Subscription, acc *model.Account, amount money.Amount) error {
	inBalance, err := sale.SharesToInBalance(amount)
	if err != nil {
		return err
	}

	sub.Shares, err = sub.Shares.Sub(amount)
	if err != nil {
		return err
	}
	sale.TotalShares, err = sale.TotalShares.Sub(amount)
	if err != nil {
		return err
	}
	sale.InTokenRemaining, err = sale.InTokenRemaining.Sub(inBalance)
	if err != nil {
		return err
	}

	if !inBalance.IsZero() {
		if err := acc.Deposit(sale.InTokenID, inBalance); err != nil {
			return err
		}
	}
	return nil
}

// SaleClaimOutTokens implements sale_claim_out_tokens (spec.md §6):
// touch + §4.5 claim + save, with no balance movement of its own beyond
// what claiming produces.
func (e *Engine) SaleClaimOutTokens(ctx context.Context, accountID string, saleID uint64, now time.Time, blockHeight uint64) error {
	sale, err := e.loadSale(ctx, saleID, now, blockHeight)
	if err != nil {
		return err
	}
	acc, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return err
	}
	sub, ok := acc.Subs[saleID]
	if !ok {
		return model.ErrAccountNotFound
	}

	if err := e.touchAndClaim(ctx, sale, sub, acc, tr, now, blockHeight); err != nil {
		return err
	}

	acc.SaveSubscription(sale, sub)
	if err := e.store.PutSale(ctx, sale); err != nil {
		return err
	}
	if err := e.store.PutAccount(ctx, acc); err != nil {
		return err
	}
	return e.store.PutTreasury(ctx, tr)
}

// SaleDistributeUnclaimedTokens implements spec.md §4.8. Anyone may
// call it; it touches no caller-specific subscription.
func (e *Engine) SaleDistributeUnclaimedTokens(ctx context.Context, saleID uint64, now time.Time, blockHeight uint64) error {
	sale, err := e.loadSale(ctx, saleID, now, blockHeight)
	if err != nil {
		return err
	}
	if err := sale.Touch(now, blockHeight); err != nil {
		return err
	}

	owner, err := e.loadOrCreateAccount(ctx, sale.OwnerID)
	if err != nil {
		return err
	}
	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return err
	}

	isEngineOwned := sale.OwnerID == e.EngineAccountID()
	protocolTokenID := e.protocolTokenID()

	if !sale.InTokenPaidUnclaimed.IsZero() {
		amount := sale.InTokenPaidUnclaimed
		if isEngineOwned {
			if err := tr.Donate(sale.InTokenID, amount); err != nil {
				return err
			}
		} else if sale.InTokenID != protocolTokenID {
			fee, err := money.MulDivFloor(amount, money.NewFromUint64(1), money.NewFromUint64(model.TreasuryFeeDenominator))
			if err != nil {
				return err
			}
			if err := tr.Deposit(sale.InTokenID, fee); err != nil {
				return err
			}
			net, err := amount.Sub(fee)
			if err != nil {
				return err
			}
			if err := owner.Deposit(sale.InTokenID, net); err != nil {
				return err
			}
		} else {
			if err := owner.Deposit(sale.InTokenID, amount); err != nil {
				return err
			}
		}
		sale.InTokenPaidUnclaimed = money.Zero()
	}

	for i := range sale.OutTokens {
		out := &sale.OutTokens[i]
		if out.TreasuryUnclaimed != nil && !out.TreasuryUnclaimed.IsZero() {
			if err := tr.Deposit(out.TokenID, *out.TreasuryUnclaimed); err != nil {
				return err
			}
			zero := money.Zero()
			out.TreasuryUnclaimed = &zero
		}
		if sale.HasEnded() && !out.Remaining.IsZero() {
			amount := out.Remaining
			if isEngineOwned {
				if err := tr.Donate(out.TokenID, amount); err != nil {
					return err
				}
			} else if err := owner.Deposit(out.TokenID, amount); err != nil {
				return err
			}
			out.Distributed = out.Distributed.MustAdd(amount)
			out.Remaining = money.Zero()
		}
	}

	if err := e.store.PutSale(ctx, sale); err != nil {
		return err
	}
	if err := e.store.PutAccount(ctx, owner); err != nil {
		return err
	}
	return e.store.PutTreasury(ctx, tr)
}
