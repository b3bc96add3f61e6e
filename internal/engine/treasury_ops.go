package engine

import (
	"context"
	"time"

	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// ClaimTreasury implements spec.md §4.9: transfer each nonzero treasury
// balance to the configured DAO account, zeroing a balance only once
// its transfer is confirmed. A failed leg leaves that balance intact
// for retry on the next call — independent per-token failures,
// deliberately not rolled back together (spec.md §9).
func (e *Engine) ClaimTreasury(ctx context.Context) error {
	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return err
	}

	for tokenID, balance := range tr.Balances {
		if balance.IsZero() {
			continue
		}
		if err := e.tokens.Transfer(ctx, tokenID, e.cfg.TreasuryDAOAccountID, balance, "ClaimTreasury"); err != nil {
			e.log.Warnf("engine: treasury transfer of %s %s failed, balance retained for retry: %v", balance, tokenID, err)
			continue
		}
		tr.Balances[tokenID] = money.Zero()
	}

	return e.store.PutTreasury(ctx, tr)
}

// RedeemSkyward implements spec.md §4.10: burn amount of the protocol
// token from caller's internal balance, then pay out a pro-rata share
// of each requested treasury balance against circulating_supply().
func (e *Engine) RedeemSkyward(ctx context.Context, accountID string, amount money.Amount, tokenIDs []string, attached money.Amount, now time.Time) error {
	if amount.IsZero() {
		return model.ErrZeroSkyward
	}
	if err := requireOneYocto(attached); err != nil {
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

	if err := acc.Withdraw(e.protocolTokenID(), amount); err != nil {
		return err
	}

	supply, err := tr.CirculatingSupply(now)
	if err != nil {
		return err
	}
	if supply.IsZero() {
		return model.ErrZeroSkyward
	}

	for _, tokenID := range tokenIDs {
		balance, ok := tr.Balances[tokenID]
		if !ok {
			return model.ErrTokenNotRegistered
		}
		if balance.IsZero() {
			continue
		}
		share, err := money.MulDivFloor(balance, amount, supply)
		if err != nil {
			return err
		}
		if share.IsZero() {
			continue
		}
		if err := tr.Withdraw(tokenID, share); err != nil {
			return err
		}
		if err := acc.Deposit(tokenID, share); err != nil {
			return err
		}
	}

	tr.SkywardBurnedAmount = tr.SkywardBurnedAmount.MustAdd(amount)

	if err := e.store.PutAccount(ctx, acc); err != nil {
		return err
	}
	return e.store.PutTreasury(ctx, tr)
}
