package engine

import (
	"context"

	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// RegisterToken implements register_token (spec.md §6): idempotent
// insertion of a zero balance.
func (e *Engine) RegisterToken(ctx context.Context, accountID, tokenID string, attached money.Amount) (money.Amount, error) {
	acc, err := e.loadOrCreateAccount(ctx, accountID)
	if err != nil {
		return money.Zero(), err
	}
	result, err := e.chargeStorageForAccount(acc, attached, func() error {
		acc.RegisterToken(tokenID)
		return nil
	})
	if err != nil {
		return money.Zero(), err
	}
	if err := e.store.PutAccount(ctx, acc); err != nil {
		return money.Zero(), err
	}
	return result.Refund, nil
}

// RegisterTokens is the original_source/account.rs batch variant
// (dropped from the distilled operation table, restored per
// SPEC_FULL.md's [ACCOUNT] section).
func (e *Engine) RegisterTokens(ctx context.Context, accountID string, tokenIDs []string, attached money.Amount) (money.Amount, error) {
	acc, err := e.loadOrCreateAccount(ctx, accountID)
	if err != nil {
		return money.Zero(), err
	}
	result, err := e.chargeStorageForAccount(acc, attached, func() error {
		for _, tokenID := range tokenIDs {
			acc.RegisterToken(tokenID)
		}
		return nil
	})
	if err != nil {
		return money.Zero(), err
	}
	if err := e.store.PutAccount(ctx, acc); err != nil {
		return money.Zero(), err
	}
	return result.Refund, nil
}

// WithdrawToken implements withdraw_token (spec.md §6): debit the
// internal balance, then initiate an asynchronous transfer. If the
// transfer fails, the engine re-credits the internal balance (the
// compensating transaction from spec.md §5's suspension point (i));
// the failure is logged, never returned as an operation error, since
// the debiting transaction has already committed by the time the
// transfer settles.
func (e *Engine) WithdrawToken(ctx context.Context, accountID, tokenID string, amount *money.Amount, attached money.Amount) error {
	if err := requireOneYocto(attached); err != nil {
		return err
	}
	acc, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	withdrawAmount := money.Zero()
	if amount != nil {
		withdrawAmount = *amount
	} else if bal, ok := acc.Balances[tokenID]; ok {
		withdrawAmount = bal
	}
	if withdrawAmount.IsZero() {
		return nil
	}

	if err := acc.Withdraw(tokenID, withdrawAmount); err != nil {
		return err
	}
	if err := e.store.PutAccount(ctx, acc); err != nil {
		return err
	}

	e.settleWithdrawTransfer(ctx, accountID, tokenID, withdrawAmount)
	return nil
}

// settleWithdrawTransfer calls out to the token collaborator and
// applies the compensating re-credit on failure (spec.md §5 suspension
// point (i)). The collaborator interface is the asynchronous boundary
// here, not a goroutine: tokenclient.Client.Transfer is free to block
// on a real network round-trip or resolve instantly in tests.
func (e *Engine) settleWithdrawTransfer(ctx context.Context, accountID, tokenID string, amount money.Amount) {
	if err := e.tokens.Transfer(ctx, tokenID, accountID, amount, ""); err != nil {
		e.log.Warnf("engine: %v: withdraw transfer of %s %s to %s failed, re-crediting: %v", model.ErrTokenWithdrawFailed, amount, tokenID, accountID, err)
		acc, ok, gerr := e.store.GetAccount(ctx, accountID)
		if gerr != nil || !ok {
			e.log.Errorf("engine: compensating re-credit for %s failed to load account: %v", accountID, gerr)
			return
		}
		acc.RegisterToken(tokenID)
		if derr := acc.Deposit(tokenID, amount); derr != nil {
			e.log.Errorf("engine: compensating re-credit for %s overflowed: %v", accountID, derr)
			return
		}
		if perr := e.store.PutAccount(ctx, acc); perr != nil {
			e.log.Errorf("engine: compensating re-credit for %s failed to save: %v", accountID, perr)
		}
	}
}

// BalanceOf / BalancesOf back the view endpoints of spec.md §6.
func (e *Engine) BalanceOf(ctx context.Context, accountID, tokenID string) (money.Amount, error) {
	acc, ok, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return money.Zero(), err
	}
	if !ok {
		return money.Zero(), nil
	}
	return acc.Balances[tokenID], nil
}

func (e *Engine) BalancesOf(ctx context.Context, accountID string, tokenIDs []string) (map[string]money.Amount, error) {
	acc, ok, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]money.Amount, len(tokenIDs))
	if !ok {
		for _, t := range tokenIDs {
			out[t] = money.Zero()
		}
		return out, nil
	}
	for _, t := range tokenIDs {
		out[t] = acc.Balances[t]
	}
	return out, nil
}

// GetNumBalances is the original_source/account.rs view restored per
// SPEC_FULL.md's [ACCOUNT] section: the count of distinct registered
// tokens, used by clients to paginate balances_of.
func (e *Engine) GetNumBalances(ctx context.Context, accountID string) (int, error) {
	acc, ok, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return len(acc.Balances), nil
}

// GetAccountSales returns the set of sale ids accountID owns.
func (e *Engine) GetAccountSales(ctx context.Context, accountID string) ([]uint64, error) {
	acc, ok, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	out := make([]uint64, 0, len(acc.Sales))
	for id := range acc.Sales {
		out = append(out, id)
	}
	return out, nil
}

// GetSubscribedSales returns the set of sale ids accountID holds a
// subscription in.
func (e *Engine) GetSubscribedSales(ctx context.Context, accountID string) ([]uint64, error) {
	acc, ok, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	out := make([]uint64, 0, len(acc.Subs))
	for id := range acc.Subs {
		out = append(out, id)
	}
	return out, nil
}

// OnFtTransfer implements the token-transfer inbox convention of
// spec.md §6: an incoming transfer with payload {"AccountDeposit"}
// credits amount to senderID's internal balance of tokenID, which must
// already be registered.
func (e *Engine) OnFtTransfer(ctx context.Context, tokenID, senderID string, amount money.Amount) error {
	acc, err := e.loadAccount(ctx, senderID)
	if err != nil {
		return err
	}
	if err := acc.Deposit(tokenID, amount); err != nil {
		return err
	}
	return e.store.PutAccount(ctx, acc)
}
