package model

import "github.com/Shitzu-Apes/launchpad/internal/money"

// Account is the per-account ledger from spec.md §3.
type Account struct {
	AccountID string `pack:"I,pk" json:"account_id"`

	// Balances maps a registered token id to its internal balance.
	// Registration (via RegisterToken) inserts a zero entry; a token
	// that has never been registered has no entry at all, which is
	// distinct from a registered zero balance.
	Balances map[string]money.Amount `pack:"b,snappy" json:"-"`

	// Subs maps sale id to the account's subscription in that sale.
	Subs map[uint64]*Subscription `pack:"s,snappy" json:"-"`

	// Sales is the set of sale ids this account owns.
	Sales map[uint64]struct{} `pack:"o,snappy" json:"-"`
}

func NewAccount(accountID string) *Account {
	return &Account{
		AccountID: accountID,
		Balances:  make(map[string]money.Amount),
		Subs:      make(map[uint64]*Subscription),
		Sales:     make(map[uint64]struct{}),
	}
}

// IsRegistered reports whether tokenID has an internal balance entry.
func (a *Account) IsRegistered(tokenID string) bool {
	_, ok := a.Balances[tokenID]
	return ok
}

// RegisterToken inserts a zero balance if tokenID is not already
// registered. Idempotent (spec.md §6 register_token).
func (a *Account) RegisterToken(tokenID string) {
	if !a.IsRegistered(tokenID) {
		a.Balances[tokenID] = money.Zero()
	}
}

// Deposit credits amount to tokenID's internal balance. The token must
// already be registered (ErrTokenNotRegistered otherwise), matching
// internal_token_deposit in original_source/account.rs.
func (a *Account) Deposit(tokenID string, amount money.Amount) error {
	bal, ok := a.Balances[tokenID]
	if !ok {
		return ErrTokenNotRegistered
	}
	newBal, err := bal.Add(amount)
	if err != nil {
		return ErrBalanceOverflow
	}
	a.Balances[tokenID] = newBal
	return nil
}

// Withdraw debits amount from tokenID's internal balance.
func (a *Account) Withdraw(tokenID string, amount money.Amount) error {
	bal, ok := a.Balances[tokenID]
	if !ok {
		return ErrTokenNotRegistered
	}
	newBal, err := bal.Sub(amount)
	if err != nil {
		return ErrNotEnoughBalance
	}
	a.Balances[tokenID] = newBal
	return nil
}

// SaveSubscription installs or removes sub per spec.md §3's lifecycle
// rule, mirroring internal_save_subscription.
func (a *Account) SaveSubscription(sale *Sale, sub *Subscription) {
	if sub.ShouldGarbageCollect(sale) {
		delete(a.Subs, sale.SaleID)
		return
	}
	a.Subs[sale.SaleID] = sub
}
