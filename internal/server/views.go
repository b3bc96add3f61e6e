package server

import (
	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// accountView is a wire shape for a whole model.Account; the account
// handlers in handlers.go return their own maps and do not use it.
// model.Account tags its maps json:"-" (they're keyed by arbitrary
// token/sale ids, not fixed struct fields) so newAccountView converts
// them explicitly, the way the teacher's explorer package wraps an etl
// model in a view struct with its own MarshalJSON (server/explorer/baker.go).
type accountView struct {
	AccountID string                  `json:"account_id"`
	Balances  map[string]string       `json:"balances"`
	Sales     []uint64                `json:"sales"`
	Subs      []uint64                `json:"subscribed_sales"`
}

func newAccountView(acc *model.Account) accountView {
	v := accountView{
		AccountID: acc.AccountID,
		Balances:  make(map[string]string, len(acc.Balances)),
		Sales:     make([]uint64, 0, len(acc.Sales)),
		Subs:      make([]uint64, 0, len(acc.Subs)),
	}
	for tokenID, bal := range acc.Balances {
		v.Balances[tokenID] = bal.String()
	}
	for saleID := range acc.Sales {
		v.Sales = append(v.Sales, saleID)
	}
	for saleID := range acc.Subs {
		v.Subs = append(v.Subs, saleID)
	}
	return v
}

// saleView wraps model.Sale as-is: every field the caller needs to see
// already carries a json tag, unlike Account/Treasury.
type saleView struct {
	*model.Sale
}

func newSaleView(sale *model.Sale) saleView { return saleView{sale} }

// treasuryView exposes Treasury.Balances, which is json:"-" for the
// same reason as Account.Balances above.
type treasuryView struct {
	*model.Treasury
	Balances map[string]string `json:"balances"`
}

func newTreasuryView(tr *model.Treasury) treasuryView {
	v := treasuryView{Treasury: tr, Balances: make(map[string]string, len(tr.Balances))}
	for tokenID, bal := range tr.Balances {
		v.Balances[tokenID] = bal.String()
	}
	return v
}

// amountString renders a money.Amount the way every JSON body on the
// wire represents it: a decimal string (NEAR's U128 convention).
func amountString(a money.Amount) string { return a.String() }
