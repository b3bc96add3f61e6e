// Package tokenclient defines the external fungible-token collaborator
// interface the engine speaks against (spec.md §9 "Polymorphism over
// tokens"): every token, regardless of identity, answers to the same
// two verbs. No concrete wire implementation lives in this module
// (spec.md §1's out-of-scope line item) — only the interface and a fake
// test double used to drive internal/engine's scenario tests.
package tokenclient

import (
	"context"

	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// Client initiates an asynchronous transfer of a token the engine does
// not itself hold custody of beyond its internal ledger. For
// withdraw_token the engine debits the internal balance before calling
// Transfer and re-credits it only if the transfer is reported as
// failed; claim_treasury zeroes a treasury balance only after Transfer
// succeeds. This mirrors
// the at-most-once, eventually-resolved semantics described in
// spec.md §1.
type Client interface {
	Transfer(ctx context.Context, tokenID, receiverID string, amount money.Amount, memo string) error
}
