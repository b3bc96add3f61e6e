// Package permissionsclient defines the external permissioning-oracle
// collaborator interface (spec.md §5 suspension point (ii)): a single
// boolean query gating first-time admission into a permissioned sale.
// No concrete wire implementation lives in this module (spec.md §1's
// out-of-scope line item) — only the interface and a fake test double
// used to drive internal/engine's scenario tests.
package permissionsclient

import "context"

// Client asks contractID whether accountID may subscribe to saleID.
// The engine calls it through Engine.FireIsApproved during the
// two-phase admission of a first deposit into a permissioned sale
// (spec.md §4.4 step 3); nothing limits how often one (account, sale)
// pair is queried.
type Client interface {
	IsApproved(ctx context.Context, contractID, accountID string, saleID uint64) (bool, error)
}
