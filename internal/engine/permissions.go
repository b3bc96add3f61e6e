package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/money"
	"github.com/Shitzu-Apes/launchpad/internal/store"
)

// RequiresAdmission reports whether accountID's deposit into saleID
// must go through the two-phase BeginAdmission/ResolveAdmission flow
// instead of the unconditional SaleDepositInToken path (spec.md §4.4
// step 3): the sale is permissioned AND the caller has no existing
// subscription yet.
func (e *Engine) RequiresAdmission(ctx context.Context, saleID uint64, accountID string) (bool, error) {
	sale, ok, err := e.store.GetSale(ctx, saleID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, model.ErrSaleNotFound
	}
	if sale.PermissionsContractID == nil {
		return false, nil
	}
	acc, ok, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	_, hasSub := acc.Subs[saleID]
	return !hasSub, nil
}

// BeginAdmission is spec.md §4.4 step 3 part (a): reserve the attached
// native deposit in the treasury. It does not send the is_approved
// query; FireIsApproved does. It persists an AdmissionReservation so the flow
// survives a process restart between this call and ResolveAdmission
// (spec.md §5's suspension-point durability requirement).
func (e *Engine) BeginAdmission(ctx context.Context, accountID string, saleID uint64, inAmount money.Amount, referralID *string, attached money.Amount) error {
	sale, ok, err := e.store.GetSale(ctx, saleID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrSaleNotFound
	}
	if sale.PermissionsContractID == nil {
		return fmt.Errorf("engine: sale %d has no permissions contract", saleID)
	}

	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return err
	}
	tr.LockedAttachedDeposits = tr.LockedAttachedDeposits.MustAdd(attached)
	if err := e.store.PutTreasury(ctx, tr); err != nil {
		return err
	}

	res := &store.AdmissionReservation{
		AccountID:     accountID,
		SaleID:        saleID,
		InAmount:      inAmount.String(),
		ReferralID:    referralID,
		AttachedYocto: attached.String(),
	}
	if err := e.store.PutAdmission(ctx, res); err != nil {
		return err
	}

	// The actual is_approved call is fired by the caller (server layer)
	// immediately after BeginAdmission succeeds; this method only
	// performs the synchronous reservation half of the suspension point.
	return nil
}

// FireIsApproved performs the asynchronous oracle query itself (spec.md
// §4.4 step 3b). Split out from BeginAdmission so the server layer can
// persist the reservation and return control to its caller before
// blocking on the oracle round-trip, then invoke this once, then call
// ResolveAdmission with the result.
func (e *Engine) FireIsApproved(ctx context.Context, contractID, accountID string, saleID uint64) (bool, error) {
	return e.perms.IsApproved(ctx, contractID, accountID, saleID)
}

// ResolveAdmission is spec.md §4.4 step 3c: the is_approved callback.
// On approval it performs steps 4–7 atomically and returns the
// leftover deposit (attached minus storage cost) to refund; on denial
// or an oracle error it releases the reservation and refunds the full
// deposit. Either way the reservation row is deleted — a replayed
// callback for the same (account, sale) pair after the first
// resolution will find no reservation and is treated as a no-op.
func (e *Engine) ResolveAdmission(ctx context.Context, accountID string, saleID uint64, approved bool, now time.Time, blockHeight uint64) (money.Amount, error) {
	res, ok, err := e.store.GetAdmission(ctx, accountID, saleID)
	if err != nil {
		return money.Zero(), err
	}
	if !ok {
		// Lost or already-resolved continuation: nothing to refund,
		// nothing to commit. Nothing in this package reconciles
		// locked_attached_deposits for a lost continuation (spec.md §5
		// "Cancellation"); this method never guesses.
		return money.Zero(), nil
	}

	attached, err := money.NewFromString(res.AttachedYocto)
	if err != nil {
		return money.Zero(), err
	}

	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return money.Zero(), err
	}
	tr.LockedAttachedDeposits, err = tr.LockedAttachedDeposits.Sub(attached)
	if err != nil {
		return money.Zero(), err
	}

	if !approved {
		if err := e.store.PutTreasury(ctx, tr); err != nil {
			return money.Zero(), err
		}
		if err := e.store.DeleteAdmission(ctx, accountID, saleID); err != nil {
			return money.Zero(), err
		}
		return attached, nil
	}

	inAmount, err := money.NewFromString(res.InAmount)
	if err != nil {
		return money.Zero(), err
	}

	sale, err := e.loadSale(ctx, saleID, now, blockHeight)
	if err != nil {
		return money.Zero(), err
	}
	acc, err := e.loadOrCreateAccount(ctx, accountID)
	if err != nil {
		return money.Zero(), err
	}

	costResult, err := e.chargeStorageForAccount(acc, attached, func() error {
		_, derr := e.depositInToken(ctx, sale, acc, tr, inAmount, res.ReferralID, now, blockHeight)
		return derr
	})
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
	if err := e.store.DeleteAdmission(ctx, accountID, saleID); err != nil {
		return money.Zero(), err
	}
	return costResult.Refund, nil
}
