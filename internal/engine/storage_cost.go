package engine

import (
	"bytes"
	"encoding/gob"

	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// blobLen measures the gob-encoded size of v, the same proxy for
// "storage bytes" internal/store uses to persist it. Storage-cost
// accounting does not need the real on-disk byte count (which also
// depends on packdb's column layout/compression); it only needs a
// stable, monotonic measure that grows and shrinks with the struct's
// actual content, and the encoding the struct is persisted with is the
// natural choice.
func blobLen(v interface{}) int {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return 0
	}
	return buf.Len()
}

// StorageCostResult is what a storage-bracketed mutation owes back to
// its caller: a shortfall aborts the whole operation (ErrNotEnoughAttached);
// a surplus is refunded, less 1 unit kept as dust rather than moved
// (spec.md §5 "Shared resources").
type StorageCostResult struct {
	// Refund is the amount of native token (yoctoNEAR-equivalent) to
	// hand back to the caller. Zero if nothing is owed.
	Refund money.Amount
}

// chargeStorageForAccount brackets mutate against attached native
// tokens using the account's serialized size before/after as the
// byte-delta (spec.md §5): every mutator that grows storage must be
// paid for; every byte released is refunded.
func (e *Engine) chargeStorageForAccount(acc *model.Account, attached money.Amount, mutate func() error) (StorageCostResult, error) {
	before := blobLen(acc)
	if err := mutate(); err != nil {
		return StorageCostResult{}, err
	}
	after := blobLen(acc)
	return e.settleStorageCost(before, after, attached)
}

// chargeStorageForSaleCreate is the sale_create variant: the listing
// fee is layered on top of the byte cost (spec.md §4.7), and the whole
// new sale record counts as grown bytes (there was no prior sale to
// diff against), alongside whatever mutate adds to owner (its new
// entry in the owned-sales set).
func (e *Engine) chargeStorageForSaleCreate(sale *model.Sale, owner *model.Account, attached money.Amount, mutate func() error) (StorageCostResult, error) {
	ownerBefore := blobLen(owner)
	if err := mutate(); err != nil {
		return StorageCostResult{}, err
	}
	ownerAfter := blobLen(owner) + blobLen(sale)

	afterFee, err := attached.Sub(e.cfg.ListingFee)
	if err != nil {
		return StorageCostResult{}, model.ErrNotEnoughAttached
	}
	return e.settleStorageCost(ownerBefore, ownerAfter, afterFee)
}

func (e *Engine) settleStorageCost(before, after int, attached money.Amount) (StorageCostResult, error) {
	if after > before {
		grown := uint64(after - before)
		cost, err := money.MulDivFloor(e.cfg.StorageByteCost, money.NewFromUint64(grown), money.NewFromUint64(1))
		if err != nil {
			return StorageCostResult{}, err
		}
		if attached.Lt(cost) {
			return StorageCostResult{}, model.ErrNotEnoughAttached
		}
		surplus, err := attached.Sub(cost)
		if err != nil {
			return StorageCostResult{}, err
		}
		return StorageCostResult{Refund: dustTrim(surplus)}, nil
	}

	freed := uint64(before - after)
	released, err := money.MulDivFloor(e.cfg.StorageByteCost, money.NewFromUint64(freed), money.NewFromUint64(1))
	if err != nil {
		return StorageCostResult{}, err
	}
	refund, err := attached.Add(released)
	if err != nil {
		return StorageCostResult{}, err
	}
	return StorageCostResult{Refund: dustTrim(refund)}, nil
}

// dustTrim keeps 1 unit rather than returning it, avoiding a dust
// native-token transfer for a refund that would round to nothing
// useful anyway.
func dustTrim(amount money.Amount) money.Amount {
	one := money.NewFromUint64(1)
	if amount.Lte(one) {
		return money.Zero()
	}
	trimmed, err := amount.Sub(one)
	if err != nil {
		return money.Zero()
	}
	return trimmed
}

// requireOneYocto enforces the anti-replay convention withdraw-style
// mutators use (spec.md §6): exactly 1 unit of native token attached.
func requireOneYocto(attached money.Amount) error {
	if attached.Cmp(money.NewFromUint64(1)) != 0 {
		return model.ErrNeedAtLeastOneYocto
	}
	return nil
}
