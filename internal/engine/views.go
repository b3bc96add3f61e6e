package engine

import (
	"context"
	"time"

	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/money"
)

// GetSaleView backs get_sale (spec.md §6): a read-only, already-migrated
// sale, touched as of now so its per_share/claimable fields reflect the
// current instant rather than whatever they were at last write.
func (e *Engine) GetSaleView(ctx context.Context, saleID uint64, now time.Time, blockHeight uint64) (*model.Sale, error) {
	sale, err := e.loadSale(ctx, saleID, now, blockHeight)
	if err != nil {
		return nil, err
	}
	if err := sale.Touch(now, blockHeight); err != nil {
		return nil, err
	}
	return sale, nil
}

// ListSales backs get_sales (spec.md §6): ascending sale_id pagination.
func (e *Engine) ListSales(ctx context.Context, fromIndex uint64, limit int, fn func(*model.Sale) error) error {
	return e.store.ListSales(ctx, fromIndex, limit, fn)
}

// GetTreasuryView backs get_treasury_balance(s) (restored per
// SPEC_FULL.md's [TREASURY] section).
func (e *Engine) GetTreasuryView(ctx context.Context) (*model.Treasury, error) {
	return e.loadTreasury(ctx)
}

func (e *Engine) GetTreasuryBalance(ctx context.Context, tokenID string) (money.Amount, error) {
	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return money.Zero(), err
	}
	return tr.Balances[tokenID], nil
}

// GetListingFee backs get_listing_fee (restored per SPEC_FULL.md's
// [TREASURY] section).
func (e *Engine) GetListingFee(ctx context.Context) (money.Amount, error) {
	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return money.Zero(), err
	}
	return tr.ListingFee, nil
}

// GetSkywardCirculatingSupply backs get_skyward_circulating_supply
// (restored per SPEC_FULL.md's [TREASURY] section).
func (e *Engine) GetSkywardCirculatingSupply(ctx context.Context, now time.Time) (money.Amount, error) {
	tr, err := e.loadTreasury(ctx)
	if err != nil {
		return money.Zero(), err
	}
	return tr.CirculatingSupply(now)
}
