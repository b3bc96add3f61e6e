package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/store"
)

// migrateCmd provisions the genesis treasury (if absent) and lazily
// lifts every stored sale through model.Sale.Migrate — the CLI-driven
// equivalent of original_source's OldSale -> Sale migration, which the
// Rust contract instead ran implicitly on first touch of each sale
// (spec.md §9 "Versioned stored schemas"). Running it eagerly here
// lets an operator confirm the whole dataset is on the current schema
// version in one pass instead of waiting for organic traffic to touch
// every sale.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "provision the genesis treasury and migrate stored sales to the current schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.DataDir, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		if err := ensureTreasury(ctx, db); err != nil {
			return err
		}
		return migrateSales(ctx, db)
	},
}

func ensureTreasury(ctx context.Context, db *store.DB) error {
	_, ok, err := db.GetTreasury(ctx)
	if err != nil {
		return err
	}
	if ok {
		logger.Infof("migrate: treasury already provisioned, skipping")
		return nil
	}
	tr, err := model.NewTreasury(cfg.SkywardTokenID, cfg.WNearTokenID, cfg.VestingSchedule, cfg.ListingFee)
	if err != nil {
		return err
	}
	logger.Infof("migrate: provisioning genesis treasury (skyward=%s, w_near=%s, listing_fee=%s)",
		cfg.SkywardTokenID, cfg.WNearTokenID, cfg.ListingFee)
	return db.PutTreasury(ctx, tr)
}

func migrateSales(ctx context.Context, db *store.DB) error {
	now := time.Now()
	migrated := 0
	err := db.ListSales(ctx, 0, 1<<30, func(sale *model.Sale) error {
		before := sale.SchemaVersion
		if err := sale.Migrate(now, sale.StartBlockHeight); err != nil {
			return err
		}
		if sale.SchemaVersion != before {
			migrated++
			return db.PutSale(ctx, sale)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Infof("migrate: lifted %d sale(s) to the current schema version", migrated)
	return nil
}
