package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shitzu-Apes/launchpad/internal/store"
)

// redeemWorkerCmd is a dry-run reporting tool, not an executor: it
// prints what a redeem_skyward batch run against the current treasury
// balances would look like, plus the wrap_extra_near-equivalent sweep
// budget from config, without performing any transfer (the wrap/unwrap
// collaborator is out of scope per spec.md §1 — see SPEC_FULL.md's
// [TREASURY] section). An operator uses this to decide whether it is
// worth calling the real claim_treasury/redeem_skyward endpoints.
var redeemWorkerCmd = &cobra.Command{
	Use:   "redeem-worker",
	Short: "report redeemable treasury balances without transferring anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.DataDir, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		tr, ok, err := db.GetTreasury(ctx)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warnf("redeem-worker: no treasury provisioned yet (run `launchpad migrate` first)")
			return nil
		}

		supply, err := tr.CirculatingSupply(time.Now())
		if err != nil {
			return err
		}
		logger.Infof("redeem-worker: circulating skyward supply = %s", supply)
		logger.Infof("redeem-worker: locked_attached_deposits = %s", tr.LockedAttachedDeposits)
		logger.Infof("redeem-worker: storage sweep budget = %d bytes + %d extra (policy, not transferred)",
			cfg.StorageSweepBufferBytes, cfg.StorageSweepExtra)

		for tokenID, balance := range tr.Balances {
			if balance.IsZero() {
				continue
			}
			logger.Infof("redeem-worker: %s balance %s redeemable pro-rata against supply", tokenID, balance)
		}
		return nil
	},
}
