package main

import (
	"github.com/echa/log"
	"github.com/spf13/cobra"

	"github.com/Shitzu-Apes/launchpad/internal/config"
)

var (
	cfg    config.Config
	logger log.Logger
)

var rootCmd = &cobra.Command{
	Use:           "launchpad",
	Short:         "continuous-time pro-rata token sale engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger = log.NewLogger(log.Options{})
		log.Log = logger
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(redeemWorkerCmd)
	rootCmd.AddCommand(versionCmd)
}
