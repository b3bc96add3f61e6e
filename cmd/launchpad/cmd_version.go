package main

import (
	"fmt"

	ct "github.com/daviddengcn/go-colortext"
	"github.com/spf13/cobra"
)

// version is set via -ldflags "-X main.version=..." at release build
// time, the same convention tzindex's CLI uses for its build stamp.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the build version",
	RunE: func(cmd *cobra.Command, args []string) error {
		ct.Foreground(ct.Green, true)
		fmt.Print("launchpad")
		ct.ResetColor()
		fmt.Printf(" %s\n", version)
		return nil
	},
}
