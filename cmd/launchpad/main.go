// Command launchpad runs the continuous-time pro-rata token sale
// engine as a standalone service, the same single-binary shape
// tzindex's cmd/ package uses (root command + one file per verb).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
