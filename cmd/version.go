// -- cmd/version.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version holds the application version. It is meant to be overridden at
// build time via ldflags:
//
//	go build -ldflags "-X github.com/kaidhar/prism-cli/cmd.Version=1.2.3"
var Version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the prism-cli version.",
	// Config and logger setup are unnecessary for printing a constant.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
