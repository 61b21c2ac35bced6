package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"donation-tracker/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "donationwatch %s\ncommit: %s\nbuilt: %s\n", version.Build(), version.Commit, version.BuildDate)
	},
}
