package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshLimit int

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh cycle and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		if refreshLimit < 0 {
			return fmt.Errorf("--limit cannot be negative")
		}
		limit := refreshLimit
		if limit == 0 {
			limit = getApp().Config.Campaign.DisplayLimit
		}
		return getApp().Refresh(cmd.Context(), limit)
	},
}

func init() {
	refreshCmd.Flags().IntVar(&refreshLimit, "limit", 0, "Number of donations to print (defaults to campaign.display_limit)")
}
