package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateAmount float64
	simulateSender string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-donation",
	Short: "Send an alert for a synthetic donation",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateAmount <= 0 {
			return errors.New("--amount must be greater than zero")
		}
		return getApp().SimulateDonation(cmd.Context(), simulateAmount, simulateSender)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateAmount, "amount", 0, "Donation amount in whole coins")
	simulateCmd.Flags().StringVar(&simulateSender, "sender", "", "Sender address (defaults to the zero address)")
}
