package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskmarket/internal/clix"
)

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the spendable balance of an address",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		address, err := clix.ParseActor(cmd.Flags(), appInstance.Config.Actor.Address)
		if err != nil {
			return err
		}

		balance, err := appInstance.Balances.Balance(cmd.Context(), address)
		if err != nil {
			return fmt.Errorf("failed to fetch balance: %w", err)
		}

		fmt.Printf("Balance of %s: %s\n", address, balance)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
