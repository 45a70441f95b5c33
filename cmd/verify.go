package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskmarket/internal/clix"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <job-id>",
	Short: "Verify a completed job and release escrow to the worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		actor, err := clix.ParseActor(cmd.Flags(), appInstance.Config.Actor.Address)
		if err != nil {
			return err
		}

		jobID := args[0]
		if err := appInstance.Lifecycle.Verify(cmd.Context(), jobID, appInstance.SignerFor(actor)); err != nil {
			return fmt.Errorf("verify failed: %w", err)
		}

		fmt.Printf("Verified job %s; escrow released to the worker.\n", jobID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
