package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"taskmarket/internal/clix"
	"taskmarket/internal/models"
)

// claimCmd represents the claim command
var claimCmd = &cobra.Command{
	Use:   "claim <job-id>",
	Short: "Claim a pending job as the acting worker",
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
		if err := appInstance.Lifecycle.Claim(cmd.Context(), jobID, appInstance.SignerFor(actor)); err != nil {
			var ae *models.ActionError
			if errors.As(err, &ae) && ae.Kind == models.KindLostClaimRace {
				fmt.Printf("Job %s was claimed by another worker first.\n", jobID)
				return nil
			}
			return fmt.Errorf("claim failed: %w", err)
		}

		fmt.Printf("Claimed job %s as %s\n", jobID, actor)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(claimCmd)
}
