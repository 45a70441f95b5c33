package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskmarket/internal/clix"
)

var completeResult string

// completeCmd represents the complete command
var completeCmd = &cobra.Command{
	Use:   "complete <job-id>",
	Short: "Attach a result to a claimed job",
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
		if err := appInstance.Lifecycle.Complete(cmd.Context(), jobID, completeResult, appInstance.SignerFor(actor)); err != nil {
			return fmt.Errorf("complete failed: %w", err)
		}

		fmt.Printf("Completed job %s\n", jobID)
		return nil
	},
}

func init() {
	completeCmd.Flags().StringVarP(&completeResult, "result", "r", "", "result payload")
	completeCmd.MarkFlagRequired("result")
	rootCmd.AddCommand(completeCmd)
}
