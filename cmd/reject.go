package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskmarket/internal/clix"
)

var rejectReason string

// rejectCmd represents the reject command
var rejectCmd = &cobra.Command{
	Use:   "reject <job-id>",
	Short: "Reject a completed job's result and reopen it",
	Long: `Rejects the attached result: the job returns to PENDING, the worker
and result are cleared, and the reason is recorded on the job.`,
	Args: cobra.ExactArgs(1),
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
		if err := appInstance.Lifecycle.Reject(cmd.Context(), jobID, rejectReason, appInstance.SignerFor(actor)); err != nil {
			return fmt.Errorf("reject failed: %w", err)
		}

		fmt.Printf("Rejected job %s; it is open for claims again.\n", jobID)
		return nil
	},
}

func init() {
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "why the result is rejected")
	rejectCmd.MarkFlagRequired("reason")
	rootCmd.AddCommand(rejectCmd)
}
