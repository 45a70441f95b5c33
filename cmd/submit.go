package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskmarket/internal/clix"
	"taskmarket/internal/ledger"
)

var submitDescription string

// submitCmd represents the submit command
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new job with an escrowed reward",
	Long: `Creates a job on the ledger. The reward is escrowed from the acting
address until the result is verified (paid to the worker) or the job is
deleted (refunded).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		actor, err := clix.ParseActor(cmd.Flags(), appInstance.Config.Actor.Address)
		if err != nil {
			return err
		}
		reward, err := clix.ParseReward(cmd.Flags())
		if err != nil {
			return err
		}
		deadline, err := clix.ParseDeadline(cmd.Flags())
		if err != nil {
			return err
		}

		jobID, err := appInstance.Lifecycle.Submit(cmd.Context(), ledger.SubmitParams{
			Description: submitDescription,
			Reward:      reward,
			Deadline:    deadline,
		}, appInstance.SignerFor(actor))
		if err != nil {
			return fmt.Errorf("submit failed: %w", err)
		}

		fmt.Printf("Submitted job %s (reward %s, deadline %s)\n", jobID, reward, deadline.Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVarP(&submitDescription, "description", "d", "", "task description payload")
	submitCmd.Flags().String("reward", "", "reward in the ledger's smallest unit")
	submitCmd.Flags().String("deadline-in", "24h", "deadline as a duration from now, e.g. 120m")
	submitCmd.MarkFlagRequired("description")
	submitCmd.MarkFlagRequired("reward")
	rootCmd.AddCommand(submitCmd)
}
