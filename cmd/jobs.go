package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"taskmarket/internal/clix"
	"taskmarket/internal/models"
)

// jobsCmd represents the jobs command
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the jobs visible for an address",
	Long: `Refreshes the local view from the ledger and lists every job where
the address is the submitter or the current worker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		address, err := clix.ParseActor(cmd.Flags(), appInstance.Config.Actor.Address)
		if err != nil {
			return err
		}

		if err := appInstance.Poller.RefreshNow(cmd.Context(), address); err != nil {
			return fmt.Errorf("failed to refresh jobs: %w", err)
		}

		jobs := appInstance.Cache.List(address)
		if len(jobs) == 0 {
			fmt.Println("No jobs found.")
			return nil
		}

		renderJobTable(jobs)
		return nil
	},
}

var statusColors = map[models.JobStatus]*color.Color{
	models.JobStatusPending:   color.New(color.FgYellow),
	models.JobStatusClaimed:   color.New(color.FgCyan),
	models.JobStatusCompleted: color.New(color.FgBlue),
	models.JobStatusVerified:  color.New(color.FgGreen),
}

func renderJobTable(jobs []models.Job) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Job ID", "Status", "Submitter", "Worker", "Reward", "Deadline", "Rejects"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, job := range jobs {
		status := string(job.Status)
		if c, ok := statusColors[job.Status]; ok {
			status = c.Sprint(status)
		}
		worker := job.Worker
		if worker == "" {
			worker = "-"
		}
		table.Append([]string{
			job.ID,
			status,
			job.Submitter,
			worker,
			job.RewardAmount.String(),
			job.Deadline.Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", job.TimesRejected),
		})
	}
	table.Render()
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}
