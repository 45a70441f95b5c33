package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskmarket/internal/clix"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live job view for an address",
	Long: `Subscribes the address to the polling scheduler and prints the job
table on every interval until interrupted. Unsubscribing on exit stops the
poll loop immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		address, err := clix.ParseActor(cmd.Flags(), appInstance.Config.Actor.Address)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		token := appInstance.Poller.Subscribe(address)
		defer appInstance.Poller.Unsubscribe(address, token)

		fmt.Printf("Watching jobs for %s (interval %s). Ctrl-C to stop.\n",
			address, appInstance.Config.Poll.Interval)

		ticker := time.NewTicker(appInstance.Config.Poll.Interval)
		defer ticker.Stop()
		for {
			jobs := appInstance.Cache.List(address)
			if len(jobs) == 0 {
				fmt.Println("No jobs found.")
			} else {
				renderJobTable(jobs)
			}
			select {
			case <-ctx.Done():
				fmt.Println("Stopped watching.")
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
