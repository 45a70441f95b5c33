package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskmarket/internal/app"
	"taskmarket/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "taskmarket",
	Short: "Taskmarket CLI",
	Long: `Taskmarket is a client for a ledger-backed task marketplace: submit
jobs with an escrowed reward, claim and complete them as a worker, and
verify or reject results as the submitter.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		appInstance, err := app.NewApp(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		ctx := context.WithValue(cmd.Context(), appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("actor", "", "acting address (defaults to actor.address from config)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type contextKey string

const appKey contextKey = "app"

// GetAppFromContext retrieves the app instance stored by PersistentPreRunE.
func GetAppFromContext(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application not initialized in command context")
	}
	return appInstance, nil
}
