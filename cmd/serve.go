package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"taskmarket/internal/apihandlers"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run taskmarket as an HTTP API server",
	Long: `Starts an HTTP server exposing the marketplace surface (submit,
claim, complete, verify, reject, list, balance, refresh) to UIs and tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		router := gin.Default()
		apihandlers.RegisterRoutes(router, apihandlers.NewAPIHandler(appInstance))

		addr := serveAddr
		if addr == "" {
			addr = appInstance.Config.API.Addr
		}
		appInstance.Log.WithField("addr", addr).Info("starting API server")

		if err := router.Run(addr); err != nil {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to api.addr from config)")
	rootCmd.AddCommand(serveCmd)
}
