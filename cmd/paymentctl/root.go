package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/jobportal-payment/internal/bootstrap"
	"github.com/wekeepgrowing/jobportal-payment/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "paymentctl",
	Short: "Operate the job portal payment service",
	Long: `paymentctl runs maintenance tasks against the payment database:
schema migration, plan catalogue sync, one-off reconciliation and
watching the payment event stream.`,
	SilenceUsage: true,
}

// openApp loads configuration the same way the server does (CONFIG_PATH,
// PAYMENT_* overrides) and connects to storage.
func openApp() (*bootstrap.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return bootstrap.New(cfg, logger)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(syncPlansCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(eventsCmd)
}
