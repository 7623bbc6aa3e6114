package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/jobportal-payment/internal/infrastructure/worker"
)

var (
	reconcileBatch     int
	reconcileSkipSweep bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Retry failed webhook events and refresh stale pending payments once",
	Long: `Runs one pass of the background reconciliation the server does on a
timer: failed webhook events are reapplied, then pending payments older
than reconcile.stale_after are re-read from their vendor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		cfg := app.Config
		ctx := cmd.Context()
		batch := reconcileBatch
		if batch <= 0 {
			batch = cfg.Reconcile.BatchSize
		}

		pool := worker.NewPool(cfg.Reconcile.Workers, app.Reconciler, app.Logger)
		pool.Start(ctx)
		dispatched := worker.NewDispatcher(app.Reconciler, pool, cfg.Reconcile.Interval, batch, app.Logger).Poll(ctx)
		pool.Stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Retried %d webhook events\n", dispatched)

		if reconcileSkipSweep {
			return nil
		}

		sweeper := worker.NewSweeper(app.Payments, app.Metrics.PendingSwept, cfg.Reconcile.Interval, cfg.Reconcile.StaleAfter, batch, app.Logger)
		fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d stale payments\n", sweeper.Sweep(ctx))
		return nil
	},
}

func init() {
	reconcileCmd.Flags().IntVar(&reconcileBatch, "batch", 0, "events and payments per pass (default reconcile.batch_size)")
	reconcileCmd.Flags().BoolVar(&reconcileSkipSweep, "skip-sweep", false, "only retry webhook events")
}
