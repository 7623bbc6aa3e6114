package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/jobportal-payment/internal/usecase"
)

var (
	planFile  string
	planPrune bool
	planCheck bool
)

var syncPlansCmd = &cobra.Command{
	Use:   "sync-plans",
	Short: "Load the plan catalogue into the database",
	Long: `Reads the YAML plan catalogue and upserts every plan into payment_plans.
With --prune, plans that are no longer in the file are deactivated.
With --check, the file is only validated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(planFile)
		if err != nil {
			return fmt.Errorf("failed to open plan catalogue: %w", err)
		}
		defer f.Close()

		plans, err := usecase.LoadPlanCatalogue(f)
		if err != nil {
			return err
		}
		if planCheck {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d plans OK\n", planFile, len(plans))
			return nil
		}

		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.Plans.Sync(cmd.Context(), plans, planPrune)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d plans, deactivated %d\n", result.Upserted, result.Deactivated)
		return nil
	},
}

func init() {
	syncPlansCmd.Flags().StringVarP(&planFile, "file", "f", "configs/plans.yaml", "plan catalogue file")
	syncPlansCmd.Flags().BoolVar(&planPrune, "prune", false, "deactivate plans missing from the catalogue")
	syncPlansCmd.Flags().BoolVar(&planCheck, "check", false, "validate the catalogue without touching the database")
}
