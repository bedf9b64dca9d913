package cmd

import (
	"fmt"
	"time"

	"scrim-booking/pkg/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func sweepCmd() *cobra.Command {
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired scrims and everything referencing them, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			stopDispatch := rt.startDispatcher()
			defer stopDispatch()

			keep := rt.config.Worker.SweepRetention
			if retention > 0 {
				keep = retention
			}

			res, err := rt.service.Retention.Sweep(cmd.Context(), time.Now(), keep)
			if res != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "swept %d scrims (%d bookings, %d payments, %d rooms), %d failed\n",
					res.Scrims, res.Bookings, res.Payments, res.Rooms, res.Failed)
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&retention, "retention", 0, "override SWEEP_RETENTION")
	return cmd
}

func pollCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Ask the provider about stale pending payments, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			stopDispatch := rt.startDispatcher()
			defer stopDispatch()

			settled, err := rt.service.Reconcile.PollPending(cmd.Context(), rt.config.Worker.PollMinAge, limit)
			fmt.Fprintf(cmd.OutOrStdout(), "settled %d payments\n", settled)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 200, "maximum payments to check")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.db == nil {
				return fmt.Errorf("migrate needs DB_DRIVER=postgres")
			}

			applied, err := database.Migrate(cmd.Context(), rt.db)
			if err != nil {
				return err
			}
			rt.log.Info("Migrations applied", zap.Strings("files", applied))
			for _, f := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", f)
			}
			return nil
		},
	}
}
