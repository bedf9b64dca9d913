package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"scrim-booking/internal/wire"
	"scrim-booking/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var withWorkers bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, notification dispatcher and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, rt, withWorkers)
		},
	}

	cmd.Flags().BoolVar(&withWorkers, "workers", true, "run the retention sweeper and pending poller in this process")
	return cmd
}

func runServe(ctx context.Context, rt *container, withWorkers bool) error {
	cfg := rt.config
	rt.log.Info("Starting application",
		zap.String("app", cfg.App.Name),
		zap.String("port", cfg.App.Port),
		zap.String("payment_driver", cfg.Payment.Driver),
		zap.Bool("workers", withWorkers),
	)

	app := wire.Wiring(rt.service, cfg, rt.ping, rt.log)

	// the dispatcher outlives the server so events raised during shutdown still go out
	stopDispatch := rt.startDispatcher()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return APIServer(gctx, app.Router, cfg.App.Port, rt.log)
	})

	if withWorkers {
		locker := worker.NewLocker(rt.rdb)
		sweeper := worker.NewRetentionSweeper(rt.service.Retention, cfg.Worker.SweepInterval, cfg.Worker.SweepRetention, locker, rt.log)
		poller := worker.NewPendingPoller(rt.service.Reconcile, cfg.Worker.PollInterval, cfg.Worker.PollMinAge, locker, rt.log)

		g.Go(func() error { return sweeper.Start(gctx) })
		g.Go(func() error { return poller.Start(gctx) })
	}

	err := g.Wait()

	stopDispatch()
	rt.log.Info("Application stopped")
	return err
}
