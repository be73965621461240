package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"

	"teamfinance/internal/backend"
	"teamfinance/internal/cli"
	"teamfinance/internal/log"
	"teamfinance/internal/scheduler"
	"teamfinance/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting teamfinance-worker", "events", cfg.EventsBackend, "sweep_schedule", cfg.SweepSchedule)

	res := cli.InitBackend(context.Background(), logger, cfg, true)
	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	if err := run(ctx, logger, cfg.SweepSchedule, res); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

// run sweeps once, schedules further sweeps and consumes events until ctx
// is cancelled or consumption fails. The backend is released on every
// return path.
func run(ctx context.Context, logger *log.Logger, schedule string, res *backend.Result) error {
	defer func() {
		if cerr := res.Cleanup(); cerr != nil {
			logger.Error("Backend cleanup error", log.FieldError, cerr)
		}
	}()

	sweeper := worker.NewSweeper(res.Store, logger)
	sched := scheduler.New(logger)
	defer sched.Shutdown()

	// Catch anything deleted while no worker was running.
	if _, err := sweeper.Sweep(ctx); err != nil {
		logger.Error("Startup sweep failed", log.FieldError, err)
	}

	if _, err := sched.AddJob(ctx, schedule, func(ctx context.Context) {
		if _, err := sweeper.Sweep(ctx); err != nil {
			logger.ErrorContext(ctx, "Scheduled sweep failed", log.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", schedule, err)
	}
	sched.Start()

	g, gctx := errgroup.WithContext(ctx)
	if res.Consumer != nil {
		g.Go(func() error {
			err := res.Consumer.Consume(gctx, sweeper.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("No event transport configured, relying on scheduled sweeps")
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("consume events: %w", err)
	}
	<-ctx.Done()
	return nil
}
