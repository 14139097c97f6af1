package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academy/internal/database"
	"academy/internal/events"
	"academy/internal/jobs"
	"academy/internal/server"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		migrate   bool
		noJobs    bool
		rateLimit int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the receipt consumer and the job scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate, !noJobs, rateLimit)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run database migrations before serving")
	cmd.Flags().BoolVar(&noJobs, "no-jobs", false, "do not run the cron scheduler in this process")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 60, "requests per minute per IP under /api/v1 (0 disables)")
	return cmd
}

func runServe(ctx context.Context, migrate, runJobs bool, rateLimit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flush := initSentry(cfg)
	defer flush()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate {
		if err := database.Migrate(a.db); err != nil {
			return err
		}
	}

	if a.mq != nil {
		consumer := events.NewReceiptConsumer(a.users, a.orders, a.mailer())
		if err := a.mq.Consume(ctx, events.ReceiptQueue, []string{events.OrderCompleted}, consumer.Deliver); err != nil {
			slog.Error("failed to start receipt consumer", "error", err)
		}
	}

	var scheduler *jobs.Scheduler
	if runJobs {
		scheduler, err = jobs.New(a.services.Orders, a.services.Subscription, jobs.Schedules{
			Reconcile:    cfg.ReconcileSchedule,
			Subscription: cfg.SubscriptionSchedule,
		})
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	httpApp := server.New(a.db, a.services, server.Options{
		RateLimit:  rateLimit,
		AccessLogs: true,
	})

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		errCh <- httpApp.Listen(cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	if err := httpApp.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if scheduler != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		scheduler.Stop(stopCtx)
		cancel()
	}
	slog.Info("server stopped")
	return nil
}
