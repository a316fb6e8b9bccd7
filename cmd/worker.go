package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/backstage/services/fieldservice/config"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to process field messages, flag overdue orders and sweep uninvoiced completions`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	deps, err := buildDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Start the field message processor
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting field message processor")
		return deps.bus.ProcessMessages(ctx, deps.orders.ProcessFieldMessage)
	})

	// Start the periodic jobs
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.OverdueScanInterval),
			gocron.NewTask(func() {
				if _, err := deps.orders.MarkOverdue(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to flag overdue orders")
				}
			}),
		)
		if err != nil {
			return err
		}

		// Invoice sweep is a fallback for completions whose immediate
		// invoice generation failed
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.InvoiceSweepInterval),
			gocron.NewTask(func() {
				if _, err := deps.billing.SweepUninvoiced(ctx, cfg.Worker.InvoiceSweepBatchSize); err != nil {
					log.Error().Err(err).Msg("Failed to sweep uninvoiced orders")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
