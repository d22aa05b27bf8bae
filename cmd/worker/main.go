package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ledger-consolidation/internal/app"
	"github.com/dvloznov/ledger-consolidation/internal/config"
	"github.com/dvloznov/ledger-consolidation/internal/jobs"
	"github.com/dvloznov/ledger-consolidation/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	interval := flag.Duration("interval", cfg.WorkerInterval, "time between scheduled consolidation runs")
	once := flag.Bool("once", false, "run a single consolidation and exit")
	flag.Parse()

	log := app.NewLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize collaborators")
	}
	defer a.Close()

	if *once {
		job := &jobs.ConsolidationJob{JobID: "once", Trigger: "worker"}
		if err := a.JobHandler()(ctx, job); err != nil {
			log.Error().Err(err).Str("run_id", job.RunID).Msg("Consolidation failed")
			a.Close()
			os.Exit(1)
		}
		return
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(10, jobStore)

	if err := jobQueue.Start(ctx, a.JobHandler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Dur("interval", *interval).Msg("Worker service started")
	schedule(ctx, log, jobQueue, *interval)

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}

// schedule enqueues a run immediately and then every interval until ctx
// is done.
func schedule(ctx context.Context, log zerolog.Logger, publisher jobs.Publisher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job := &jobs.ConsolidationJob{Trigger: "worker"}
		if err := publisher.PublishConsolidation(ctx, job); err != nil {
			log.Error().Err(err).Msg("Failed to enqueue scheduled run")
		} else {
			log.Info().Str("job_id", job.JobID).Msg("Scheduled run enqueued")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
