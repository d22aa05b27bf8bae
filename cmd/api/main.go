package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ledger-consolidation/internal/api"
	"github.com/dvloznov/ledger-consolidation/internal/api/handlers"
	"github.com/dvloznov/ledger-consolidation/internal/app"
	"github.com/dvloznov/ledger-consolidation/internal/config"
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

	addr := flag.String("addr", cfg.APIAddr, "HTTP listen address")
	flag.Parse()

	log := app.NewLogger(cfg)
	log.Info().Interface("config", cfg.Redacted()).Msg("Configuration loaded")

	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize collaborators")
	}
	defer a.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, a.JobHandler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	var runs handlers.RunReader
	if a.Runs != nil {
		runs = a.Runs
	}
	if cfg.APIToken == "" {
		log.Warn().Msg("No API token configured, /api endpoints are unauthenticated")
	}

	router := api.NewRouter(api.RouterConfig{
		Log:       log,
		Runs:      runs,
		Publisher: jobQueue,
		Jobs:      jobStore,
		Token:     cfg.APIToken,
	})

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	waitForSignal()
	shutdown(log, server, jobQueue, cancelWorker)
}

func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func shutdown(log zerolog.Logger, server *http.Server, queue *inmemory.Queue, cancelWorker context.CancelFunc) {
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// In-flight runs get the shutdown window before their context is canceled.
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
