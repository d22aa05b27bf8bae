// Package api assembles the HTTP surface: run triggering, run history and
// job status.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/ledger-consolidation/internal/api/handlers"
	"github.com/dvloznov/ledger-consolidation/internal/api/middleware"
	"github.com/dvloznov/ledger-consolidation/internal/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RouterConfig holds the router's collaborators.
type RouterConfig struct {
	Log       zerolog.Logger
	Runs      handlers.RunReader
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	Token     string

	// RunLimit caps POST /api/runs per client IP and minute. Zero means 5.
	RunLimit int
}

// NewRouter builds the chi router with the standard middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	runLimit := cfg.RunLimit
	if runLimit <= 0 {
		runLimit = 5
	}

	runsHandler := handlers.NewRunsHandler(cfg.Runs, cfg.Publisher)
	jobsHandler := handlers.NewJobsHandler(cfg.Jobs)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Log))
	r.Use(middleware.Logger(cfg.Log))
	r.Use(middleware.CORS)

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Token))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(runLimit, time.Minute))
			r.Post("/runs", runsHandler.CreateRun)
		})
		r.Get("/runs", runsHandler.ListRuns)
		r.Get("/runs/{runID}/allocations", runsHandler.GetAllocations)

		r.Get("/jobs", jobsHandler.ListJobs)
		r.Get("/jobs/{jobID}", jobsHandler.GetJob)
	})

	return r
}
