// Package app builds the collaborators every binary shares from Config.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/ledger-consolidation/internal/config"
	"github.com/dvloznov/ledger-consolidation/internal/exports"
	"github.com/dvloznov/ledger-consolidation/internal/gcsstore"
	infra "github.com/dvloznov/ledger-consolidation/internal/infra/bigquery"
	"github.com/dvloznov/ledger-consolidation/internal/insights"
	"github.com/dvloznov/ledger-consolidation/internal/jobs"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
	"github.com/dvloznov/ledger-consolidation/internal/notionsync"
	"github.com/dvloznov/ledger-consolidation/internal/pipeline"
	"github.com/dvloznov/ledger-consolidation/internal/sheets"
	"github.com/rs/zerolog"
)

// App holds the configured collaborators. Collaborators whose settings are
// missing stay nil.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	Provider *exports.ProviderClient
	Storage  *gcsstore.Store
	Archive  *gcsstore.Archive
	Runs     *infra.BigQueryRunRepository
	Sheets   *sheets.Publisher
	Notion   *notionsync.Publisher

	now func() time.Time
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return logger.NewWithOptions(os.Stderr, logger.Format(cfg.LogFormat), cfg.LogLevel)
}

// New connects every configured collaborator. On error the ones already
// opened are closed.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, now: time.Now}

	if cfg.ExportsEnabled() {
		a.Provider = exports.NewProviderClient(exports.ProviderConfig{
			BaseURL:        cfg.ExportBaseURL,
			PayablePath:    cfg.ExportPayablePath,
			ReceivablePath: cfg.ExportReceivablePath,
			Token:          cfg.ExportToken,
			Timeout:        cfg.ExportTimeout,
			Concurrency:    cfg.ExportConcurrency,
			Slots:          cfg.CostCenterSlots,
		})
	} else {
		log.Warn().Msg("No export token configured, provider exports disabled")
	}

	if cfg.Bucket != "" {
		store, err := gcsstore.NewStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.Storage = store
		a.Archive = gcsstore.NewArchive(store, cfg.Bucket, cfg.ArchivePrefix)
	}

	if cfg.GCPProject != "" {
		repo, err := infra.NewBigQueryRunRepository(ctx, cfg.GCPProject, cfg.Dataset)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		a.Runs = repo
	} else {
		log.Warn().Msg("No GCP project configured, run history disabled")
	}

	if cfg.SheetsEnabled() {
		pub, err := sheets.NewPublisher(ctx, cfg.SpreadsheetID, cfg.SheetsCredentials)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		a.Sheets = pub
	}

	if cfg.NotionEnabled() {
		a.Notion = notionsync.NewPublisher(notionsync.NewClient(cfg.NotionToken), cfg.NotionDatabaseID, false)
	}

	return a, nil
}

// Close releases client connections.
func (a *App) Close() {
	if a.Runs != nil {
		if err := a.Runs.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("Failed to close BigQuery client")
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("Failed to close storage client")
		}
	}
}

// Deps returns the consolidation collaborators, keeping unset ones as nil
// interfaces.
func (a *App) Deps() pipeline.Deps {
	var deps pipeline.Deps
	if a.Provider != nil {
		deps.Source = a.Provider
	}
	if a.Archive != nil {
		deps.Archive = a.Archive
	}
	if a.Runs != nil {
		deps.Runs = a.Runs
	}
	if a.Sheets != nil {
		deps.Sheets = a.Sheets
	}
	return deps
}

// History returns the run history, or nil when none is configured.
func (a *App) History() pipeline.RunHistory {
	if a.Runs == nil {
		return nil
	}
	return a.Runs
}

// Options returns consolidation options for trigger.
func (a *App) Options(trigger string) pipeline.Options {
	cfg := a.Config
	return pipeline.Options{
		Trigger:            trigger,
		Slots:              cfg.CostCenterSlots,
		Sentinel:           cfg.Sentinel,
		Now:                a.now,
		Location:           cfg.Location(),
		PayableStatuses:    cfg.PayableStatuses,
		ReceivableStatuses: cfg.ReceivableStatuses,
		Sheets: pipeline.SheetNames{
			Payables:    cfg.PayablesSheet,
			Receivables: cfg.ReceivablesSheet,
			Allocations: cfg.AllocationsSheet,
		},
	}
}

// InsightsDeps returns the insights collaborators. The Gemini client is
// created on demand since only insights runs need it.
func (a *App) InsightsDeps(ctx context.Context) (pipeline.InsightsDeps, error) {
	gen, err := insights.NewGeminiGenerator(ctx, a.Config.GeminiModel)
	if err != nil {
		return pipeline.InsightsDeps{}, fmt.Errorf("app: %w", err)
	}
	deps := pipeline.InsightsDeps{
		History: a.History(),
		Writer:  insights.NewSummarizer(gen),
	}
	if a.Sheets != nil {
		deps.Sheets = a.Sheets
	}
	if a.Notion != nil {
		deps.Notion = a.Notion
	}
	return deps, nil
}

// InsightsOptions returns insights options for year (zero for current).
func (a *App) InsightsOptions(year int) pipeline.InsightsOptions {
	return pipeline.InsightsOptions{
		Year:       year,
		Now:        a.now,
		Location:   a.Config.Location(),
		SheetTitle: a.Config.InsightsSheet,
	}
}

// JobHandler runs one consolidation per job.
func (a *App) JobHandler() jobs.JobHandler {
	return ConsolidationHandler(a.Deps(), a.Options)
}

// ConsolidationHandler adapts a pipeline run to a job handler. Each attempt
// starts a new run.
func ConsolidationHandler(deps pipeline.Deps, options func(trigger string) pipeline.Options) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ConsolidationJob) error {
		log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()
		ctx = logger.WithContext(ctx, log)

		state, err := pipeline.Run(ctx, deps, options(job.Trigger), &pipeline.PipelineState{Trigger: job.Trigger})
		if state != nil {
			job.RunID = state.RunID
		}
		if err != nil {
			return err
		}

		log.Info().
			Str("run_id", state.RunID).
			Int("records", len(state.Result.Records)).
			Int("allocations", len(state.Result.Rows)).
			Msg("Consolidation job finished")
		return nil
	}
}
