package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-consolidation/internal/exports"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
)

// PipelineStep represents a single step of a consolidation run.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Trigger string
	RunID   string

	Requests []exports.ExportRequest
	Exports  []exports.Export
	Failures []exports.FetchFailure
	Batches  []ledger.Batch

	ArchivedURIs []string
	Result       *ledger.Result
	OutputURI    string
}

// logContext tags the logger with the run id once one is known.
func (s *PipelineState) logContext(ctx context.Context) context.Context {
	if s.RunID == "" {
		return ctx
	}
	return logger.WithRun(ctx, s.RunID)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
		if err := step.Execute(state.logContext(ctx), state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// SheetNames are the spreadsheet tabs a run replaces.
type SheetNames struct {
	Payables    string
	Receivables string
	Allocations string
}

// Options configure a consolidation run.
type Options struct {
	Trigger            string
	Slots              int
	Sentinel           string
	Now                func() time.Time
	Location           *time.Location
	PayableStatuses    []string
	ReceivableStatuses []string
	Sheets             SheetNames
}

func (o Options) engine() *ledger.Engine {
	return ledger.NewEngine(ledger.Options{
		Slots:    o.Slots,
		Sentinel: o.Sentinel,
		Now:      o.Now,
		Location: o.Location,
	})
}

// NewConsolidationPipeline creates the standard run:
// start, fetch, archive exports, consolidate, save output, persist,
// publish, mark success.
func NewConsolidationPipeline(deps Deps, opts Options) *Pipeline {
	return NewPipeline(
		&StartRunStep{Runs: deps.Runs, Slots: opts.Slots},
		&FetchExportsStep{Source: deps.Source, Payables: opts.PayableStatuses, Receivables: opts.ReceivableStatuses},
		&ArchiveExportsStep{Archive: deps.Archive},
		&ConsolidateStep{Engine: opts.engine()},
		&SaveOutputStep{Archive: deps.Archive},
		&PersistResultsStep{Runs: deps.Runs, Now: opts.Now},
		&PublishSheetsStep{Sheets: deps.Sheets, Names: opts.Sheets},
		&MarkSuccessStep{Runs: deps.Runs},
	)
}

// Run executes a full consolidation run. Once a run id exists, any failure
// marks the run FAILED before the error is returned.
func Run(ctx context.Context, deps Deps, opts Options, state *PipelineState) (*PipelineState, error) {
	if state == nil {
		state = &PipelineState{}
	}
	if state.Trigger == "" {
		state.Trigger = opts.Trigger
	}

	err := NewConsolidationPipeline(deps, opts).Execute(ctx, state)
	if err != nil {
		if deps.Runs != nil && state.RunID != "" {
			deps.Runs.MarkRunFailed(context.WithoutCancel(ctx), state.RunID, err)
		}
		lg := logger.FromContext(state.logContext(ctx))
		lg.Error().Err(err).Msg("Consolidation run failed")
		return state, err
	}
	return state, nil
}
