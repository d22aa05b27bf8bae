package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-consolidation/internal/exports"
	infra "github.com/dvloznov/ledger-consolidation/internal/infra/bigquery"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
	"github.com/google/uuid"
)

// OutputWorkbook is the archived file name of a run's output.
const OutputWorkbook = "consolidated.xlsx"

// StartRunStep creates the run record. Without a run store a local run id
// is generated.
type StartRunStep struct {
	Runs  RunStore
	Slots int
}

func (s *StartRunStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.RunID != "" {
		return nil
	}
	if s.Runs == nil {
		state.RunID = uuid.New().String()
		return nil
	}

	runID, err := s.Runs.StartRun(ctx, state.Trigger, s.Slots)
	if err != nil {
		return fmt.Errorf("StartRunStep: %w", err)
	}
	state.RunID = runID

	log := logger.FromContext(logger.WithRun(ctx, runID))
	log.Info().Str("trigger", state.Trigger).Msg("Started consolidation run")
	return nil
}

// FetchExportsStep downloads every configured status export. When no source
// is configured the batches already in the state are used as they are.
type FetchExportsStep struct {
	Source      ExportSource
	Payables    []string
	Receivables []string
}

func (s *FetchExportsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Source == nil {
		if len(state.Batches) == 0 {
			return fmt.Errorf("FetchExportsStep: no export source and no batches")
		}
		return nil
	}

	if len(state.Requests) == 0 {
		state.Requests = append(
			exports.Requests(ledger.Expense, s.Payables),
			exports.Requests(ledger.Revenue, s.Receivables)...,
		)
	}

	res, err := s.Source.FetchAll(ctx, state.Requests)
	if err != nil {
		return fmt.Errorf("FetchExportsStep: %w", err)
	}
	state.Exports = res.Exports
	state.Failures = res.Failures
	state.Batches = res.Batches()

	lg := logger.FromContext(ctx)
	lg.Info().
		Int("exports", len(res.Exports)).
		Int("failures", len(res.Failures)).
		Msg("Fetched status exports")
	return nil
}

// ArchiveExportsStep stores the raw export bytes of the run.
type ArchiveExportsStep struct {
	Archive ExportArchive
}

func (s *ArchiveExportsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archive == nil {
		return nil
	}
	for _, exp := range state.Exports {
		if len(exp.Data) == 0 {
			continue
		}
		uri, err := s.Archive.SaveExport(ctx, state.RunID, exp.Request.Name(), exp.Data)
		if err != nil {
			return fmt.Errorf("ArchiveExportsStep: %s: %w", exp.Request.Name(), err)
		}
		state.ArchivedURIs = append(state.ArchivedURIs, uri)
	}
	lg := logger.FromContext(ctx)
	lg.Debug().Int("archived", len(state.ArchivedURIs)).Msg("Archived raw exports")
	return nil
}

// ConsolidateStep runs the consolidation engine over the fetched batches.
type ConsolidateStep struct {
	Engine *ledger.Engine
}

func (s *ConsolidateStep) Execute(ctx context.Context, state *PipelineState) error {
	res, err := s.Engine.Run(state.Batches)
	if res != nil {
		state.Result = res
		LogDiagnostics(logger.FromContext(ctx), res.Diagnostics)
	}
	if err != nil {
		return fmt.Errorf("ConsolidateStep: %w", err)
	}
	return nil
}

// SaveOutputStep uploads the output workbook of the run.
type SaveOutputStep struct {
	Archive ExportArchive
}

func (s *SaveOutputStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archive == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := exports.WriteWorkbook(&buf, state.Result); err != nil {
		return fmt.Errorf("SaveOutputStep: %w", err)
	}
	uri, err := s.Archive.SaveOutput(ctx, state.RunID, OutputWorkbook, buf.Bytes())
	if err != nil {
		return fmt.Errorf("SaveOutputStep: %w", err)
	}
	state.OutputURI = uri
	lg := logger.FromContext(ctx)
	lg.Info().Str("output_uri", uri).Msg("Saved output workbook")
	return nil
}

// PersistResultsStep writes records and allocations to the warehouse.
type PersistResultsStep struct {
	Runs RunStore
	Now  func() time.Time
}

func (s *PersistResultsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Runs == nil {
		return nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	created := now().UTC()

	records := make([]*infra.RecordRow, len(state.Result.Records))
	for i, rec := range state.Result.Records {
		records[i] = infra.NewRecordRow(state.RunID, rec, created)
	}
	if err := s.Runs.InsertRecords(ctx, records); err != nil {
		return fmt.Errorf("PersistResultsStep: records: %w", err)
	}

	allocations := make([]*infra.AllocationRow, len(state.Result.Rows))
	for i, row := range state.Result.Rows {
		allocations[i] = infra.NewAllocationRow(state.RunID, row, created)
	}
	if err := s.Runs.InsertAllocations(ctx, allocations); err != nil {
		return fmt.Errorf("PersistResultsStep: allocations: %w", err)
	}

	lg := logger.FromContext(ctx)
	lg.Info().
		Int("records", len(records)).
		Int("allocations", len(allocations)).
		Msg("Persisted run results")
	return nil
}

// PublishSheetsStep replaces the payables, receivables and allocation tabs.
// A tab with an empty name is not published.
type PublishSheetsStep struct {
	Sheets SheetPublisher
	Names  SheetNames
}

func (s *PublishSheetsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Sheets == nil {
		return nil
	}
	tabs := []struct {
		title string
		lines [][]string
	}{
		{s.Names.Payables, exports.RecordLines(state.Result.RecordsOf(ledger.Expense))},
		{s.Names.Receivables, exports.RecordLines(state.Result.RecordsOf(ledger.Revenue))},
		{s.Names.Allocations, exports.AllocationLines(state.Result.Rows)},
	}
	for _, tab := range tabs {
		if tab.title == "" {
			continue
		}
		if err := s.Sheets.ReplaceSheet(ctx, tab.title, tab.lines); err != nil {
			return fmt.Errorf("PublishSheetsStep: %s: %w", tab.title, err)
		}
		lg := logger.FromContext(ctx)
		lg.Info().Str("sheet", tab.title).Int("rows", len(tab.lines)-1).Msg("Published sheet")
	}
	return nil
}

// MarkSuccessStep closes the run with its counts and diagnostics.
type MarkSuccessStep struct {
	Runs RunStore
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Runs == nil {
		return nil
	}
	diag, err := json.Marshal(state.Result.Diagnostics)
	if err != nil {
		return fmt.Errorf("MarkSuccessStep: marshal diagnostics: %w", err)
	}
	summary := infra.RunSummary{
		Records:     len(state.Result.Records),
		Allocations: len(state.Result.Rows),
		OutputURI:   state.OutputURI,
		Diagnostics: diag,
	}
	if err := s.Runs.MarkRunSucceeded(ctx, state.RunID, summary); err != nil {
		return fmt.Errorf("MarkSuccessStep: %w", err)
	}
	lg := logger.FromContext(ctx)
	lg.Info().Msg("Consolidation run succeeded")
	return nil
}
