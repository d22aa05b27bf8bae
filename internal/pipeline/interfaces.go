package pipeline

import (
	"context"

	"github.com/dvloznov/ledger-consolidation/internal/exports"
	infra "github.com/dvloznov/ledger-consolidation/internal/infra/bigquery"
)

// ExportSource fetches provider status exports.
type ExportSource interface {
	FetchAll(ctx context.Context, reqs []exports.ExportRequest) (*exports.FetchResult, error)
}

// ExportArchive stores raw exports and run outputs.
type ExportArchive interface {
	SaveExport(ctx context.Context, runID, name string, data []byte) (string, error)
	SaveOutput(ctx context.Context, runID, filename string, data []byte) (string, error)
}

// RunStore tracks runs and persists their results.
type RunStore interface {
	StartRun(ctx context.Context, trigger string, slots int) (string, error)
	MarkRunSucceeded(ctx context.Context, runID string, summary infra.RunSummary) error
	MarkRunFailed(ctx context.Context, runID string, runErr error)
	InsertRecords(ctx context.Context, rows []*infra.RecordRow) error
	InsertAllocations(ctx context.Context, rows []*infra.AllocationRow) error
}

// SheetPublisher replaces spreadsheet tabs.
type SheetPublisher interface {
	ReplaceSheet(ctx context.Context, title string, lines [][]string) error
}

// Deps are the collaborators of a consolidation run. Every field except
// Source may be nil, in which case the step using it is skipped. Source
// may also be nil when the state already carries batches.
type Deps struct {
	Source  ExportSource
	Archive ExportArchive
	Runs    RunStore
	Sheets  SheetPublisher
}
