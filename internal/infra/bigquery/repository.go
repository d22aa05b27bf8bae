package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// RunRepository persists consolidation runs and their outputs.
type RunRepository interface {
	// StartRun inserts a run with status=RUNNING and returns its run_id.
	StartRun(ctx context.Context, trigger string, slots int) (string, error)

	// MarkRunSucceeded sets status=SUCCESS with counts and diagnostics.
	MarkRunSucceeded(ctx context.Context, runID string, summary RunSummary) error

	// MarkRunFailed sets status=FAILED and the error message.
	MarkRunFailed(ctx context.Context, runID string, runErr error)

	// InsertRecords stores the consolidated records of a run.
	InsertRecords(ctx context.Context, rows []*RecordRow) error

	// InsertAllocations stores the allocation table of a run.
	InsertAllocations(ctx context.Context, rows []*AllocationRow) error

	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*RunRow, error)

	// QueryAllocations returns the allocation table of a run.
	QueryAllocations(ctx context.Context, runID string) ([]*AllocationRow, error)

	// QueryRecords returns the consolidated records of a run.
	QueryRecords(ctx context.Context, runID string) ([]*RecordRow, error)

	// LatestSucceededRun returns the newest successful run, or nil.
	LatestSucceededRun(ctx context.Context) (*RunRow, error)
}

// BigQueryRunRepository is the BigQuery implementation of RunRepository.
// It holds one client shared by every operation.
type BigQueryRunRepository struct {
	client *bigquery.Client
	tables Tables
}

// NewBigQueryRunRepository creates a repository for the given project and
// dataset.
func NewBigQueryRunRepository(ctx context.Context, project, dataset string) (*BigQueryRunRepository, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRunRepository: creating client: %w", err)
	}
	return &BigQueryRunRepository{
		client: client,
		tables: Tables{Project: project, Dataset: dataset},
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryRunRepository) StartRun(ctx context.Context, trigger string, slots int) (string, error) {
	return StartRunWithClient(ctx, r.client, r.tables, trigger, slots)
}

func (r *BigQueryRunRepository) MarkRunSucceeded(ctx context.Context, runID string, summary RunSummary) error {
	return MarkRunSucceededWithClient(ctx, r.client, r.tables, runID, summary)
}

func (r *BigQueryRunRepository) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	MarkRunFailedWithClient(ctx, r.client, r.tables, runID, runErr)
}

func (r *BigQueryRunRepository) InsertRecords(ctx context.Context, rows []*RecordRow) error {
	return InsertRecordsWithClient(ctx, r.client, r.tables, rows)
}

func (r *BigQueryRunRepository) InsertAllocations(ctx context.Context, rows []*AllocationRow) error {
	return InsertAllocationsWithClient(ctx, r.client, r.tables, rows)
}

func (r *BigQueryRunRepository) ListRuns(ctx context.Context, limit int) ([]*RunRow, error) {
	return ListRunsWithClient(ctx, r.client, r.tables, limit)
}

func (r *BigQueryRunRepository) QueryAllocations(ctx context.Context, runID string) ([]*AllocationRow, error) {
	return QueryAllocationsWithClient(ctx, r.client, r.tables, runID)
}

func (r *BigQueryRunRepository) QueryRecords(ctx context.Context, runID string) ([]*RecordRow, error) {
	return QueryRecordsWithClient(ctx, r.client, r.tables, runID)
}

func (r *BigQueryRunRepository) LatestSucceededRun(ctx context.Context) (*RunRow, error) {
	return LatestSucceededRunWithClient(ctx, r.client, r.tables)
}
