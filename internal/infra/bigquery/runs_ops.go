package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	runsTable        = "consolidation_runs"
	recordsTable     = "ledger_records"
	allocationsTable = "cost_center_allocations"

	maxErrorMessageLen = 2000
)

// Tables locates the dataset holding the consolidation tables.
type Tables struct {
	Project string
	Dataset string
}

func (t Tables) qualified(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", t.Project, t.Dataset, table)
}

const runColumns = `
			run_id,
			started_ts,
			finished_ts,
			trigger,
			cost_center_slots,
			status,
			error_message,
			record_count,
			allocation_count,
			output_uri,
			diagnostics`

// StartRunWithClient inserts a consolidation_runs row with status=RUNNING
// and returns the generated run_id.
func StartRunWithClient(ctx context.Context, client *bigquery.Client, t Tables, trigger string, slots int) (string, error) {
	runID := uuid.NewString()

	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id,
			started_ts,
			trigger,
			cost_center_slots,
			status
		)
		VALUES (
			@run_id,
			@started_ts,
			@trigger,
			@cost_center_slots,
			@status
		)
	`, t.qualified(runsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "trigger", Value: trigger},
		{Name: "cost_center_slots", Value: int64(slots)},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}
	return runID, nil
}

// MarkRunFailedWithClient sets status=FAILED, finished_ts and a truncated
// error_message. Failures are logged, not returned: the run already failed.
func MarkRunFailedWithClient(ctx context.Context, client *bigquery.Client, t Tables, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		if len(errMsg) > maxErrorMessageLen {
			errMsg = errMsg[:maxErrorMessageLen]
		}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, t.qualified(runsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkRunFailed: update failed")
	}
}

// MarkRunSucceededWithClient sets status=SUCCESS, finished_ts, the counts
// and the diagnostics JSON.
func MarkRunSucceededWithClient(ctx context.Context, client *bigquery.Client, t Tables, runID string, summary RunSummary) error {
	diagnostics := "{}"
	if len(summary.Diagnostics) > 0 {
		diagnostics = string(summary.Diagnostics)
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    record_count = @record_count,
		    allocation_count = @allocation_count,
		    output_uri = NULLIF(@output_uri, ""),
		    diagnostics = PARSE_JSON(@diagnostics)
		WHERE run_id = @run_id
	`, t.qualified(runsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSucceeded},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "record_count", Value: int64(summary.Records)},
		{Name: "allocation_count", Value: int64(summary.Allocations)},
		{Name: "output_uri", Value: summary.OutputURI},
		{Name: "diagnostics", Value: diagnostics},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkRunSucceeded: %w", err)
	}
	return nil
}

// ListRunsWithClient returns the most recent runs, newest first.
func ListRunsWithClient(ctx context.Context, client *bigquery.Client, t Tables, limit int) ([]*RunRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, runColumns, t.qualified(runsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: query read: %w", err)
	}

	var runs []*RunRow
	for {
		var r RunRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRuns: iter next: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, nil
}

// LatestSucceededRunWithClient returns the newest successful run, or nil
// when there is none.
func LatestSucceededRunWithClient(ctx context.Context, client *bigquery.Client, t Tables) (*RunRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE status = @status
		ORDER BY started_ts DESC
		LIMIT 1
	`, runColumns, t.qualified(runsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSucceeded},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LatestSucceededRun: query read: %w", err)
	}

	var row RunRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LatestSucceededRun: reading row: %w", err)
	}
	return &row, nil
}

func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
