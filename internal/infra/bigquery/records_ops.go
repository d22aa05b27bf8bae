package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// insertChunkSize bounds the rows sent per streaming insert request.
const insertChunkSize = 500

// InsertRecordsWithClient streams ledger_records rows.
func InsertRecordsWithClient(ctx context.Context, client *bigquery.Client, t Tables, rows []*RecordRow) error {
	if err := putChunked(ctx, client.DatasetInProject(t.Project, t.Dataset).Table(recordsTable), rows); err != nil {
		return fmt.Errorf("InsertRecords: %w", err)
	}
	return nil
}

// InsertAllocationsWithClient streams cost_center_allocations rows.
func InsertAllocationsWithClient(ctx context.Context, client *bigquery.Client, t Tables, rows []*AllocationRow) error {
	if err := putChunked(ctx, client.DatasetInProject(t.Project, t.Dataset).Table(allocationsTable), rows); err != nil {
		return fmt.Errorf("InsertAllocations: %w", err)
	}
	return nil
}

func putChunked[T any](ctx context.Context, table *bigquery.Table, rows []T) error {
	inserter := table.Inserter()
	for start := 0; start < len(rows); start += insertChunkSize {
		end := min(start+insertChunkSize, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("inserting rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// QueryAllocationsWithClient returns the allocation table of one run in
// record order.
func QueryAllocationsWithClient(ctx context.Context, client *bigquery.Client, t Tables, runID string) ([]*AllocationRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			record_id,
			record_type,
			status,
			due_date,
			competence_date,
			last_acquittance_date,
			paid,
			category,
			description,
			negotiator_name,
			center_name,
			center_value,
			created_ts
		FROM %s
		WHERE run_id = @run_id
		ORDER BY record_type, record_id, center_name
	`, t.qualified(allocationsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryAllocations: query read: %w", err)
	}

	var rows []*AllocationRow
	for {
		var r AllocationRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryAllocations: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// QueryRecordsWithClient returns the consolidated records of one run.
func QueryRecordsWithClient(ctx context.Context, client *bigquery.Client, t Tables, runID string) ([]*RecordRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			record_id,
			record_type,
			status,
			due_date,
			competence_date,
			last_acquittance_date,
			paid,
			category_ratio_value,
			category,
			description,
			negotiator_name,
			created_ts
		FROM %s
		WHERE run_id = @run_id
		ORDER BY record_type, record_id
	`, t.qualified(recordsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryRecords: query read: %w", err)
	}

	var rows []*RecordRow
	for {
		var r RecordRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryRecords: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
