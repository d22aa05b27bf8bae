package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Run statuses stored in consolidation_runs.status.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusSucceeded = "SUCCESS"
	RunStatusFailed    = "FAILED"
)

type RunRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Trigger         string `bigquery:"trigger"`           // e.g. api, worker, cli
	CostCenterSlots int64  `bigquery:"cost_center_slots"` // REQUIRED

	Status       string `bigquery:"status"`        // NULLABLE
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	RecordCount     bigquery.NullInt64 `bigquery:"record_count"`     // NULLABLE
	AllocationCount bigquery.NullInt64 `bigquery:"allocation_count"` // NULLABLE

	OutputURI   bigquery.NullString `bigquery:"output_uri"`  // NULLABLE
	Diagnostics bigquery.NullJSON   `bigquery:"diagnostics"` // NULLABLE
}

// RunSummary is what a successful run reports back.
type RunSummary struct {
	Records     int
	Allocations int
	OutputURI   string
	Diagnostics []byte
}
