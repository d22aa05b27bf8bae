package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
)

type RecordRow struct {
	RunID    string `bigquery:"run_id"`    // REQUIRED
	RecordID string `bigquery:"record_id"` // REQUIRED

	RecordType string `bigquery:"record_type"` // REQUIRED
	Status     string `bigquery:"status"`      // REQUIRED

	DueDate             bigquery.NullDate `bigquery:"due_date"`              // NULLABLE
	CompetenceDate      bigquery.NullDate `bigquery:"competence_date"`       // NULLABLE
	LastAcquittanceDate bigquery.NullDate `bigquery:"last_acquittance_date"` // NULLABLE

	Paid               *big.Rat `bigquery:"paid"`                 // REQUIRED NUMERIC
	CategoryRatioValue *big.Rat `bigquery:"category_ratio_value"` // NULLABLE NUMERIC

	Category       bigquery.NullString `bigquery:"category"`        // NULLABLE
	Description    bigquery.NullString `bigquery:"description"`     // NULLABLE
	NegotiatorName bigquery.NullString `bigquery:"negotiator_name"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// AllocationRow is one row of cost_center_allocations: an allocation joined
// with its record's fields, as in the flat output table.
type AllocationRow struct {
	RunID    string `bigquery:"run_id"`    // REQUIRED
	RecordID string `bigquery:"record_id"` // REQUIRED

	RecordType string `bigquery:"record_type"` // REQUIRED
	Status     string `bigquery:"status"`      // REQUIRED

	DueDate             bigquery.NullDate `bigquery:"due_date"`              // NULLABLE
	CompetenceDate      bigquery.NullDate `bigquery:"competence_date"`       // NULLABLE
	LastAcquittanceDate bigquery.NullDate `bigquery:"last_acquittance_date"` // NULLABLE

	Paid *big.Rat `bigquery:"paid"` // REQUIRED NUMERIC

	Category       bigquery.NullString `bigquery:"category"`        // NULLABLE
	Description    bigquery.NullString `bigquery:"description"`     // NULLABLE
	NegotiatorName bigquery.NullString `bigquery:"negotiator_name"` // NULLABLE

	CenterName  string   `bigquery:"center_name"`  // REQUIRED
	CenterValue *big.Rat `bigquery:"center_value"` // REQUIRED NUMERIC

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
