package ledger

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// RecordType distinguishes receivables from payables.
type RecordType string

const (
	Revenue RecordType = "REVENUE"
	Expense RecordType = "EXPENSE"
)

// ParseRecordType accepts REVENUE/EXPENSE in any case.
func ParseRecordType(s string) (RecordType, bool) {
	switch RecordType(strings.ToUpper(strings.TrimSpace(s))) {
	case Revenue:
		return Revenue, true
	case Expense:
		return Expense, true
	}
	return "", false
}

// Status is the lifecycle status of a ledger record.
type Status string

const (
	StatusAcquitted    Status = "ACQUITTED"
	StatusPartial      Status = "PARTIAL"
	StatusPending      Status = "PENDING"
	StatusOverdue      Status = "OVERDUE"
	StatusLost         Status = "LOST"
	StatusRenegotiated Status = "RENEGOTIATED"

	// StatusConciliated only appears in source batches. It is always
	// collapsed into StatusAcquitted.
	StatusConciliated Status = "CONCILIATED"
)

var knownStatuses = map[Status]bool{
	StatusAcquitted:    true,
	StatusPartial:      true,
	StatusPending:      true,
	StatusOverdue:      true,
	StatusLost:         true,
	StatusRenegotiated: true,
	StatusConciliated:  true,
}

// ParseStatus upper-cases s and reports whether it names a known status.
// Unknown values are returned as-is so they survive into the output.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	return st, knownStatuses[st]
}

// DefaultSentinel labels allocations that carry no cost-center name.
const DefaultSentinel = "Unassigned"

// Canonical source columns. Export readers map provider headers onto these.
const (
	ColID                  = "id"
	ColStatus              = "status"
	ColSituation           = "situation"
	ColDueDate             = "dueDate"
	ColCompetenceDate      = "competenceDate"
	ColSettlementDate      = "settlementDate"
	ColLastAcquittanceDate = "lastAcquittanceDate"
	ColPaid                = "paid"
	ColReceivedAmount      = "receivedAmount"
	ColOpenAmount          = "openAmount"
	ColCategory            = "category"
	ColCategoryRatioValue  = "categoryRatioValue"
	ColDescription         = "description"
	ColNegotiatorName      = "negotiatorName"
)

// DateColumns lists the canonical columns holding calendar dates.
var DateColumns = []string{ColDueDate, ColCompetenceDate, ColSettlementDate, ColLastAcquittanceDate}

// RawRow is one source row keyed by canonical column name.
type RawRow map[string]any

// ColumnSet records which columns a batch actually carries.
type ColumnSet map[string]struct{}

// NewColumnSet builds a set from column names.
func NewColumnSet(cols ...string) ColumnSet {
	set := make(ColumnSet, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether col is present.
func (s ColumnSet) Has(col string) bool {
	_, ok := s[col]
	return ok
}

// Batch is the materialized export for one (record type, status) pair.
type Batch struct {
	Type RecordType
	// Status overrides the per-row status column when set, mirroring how
	// exports are requested one status at a time.
	Status  Status
	Columns []string
	Rows    []RawRow
}

// ColumnSet returns the declared columns, or the union of row keys when
// the batch was built without a header.
func (b Batch) ColumnSet() ColumnSet {
	if len(b.Columns) > 0 {
		return NewColumnSet(b.Columns...)
	}
	set := make(ColumnSet)
	for _, row := range b.Rows {
		for k := range row {
			set[k] = struct{}{}
		}
	}
	return set
}

// Slot is one raw (center name, center value) pair at a declared index.
type Slot struct {
	Index int
	Name  any
	Value any
}

// LedgerRecord is a consolidated, normalized payable or receivable.
// Zero-valued dates mean the date is absent.
type LedgerRecord struct {
	ID                  string
	Type                RecordType
	Status              Status
	DueDate             civil.Date
	CompetenceDate      civil.Date
	LastAcquittanceDate civil.Date
	Paid                decimal.Decimal
	Category            string
	Description         string
	NegotiatorName      string
	CategoryRatioValue  *decimal.Decimal
	Allocations         []Slot
}

// AllocationRow attributes part of a record's value to one cost center.
type AllocationRow struct {
	RecordID    string
	CenterName  string
	CenterValue decimal.Decimal
}
