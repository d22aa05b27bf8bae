package ledger

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// OutputColumns is the column order of the flat allocation table.
var OutputColumns = []string{
	"recordId",
	"recordType",
	"status",
	"dueDate",
	"competenceDate",
	"paid",
	"category",
	"description",
	"negotiatorName",
	"lastAcquittanceDate",
	"centerName",
	"centerValue",
}

// RecordColumns is the column order of the consolidated record table.
var RecordColumns = []string{
	"recordId",
	"recordType",
	"status",
	"dueDate",
	"competenceDate",
	"paid",
	"category",
	"categoryRatioValue",
	"description",
	"negotiatorName",
	"lastAcquittanceDate",
}

// OutputRow is one allocation joined with its record's fields.
type OutputRow struct {
	RecordID            string          `json:"recordId"`
	RecordType          RecordType      `json:"recordType"`
	Status              Status          `json:"status"`
	DueDate             civil.Date      `json:"dueDate"`
	CompetenceDate      civil.Date      `json:"competenceDate"`
	Paid                decimal.Decimal `json:"paid"`
	Category            string          `json:"category"`
	Description         string          `json:"description"`
	NegotiatorName      string          `json:"negotiatorName"`
	LastAcquittanceDate civil.Date      `json:"lastAcquittanceDate"`
	CenterName          string          `json:"centerName"`
	CenterValue         decimal.Decimal `json:"centerValue"`
}

// NewOutputRow joins an allocation with its owning record.
func NewOutputRow(rec LedgerRecord, a AllocationRow) OutputRow {
	return OutputRow{
		RecordID:            rec.ID,
		RecordType:          rec.Type,
		Status:              rec.Status,
		DueDate:             rec.DueDate,
		CompetenceDate:      rec.CompetenceDate,
		Paid:                rec.Paid,
		Category:            rec.Category,
		Description:         rec.Description,
		NegotiatorName:      rec.NegotiatorName,
		LastAcquittanceDate: rec.LastAcquittanceDate,
		CenterName:          a.CenterName,
		CenterValue:         a.CenterValue,
	}
}

// Strings renders the row in OutputColumns order. Absent dates are empty.
func (r OutputRow) Strings() []string {
	return []string{
		r.RecordID,
		string(r.RecordType),
		string(r.Status),
		FormatDate(r.DueDate),
		FormatDate(r.CompetenceDate),
		r.Paid.String(),
		r.Category,
		r.Description,
		r.NegotiatorName,
		FormatDate(r.LastAcquittanceDate),
		r.CenterName,
		r.CenterValue.String(),
	}
}

// Strings renders the record in RecordColumns order.
func (rec LedgerRecord) Strings() []string {
	ratio := ""
	if rec.CategoryRatioValue != nil {
		ratio = rec.CategoryRatioValue.String()
	}
	return []string{
		rec.ID,
		string(rec.Type),
		string(rec.Status),
		FormatDate(rec.DueDate),
		FormatDate(rec.CompetenceDate),
		rec.Paid.String(),
		rec.Category,
		ratio,
		rec.Description,
		rec.NegotiatorName,
		FormatDate(rec.LastAcquittanceDate),
	}
}

// FormatDate renders d as YYYY-MM-DD, or "" when absent.
func FormatDate(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return d.String()
}
