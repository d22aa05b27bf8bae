package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/shopspring/decimal"
)

// numericScale is the fractional precision of BigQuery NUMERIC.
const numericScale = 9

// NewRecordRow maps a consolidated record to a ledger_records row.
func NewRecordRow(runID string, rec ledger.LedgerRecord, created time.Time) *RecordRow {
	row := &RecordRow{
		RunID:               runID,
		RecordID:            rec.ID,
		RecordType:          string(rec.Type),
		Status:              string(rec.Status),
		DueDate:             nullDate(rec.DueDate),
		CompetenceDate:      nullDate(rec.CompetenceDate),
		LastAcquittanceDate: nullDate(rec.LastAcquittanceDate),
		Paid:                rec.Paid.Rat(),
		Category:            nullString(rec.Category),
		Description:         nullString(rec.Description),
		NegotiatorName:      nullString(rec.NegotiatorName),
		CreatedTS:           created,
	}
	if rec.CategoryRatioValue != nil {
		row.CategoryRatioValue = rec.CategoryRatioValue.Rat()
	}
	return row
}

// NewAllocationRow maps one output row to a cost_center_allocations row.
func NewAllocationRow(runID string, r ledger.OutputRow, created time.Time) *AllocationRow {
	return &AllocationRow{
		RunID:               runID,
		RecordID:            r.RecordID,
		RecordType:          string(r.RecordType),
		Status:              string(r.Status),
		DueDate:             nullDate(r.DueDate),
		CompetenceDate:      nullDate(r.CompetenceDate),
		LastAcquittanceDate: nullDate(r.LastAcquittanceDate),
		Paid:                r.Paid.Rat(),
		Category:            nullString(r.Category),
		Description:         nullString(r.Description),
		NegotiatorName:      nullString(r.NegotiatorName),
		CenterName:          r.CenterName,
		CenterValue:         r.CenterValue.Rat(),
		CreatedTS:           created,
	}
}

// OutputRow maps a stored allocation back to the flat output row.
func (a *AllocationRow) OutputRow() (ledger.OutputRow, error) {
	paid, err := ratToDecimal(a.Paid)
	if err != nil {
		return ledger.OutputRow{}, fmt.Errorf("record %s: paid: %w", a.RecordID, err)
	}
	value, err := ratToDecimal(a.CenterValue)
	if err != nil {
		return ledger.OutputRow{}, fmt.Errorf("record %s: center_value: %w", a.RecordID, err)
	}
	return ledger.OutputRow{
		RecordID:            a.RecordID,
		RecordType:          ledger.RecordType(a.RecordType),
		Status:              ledger.Status(a.Status),
		DueDate:             civilDate(a.DueDate),
		CompetenceDate:      civilDate(a.CompetenceDate),
		Paid:                paid,
		Category:            a.Category.StringVal,
		Description:         a.Description.StringVal,
		NegotiatorName:      a.NegotiatorName.StringVal,
		LastAcquittanceDate: civilDate(a.LastAcquittanceDate),
		CenterName:          a.CenterName,
		CenterValue:         value,
	}, nil
}

// Record maps a stored record back to a ledger record. Allocations are not
// part of the row.
func (r *RecordRow) Record() (ledger.LedgerRecord, error) {
	paid, err := ratToDecimal(r.Paid)
	if err != nil {
		return ledger.LedgerRecord{}, fmt.Errorf("record %s: paid: %w", r.RecordID, err)
	}
	rec := ledger.LedgerRecord{
		ID:                  r.RecordID,
		Type:                ledger.RecordType(r.RecordType),
		Status:              ledger.Status(r.Status),
		DueDate:             civilDate(r.DueDate),
		CompetenceDate:      civilDate(r.CompetenceDate),
		LastAcquittanceDate: civilDate(r.LastAcquittanceDate),
		Paid:                paid,
		Category:            r.Category.StringVal,
		Description:         r.Description.StringVal,
		NegotiatorName:      r.NegotiatorName.StringVal,
	}
	if r.CategoryRatioValue != nil {
		ratio, err := ratToDecimal(r.CategoryRatioValue)
		if err != nil {
			return ledger.LedgerRecord{}, fmt.Errorf("record %s: category_ratio_value: %w", r.RecordID, err)
		}
		rec.CategoryRatioValue = &ratio
	}
	return rec, nil
}

func nullDate(d civil.Date) bigquery.NullDate {
	return bigquery.NullDate{Date: d, Valid: d.IsValid()}
}

func civilDate(d bigquery.NullDate) civil.Date {
	if !d.Valid {
		return civil.Date{}
	}
	return d.Date
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func ratToDecimal(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(r.FloatString(numericScale))
}
