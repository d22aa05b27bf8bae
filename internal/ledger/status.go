package ledger

import (
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// settledSituations are the source situations whose settlement date is
// the record's last acquittance date.
var settledSituations = map[string]bool{
	"quitado":     true,
	"conciliado":  true,
	"acquitted":   true,
	"conciliated": true,
}

// Source describes the batch a row came from.
type Source struct {
	Type    RecordType
	Status  Status
	Columns ColumnSet
}

// Source returns the batch's row provenance.
func (b Batch) Source() Source {
	return Source{Type: b.Type, Status: b.Status, Columns: b.ColumnSet()}
}

// StatusNormalizer corrects record status and derives the payment amount
// and last acquittance date.
type StatusNormalizer struct {
	now func() time.Time
	loc *time.Location
}

// NewStatusNormalizer builds a normalizer that evaluates overdue records
// against now() in loc. Nil arguments default to time.Now and time.Local.
func NewStatusNormalizer(now func() time.Time, loc *time.Location) *StatusNormalizer {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &StatusNormalizer{now: now, loc: loc}
}

// Yesterday is the inclusive overdue cutoff: the processing date minus one
// day, truncated to midnight.
func (n *StatusNormalizer) Yesterday() civil.Date {
	return civil.DateOf(n.now().In(n.loc)).AddDays(-1)
}

// Normalize applies the status rules to rec, reading source cells from row.
// rec.DueDate must already be populated.
func (n *StatusNormalizer) Normalize(rec *LedgerRecord, row RawRow, src Source, diag *Diagnostics) {
	rec.Status = n.resolveStatus(row, src, diag)

	if rec.Status == StatusConciliated {
		rec.Status = StatusAcquitted
		diag.StatusesCollapsed++
	}

	rec.Paid = n.paid(rec, row, src, diag)

	if rec.Status == StatusPending {
		if !src.Columns.Has(ColDueDate) {
			diag.missingColumn(src.Type, ColDueDate, "overdue promotion")
		} else if rec.DueDate.IsValid() && !rec.DueDate.After(n.Yesterday()) {
			rec.Status = StatusOverdue
			diag.PromotedOverdue++
		}
	}

	n.lastAcquittance(rec, row, src, diag)
}

func (n *StatusNormalizer) resolveStatus(row RawRow, src Source, diag *Diagnostics) Status {
	raw := string(src.Status)
	if raw == "" {
		if !src.Columns.Has(ColStatus) {
			diag.missingColumn(src.Type, ColStatus, "status")
			return ""
		}
		raw = cellString(row[ColStatus])
	}
	st, ok := ParseStatus(raw)
	if !ok && st != "" {
		diag.UnknownStatuses++
	}
	return st
}

func (n *StatusNormalizer) paid(rec *LedgerRecord, row RawRow, src Source, diag *Diagnostics) decimal.Decimal {
	if rec.Type != Revenue {
		return n.amount(rec, row, src, ColPaid, diag)
	}

	switch rec.Status {
	case StatusAcquitted:
		return n.amount(rec, row, src, ColReceivedAmount, diag)
	case StatusPartial:
		received := n.amount(rec, row, src, ColReceivedAmount, diag)
		open := n.amount(rec, row, src, ColOpenAmount, diag)
		return received.Add(open)
	default:
		return n.amount(rec, row, src, ColOpenAmount, diag)
	}
}

// amount reads a money column. Absent columns and unparseable cells yield
// zero and are reported; blank cells yield zero silently.
func (n *StatusNormalizer) amount(rec *LedgerRecord, row RawRow, src Source, col string, diag *Diagnostics) decimal.Decimal {
	if !src.Columns.Has(col) {
		diag.missingColumn(src.Type, col, "paid amount")
		return decimal.Zero
	}
	d, err := ParseAmount(row[col])
	if err != nil {
		if !errors.Is(err, ErrBlankValue) {
			diag.coercionFailed(rec.ID, col, row[col], err)
		}
		return decimal.Zero
	}
	return d
}

func (n *StatusNormalizer) lastAcquittance(rec *LedgerRecord, row RawRow, src Source, diag *Diagnostics) {
	if src.Columns.Has(ColLastAcquittanceDate) {
		rec.LastAcquittanceDate = dateCell(rec.ID, row, ColLastAcquittanceDate, diag)
		return
	}

	hasSituation := src.Columns.Has(ColSituation)
	hasSettlement := src.Columns.Has(ColSettlementDate)
	if !hasSituation || !hasSettlement {
		if !hasSituation {
			diag.missingColumn(src.Type, ColSituation, "last acquittance date")
		}
		if !hasSettlement {
			diag.missingColumn(src.Type, ColSettlementDate, "last acquittance date")
		}
		return
	}

	situation := strings.ToLower(cellString(row[ColSituation]))
	if !settledSituations[situation] {
		rec.LastAcquittanceDate = civil.Date{}
		return
	}
	rec.LastAcquittanceDate = dateCell(rec.ID, row, ColSettlementDate, diag)
	if rec.LastAcquittanceDate.IsValid() {
		diag.SettlementDatesSet++
	}
}

// dateCell parses a date cell. Blank cells are absent dates; malformed
// cells are reported and treated as absent.
func dateCell(recordID string, row RawRow, col string, diag *Diagnostics) civil.Date {
	d, err := ParseDate(row[col])
	if err != nil {
		if !errors.Is(err, ErrBlankValue) {
			diag.coercionFailed(recordID, col, row[col], err)
		}
		return civil.Date{}
	}
	return d
}
