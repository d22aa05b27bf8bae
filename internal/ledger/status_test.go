package ledger

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow is 2024-06-15 in São Paulo, so yesterday is 2024-06-14.
func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC)
}

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

func normalize(t *testing.T, rt RecordType, batchStatus Status, row RawRow) (LedgerRecord, *Diagnostics) {
	t.Helper()
	n := NewStatusNormalizer(fixedNow, saoPaulo(t))
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	src := Source{Type: rt, Status: batchStatus, Columns: NewColumnSet(cols...)}
	diag := &Diagnostics{}
	rec := LedgerRecord{ID: cellString(row[ColID]), Type: rt, DueDate: dateCell("", row, ColDueDate, diag)}
	n.Normalize(&rec, row, src, diag)
	return rec, diag
}

func TestStatusNormalizer_Yesterday(t *testing.T) {
	n := NewStatusNormalizer(fixedNow, saoPaulo(t))
	assert.Equal(t, civil.Date{Year: 2024, Month: time.June, Day: 14}, n.Yesterday())
}

func TestStatusNormalizer_ConciliatedBecomesAcquitted(t *testing.T) {
	rec, diag := normalize(t, Expense, StatusConciliated, RawRow{ColID: "1", ColPaid: "10,00"})

	assert.Equal(t, StatusAcquitted, rec.Status)
	assert.Equal(t, 1, diag.StatusesCollapsed)
}

func TestStatusNormalizer_ExpensePaidIsRawAmount(t *testing.T) {
	rec, _ := normalize(t, Expense, StatusPending, RawRow{
		ColID:      "1",
		ColPaid:    "R$ 1.500,25",
		ColDueDate: "2030-01-01",
	})

	assert.True(t, decimal.RequireFromString("1500.25").Equal(rec.Paid))
	assert.Equal(t, StatusPending, rec.Status)
}

func TestStatusNormalizer_RevenuePaid(t *testing.T) {
	row := func() RawRow {
		return RawRow{
			ColID:             "r",
			ColReceivedAmount: "30",
			ColOpenAmount:     "70",
			ColDueDate:        "2030-01-01",
		}
	}

	tests := []struct {
		status Status
		want   string
	}{
		{StatusAcquitted, "30"},
		{StatusConciliated, "30"},
		{StatusPartial, "100"},
		{StatusPending, "70"},
		{StatusLost, "70"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			rec, _ := normalize(t, Revenue, tt.status, row())
			assert.True(t, decimal.RequireFromString(tt.want).Equal(rec.Paid), "got %s", rec.Paid)
		})
	}
}

func TestStatusNormalizer_OverduePromotionBoundary(t *testing.T) {
	tests := []struct {
		name string
		due  string
		want Status
	}{
		{name: "due yesterday", due: "14/06/2024", want: StatusOverdue},
		{name: "due long ago", due: "01/01/2020", want: StatusOverdue},
		{name: "due today", due: "15/06/2024", want: StatusPending},
		{name: "due tomorrow", due: "16/06/2024", want: StatusPending},
		{name: "no due date", due: "", want: StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := normalize(t, Revenue, StatusPending, RawRow{
				ColID:             "r",
				ColOpenAmount:     "5",
				ColReceivedAmount: "0",
				ColDueDate:        tt.due,
			})
			assert.Equal(t, tt.want, rec.Status)
		})
	}
}

func TestStatusNormalizer_OnlyPendingIsPromoted(t *testing.T) {
	rec, diag := normalize(t, Expense, StatusPartial, RawRow{ColID: "1", ColPaid: "1", ColDueDate: "2020-01-01"})

	assert.Equal(t, StatusPartial, rec.Status)
	assert.Zero(t, diag.PromotedOverdue)
}

func TestStatusNormalizer_LastAcquittanceFromSettlement(t *testing.T) {
	settled, diag := normalize(t, Expense, StatusAcquitted, RawRow{
		ColID:             "1",
		ColPaid:           "1",
		ColSituation:      "Quitado",
		ColSettlementDate: "10/05/2024",
	})
	assert.Equal(t, civil.Date{Year: 2024, Month: time.May, Day: 10}, settled.LastAcquittanceDate)
	assert.Equal(t, 1, diag.SettlementDatesSet)

	conciliado, _ := normalize(t, Expense, StatusAcquitted, RawRow{
		ColID:             "2",
		ColPaid:           "1",
		ColSituation:      "CONCILIADO",
		ColSettlementDate: "2024-05-11",
	})
	assert.Equal(t, civil.Date{Year: 2024, Month: time.May, Day: 11}, conciliado.LastAcquittanceDate)

	open, _ := normalize(t, Expense, StatusPending, RawRow{
		ColID:             "3",
		ColPaid:           "1",
		ColSituation:      "Em aberto",
		ColSettlementDate: "2024-05-11",
	})
	assert.False(t, open.LastAcquittanceDate.IsValid())
}

func TestStatusNormalizer_LastAcquittanceColumnWins(t *testing.T) {
	rec, diag := normalize(t, Revenue, StatusAcquitted, RawRow{
		ColID:                  "r",
		ColReceivedAmount:      "1",
		ColOpenAmount:          "0",
		ColLastAcquittanceDate: "02/02/2024",
	})

	assert.Equal(t, civil.Date{Year: 2024, Month: time.February, Day: 2}, rec.LastAcquittanceDate)
	assert.Empty(t, diag.MissingColumns)
}

func TestStatusNormalizer_MissingColumnsAreSkippedAndReported(t *testing.T) {
	rec, diag := normalize(t, Expense, StatusPending, RawRow{ColID: "1"})

	assert.True(t, rec.Paid.IsZero())
	assert.Equal(t, StatusPending, rec.Status, "no due date column means no promotion")
	assert.False(t, rec.LastAcquittanceDate.IsValid())

	var columns []string
	for _, w := range diag.MissingColumns {
		columns = append(columns, w.Column)
		assert.Equal(t, Expense, w.RecordType)
		assert.Equal(t, 1, w.Rows)
	}
	assert.ElementsMatch(t, []string{ColPaid, ColDueDate, ColSituation, ColSettlementDate}, columns)
}

func TestStatusNormalizer_StatusFromRowWhenBatchHasNone(t *testing.T) {
	rec, diag := normalize(t, Expense, "", RawRow{ColID: "1", ColPaid: "1", ColStatus: "renegotiated"})
	assert.Equal(t, StatusRenegotiated, rec.Status)
	assert.Zero(t, diag.UnknownStatuses)

	rec, diag = normalize(t, Expense, "", RawRow{ColID: "1", ColPaid: "1", ColStatus: "weird"})
	assert.Equal(t, Status("WEIRD"), rec.Status)
	assert.Equal(t, 1, diag.UnknownStatuses)
}

func TestStatusNormalizer_UnparseablePaidIsReported(t *testing.T) {
	rec, diag := normalize(t, Expense, StatusAcquitted, RawRow{ColID: "x", ColPaid: "abc"})

	assert.True(t, rec.Paid.IsZero())
	require.Len(t, diag.CoercionErrors, 1)
	assert.Equal(t, "x", diag.CoercionErrors[0].RecordID)
	assert.Equal(t, ColPaid, diag.CoercionErrors[0].Column)
}
