package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestNewRecordRow(t *testing.T) {
	ratio := decimal.RequireFromString("0.25")
	rec := ledger.LedgerRecord{
		ID:                 "A",
		Type:               ledger.Revenue,
		Status:             ledger.StatusPartial,
		DueDate:            civil.Date{Year: 2024, Month: 3, Day: 1},
		Paid:               decimal.RequireFromString("1234.56"),
		Category:           "Sales",
		CategoryRatioValue: &ratio,
	}

	row := NewRecordRow("run-1", rec, created)

	assert.Equal(t, "run-1", row.RunID)
	assert.Equal(t, "REVENUE", row.RecordType)
	assert.True(t, row.DueDate.Valid)
	assert.False(t, row.CompetenceDate.Valid, "absent date maps to NULL")
	assert.Equal(t, 0, row.Paid.Cmp(big.NewRat(123456, 100)))
	assert.Equal(t, 0, row.CategoryRatioValue.Cmp(big.NewRat(1, 4)))
	assert.True(t, row.Category.Valid)
	assert.False(t, row.Description.Valid)

	back, err := row.Record()
	require.NoError(t, err)
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.DueDate, back.DueDate)
	assert.False(t, back.CompetenceDate.IsValid())
	assert.True(t, rec.Paid.Equal(back.Paid))
	require.NotNil(t, back.CategoryRatioValue)
	assert.True(t, ratio.Equal(*back.CategoryRatioValue))
}

func TestNewRecordRow_NoRatio(t *testing.T) {
	row := NewRecordRow("run-1", ledger.LedgerRecord{ID: "A", Paid: decimal.Zero}, created)
	assert.Nil(t, row.CategoryRatioValue)

	back, err := row.Record()
	require.NoError(t, err)
	assert.Nil(t, back.CategoryRatioValue)
}

func TestAllocationRow_RoundTrip(t *testing.T) {
	out := ledger.OutputRow{
		RecordID:            "B",
		RecordType:          ledger.Expense,
		Status:              ledger.StatusOverdue,
		DueDate:             civil.Date{Year: 2024, Month: 1, Day: 15},
		LastAcquittanceDate: civil.Date{Year: 2024, Month: 2, Day: 1},
		Paid:                decimal.RequireFromString("100"),
		NegotiatorName:      "ACME",
		CenterName:          "Ops",
		CenterValue:         decimal.RequireFromString("33.333333333"),
	}

	row := NewAllocationRow("run-1", out, created)
	assert.Equal(t, "Ops", row.CenterName)
	assert.True(t, row.LastAcquittanceDate.Valid)

	back, err := row.OutputRow()
	require.NoError(t, err)
	assert.Equal(t, out.Strings(), back.Strings())
}

func TestRatToDecimal(t *testing.T) {
	d, err := ratToDecimal(nil)
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	d, err = ratToDecimal(big.NewRat(1, 3))
	require.NoError(t, err)
	assert.Equal(t, "0.333333333", d.String())

	d, err = ratToDecimal(big.NewRat(-250, 1))
	require.NoError(t, err)
	assert.Equal(t, "-250", d.String())
}

func TestTablesQualified(t *testing.T) {
	tables := Tables{Project: "p", Dataset: "finance"}
	assert.Equal(t, "`p.finance.consolidation_runs`", tables.qualified(runsTable))
}
