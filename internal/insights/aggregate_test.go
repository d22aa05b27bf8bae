package insights

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func settledRecord(id string, rt ledger.RecordType, paid, category string, settled civil.Date) ledger.LedgerRecord {
	return ledger.LedgerRecord{
		ID:                  id,
		Type:                rt,
		Status:              ledger.StatusAcquitted,
		Paid:                amount(paid),
		Category:            category,
		LastAcquittanceDate: settled,
	}
}

func sampleRecords() []ledger.LedgerRecord {
	return []ledger.LedgerRecord{
		settledRecord("r1", ledger.Revenue, "1000", "Sales", day(2024, 1, 10)),
		settledRecord("e1", ledger.Expense, "400", "Rent", day(2024, 1, 20)),
		settledRecord("e2", ledger.Expense, "600", "Rent", day(2024, 2, 20)),
		settledRecord("r2", ledger.Revenue, "500", "Sales", day(2024, 4, 5)),
		settledRecord("old", ledger.Revenue, "999", "Sales", day(2023, 12, 31)),
		settledRecord("future", ledger.Expense, "50", "Tools", day(2024, 12, 1)),
		{ID: "o1", Type: ledger.Revenue, Status: ledger.StatusOverdue, Paid: amount("300"), DueDate: day(2024, 3, 1)},
		{ID: "o2", Type: ledger.Expense, Status: ledger.StatusOverdue, Paid: amount("80"), DueDate: day(2024, 5, 1)},
	}
}

func TestAggregate_Totals(t *testing.T) {
	s := Aggregate(sampleRecords(), nil, 2024, day(2024, 6, 15))

	assert.Equal(t, 5, s.Records)
	assert.Equal(t, "1500", s.TotalReceived.String())
	assert.Equal(t, "1050", s.TotalPaid.String())
	assert.Equal(t, "450", s.NetBalance.String())
	assert.Equal(t, "300", s.OverdueRevenue.String())
	assert.Equal(t, "80", s.OverdueExpense.String())
	assert.Equal(t, "0.2", s.Delinquency.String())

	require.Len(t, s.Quarters, 4)
	assert.Equal(t, "1000", s.Quarters[0].Revenue.String())
	assert.Equal(t, "1000", s.Quarters[0].Expense.String())
	assert.Equal(t, "500", s.Quarters[1].Revenue.String())
	assert.Equal(t, "50", s.Quarters[3].Expense.String())
}

func TestAggregate_TopCategories(t *testing.T) {
	s := Aggregate(sampleRecords(), nil, 2024, day(2024, 6, 15))

	assert.Equal(t, []CategoryCount{
		{Category: "Rent", Count: 2},
		{Category: "Sales", Count: 2},
		{Category: "Tools", Count: 1},
	}, s.TopCategories)
}

func TestAggregate_CashFlowSkipsFutureSettlements(t *testing.T) {
	s := Aggregate(sampleRecords(), nil, 2024, day(2024, 6, 15))

	require.Len(t, s.CashFlow, 3)
	assert.Equal(t, "2024-01", s.CashFlow[0].Month.String())
	assert.Equal(t, "600", s.CashFlow[0].Net.String())
	assert.Equal(t, "-600", s.CashFlow[1].Net.String())
	assert.Equal(t, "0", s.CashFlow[1].Balance.String())
	assert.Equal(t, "500", s.CashFlow[2].Balance.String())

	require.Len(t, s.Profitability, 3)
	require.NotNil(t, s.Profitability[0].Margin)
	assert.Equal(t, "0.6", s.Profitability[0].Margin.String())
	assert.Nil(t, s.Profitability[1].Margin, "no revenue in February")
}

func TestAggregate_GrowingCategories(t *testing.T) {
	s := Aggregate(sampleRecords(), nil, 2024, day(2024, 6, 15))

	require.Len(t, s.GrowingCategories, 1)
	assert.Equal(t, "Rent", s.GrowingCategories[0].Category)
	assert.Equal(t, "2024-02", s.GrowingCategories[0].Month.String())
	assert.Equal(t, "0.5", s.GrowingCategories[0].Growth.String())
}

func TestAggregate_CostCenters(t *testing.T) {
	rows := []ledger.OutputRow{
		{RecordType: ledger.Expense, CenterName: "Ops", CenterValue: amount("60"), LastAcquittanceDate: day(2024, 1, 20)},
		{RecordType: ledger.Expense, CenterName: "Ops", CenterValue: amount("40"), LastAcquittanceDate: day(2024, 2, 20)},
		{RecordType: ledger.Revenue, CenterName: "Brand", CenterValue: amount("10"), LastAcquittanceDate: day(2024, 3, 1)},
		{RecordType: ledger.Revenue, CenterName: "Brand", CenterValue: amount("10"), LastAcquittanceDate: day(2023, 3, 1)},
		{RecordType: ledger.Revenue, CenterName: "Unsettled", CenterValue: amount("10")},
	}

	s := Aggregate(nil, rows, 2024, day(2024, 6, 15))

	require.Len(t, s.CostCenters, 2)
	assert.Equal(t, "Brand", s.CostCenters[0].Name)
	assert.Equal(t, "10", s.CostCenters[0].Revenue.String())
	assert.Equal(t, "Ops", s.CostCenters[1].Name)
	assert.Equal(t, "100", s.CostCenters[1].Expense.String())
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, nil, 2024, day(2024, 6, 15))

	assert.Zero(t, s.Records)
	assert.True(t, s.Delinquency.IsZero())
	assert.Empty(t, s.CashFlow)
	assert.Empty(t, s.TopCategories)
}
