package insights

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/shopspring/decimal"
)

// growthThreshold is the month-over-month increase that flags a category.
var growthThreshold = decimal.RequireFromString("0.3")

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

func monthOf(d civil.Date) Month { return Month{Year: d.Year, Month: d.Month} }

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

func (m Month) before(o Month) bool {
	return m.Year < o.Year || (m.Year == o.Year && m.Month < o.Month)
}

// CategoryCount is how many settled records carry a category.
type CategoryCount struct {
	Category string
	Count    int
}

// QuarterTotals sums settled amounts of one quarter by record type.
type QuarterTotals struct {
	Quarter int
	Revenue decimal.Decimal
	Expense decimal.Decimal
}

// MonthFlow is the net cash movement of a month and the running balance.
type MonthFlow struct {
	Month   Month
	Net     decimal.Decimal
	Balance decimal.Decimal
}

// MonthProfit is revenue minus expense for one month. Margin is nil when
// there was no revenue.
type MonthProfit struct {
	Month   Month
	Revenue decimal.Decimal
	Expense decimal.Decimal
	Profit  decimal.Decimal
	Margin  *decimal.Decimal
}

// CategoryGrowth flags a category whose monthly total grew above the
// threshold against the previous month.
type CategoryGrowth struct {
	Month    Month
	Category string
	Growth   decimal.Decimal
}

// CenterTotal sums allocation values of one cost center by record type.
type CenterTotal struct {
	Name    string
	Revenue decimal.Decimal
	Expense decimal.Decimal
}

// Summary is the yearly aggregate handed to the narrative model.
type Summary struct {
	Year    int
	AsOf    civil.Date
	Records int

	TotalReceived  decimal.Decimal
	TotalPaid      decimal.Decimal
	OverdueRevenue decimal.Decimal
	OverdueExpense decimal.Decimal
	NetBalance     decimal.Decimal
	Delinquency    decimal.Decimal

	TopCategories     []CategoryCount
	Quarters          []QuarterTotals
	CashFlow          []MonthFlow
	Profitability     []MonthProfit
	GrowingCategories []CategoryGrowth
	CostCenters       []CenterTotal

	delinquent decimal.Decimal
}

// Aggregate summarizes the records settled in year. Overdue totals cover
// OVERDUE records due in year, since overdue records carry no settlement
// date. Cash flow and profitability only count records settled on or
// before asOf.
func Aggregate(records []ledger.LedgerRecord, allocations []ledger.OutputRow, year int, asOf civil.Date) *Summary {
	s := &Summary{Year: year, AsOf: asOf}

	settled := make([]ledger.LedgerRecord, 0, len(records))
	for _, rec := range records {
		if rec.LastAcquittanceDate.IsValid() && rec.LastAcquittanceDate.Year == year {
			settled = append(settled, rec)
		}
		if rec.Status == ledger.StatusOverdue && rec.DueDate.IsValid() && rec.DueDate.Year == year {
			s.addOverdue(rec, asOf)
		}
	}
	s.Records = len(settled)

	quarters := make([]QuarterTotals, 4)
	for i := range quarters {
		quarters[i].Quarter = i + 1
	}
	for _, rec := range settled {
		q := &quarters[(int(rec.LastAcquittanceDate.Month)-1)/3]
		switch rec.Type {
		case ledger.Revenue:
			s.TotalReceived = s.TotalReceived.Add(rec.Paid)
			q.Revenue = q.Revenue.Add(rec.Paid)
		case ledger.Expense:
			s.TotalPaid = s.TotalPaid.Add(rec.Paid)
			q.Expense = q.Expense.Add(rec.Paid)
		}
	}
	s.Quarters = quarters
	s.NetBalance = s.TotalReceived.Sub(s.TotalPaid)
	if !s.TotalReceived.IsZero() {
		s.Delinquency = s.delinquent.Div(s.TotalReceived)
	}

	s.TopCategories = topCategories(settled, 3)
	s.GrowingCategories = growingCategories(settled)
	s.CashFlow, s.Profitability = cashFlow(settled, asOf)
	s.CostCenters = centerTotals(allocations, year)
	return s
}

// addOverdue adds rec to the overdue totals. Overdue revenue already due
// by asOf also counts as delinquent.
func (s *Summary) addOverdue(rec ledger.LedgerRecord, asOf civil.Date) {
	switch rec.Type {
	case ledger.Revenue:
		s.OverdueRevenue = s.OverdueRevenue.Add(rec.Paid)
		if rec.Paid.IsPositive() && !rec.DueDate.After(asOf) {
			s.delinquent = s.delinquent.Add(rec.Paid)
		}
	case ledger.Expense:
		s.OverdueExpense = s.OverdueExpense.Add(rec.Paid)
	}
}

func topCategories(records []ledger.LedgerRecord, n int) []CategoryCount {
	counts := make(map[string]int)
	for _, rec := range records {
		if rec.Category != "" {
			counts[rec.Category]++
		}
	}

	out := make([]CategoryCount, 0, len(counts))
	for c, k := range counts {
		out = append(out, CategoryCount{Category: c, Count: k})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func growingCategories(records []ledger.LedgerRecord) []CategoryGrowth {
	totals := make(map[string]map[Month]decimal.Decimal)
	monthSet := make(map[Month]bool)
	for _, rec := range records {
		m := monthOf(rec.LastAcquittanceDate)
		monthSet[m] = true
		if rec.Category == "" {
			continue
		}
		if totals[rec.Category] == nil {
			totals[rec.Category] = make(map[Month]decimal.Decimal)
		}
		totals[rec.Category][m] = totals[rec.Category][m].Add(rec.Paid)
	}
	months := sortedMonths(monthSet)

	var out []CategoryGrowth
	for i := 1; i < len(months); i++ {
		for category, byMonth := range totals {
			prev, cur := byMonth[months[i-1]], byMonth[months[i]]
			if !prev.IsPositive() {
				continue
			}
			growth := cur.Sub(prev).Div(prev)
			if growth.GreaterThan(growthThreshold) {
				out = append(out, CategoryGrowth{Month: months[i], Category: category, Growth: growth})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month.before(out[j].Month)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func cashFlow(records []ledger.LedgerRecord, asOf civil.Date) ([]MonthFlow, []MonthProfit) {
	revenue := make(map[Month]decimal.Decimal)
	expense := make(map[Month]decimal.Decimal)
	monthSet := make(map[Month]bool)
	for _, rec := range records {
		if rec.LastAcquittanceDate.After(asOf) {
			continue
		}
		m := monthOf(rec.LastAcquittanceDate)
		switch rec.Type {
		case ledger.Revenue:
			revenue[m] = revenue[m].Add(rec.Paid.Abs())
		case ledger.Expense:
			expense[m] = expense[m].Add(rec.Paid.Abs())
		default:
			continue
		}
		monthSet[m] = true
	}

	var flows []MonthFlow
	var profits []MonthProfit
	balance := decimal.Zero
	for _, m := range sortedMonths(monthSet) {
		net := revenue[m].Sub(expense[m])
		balance = balance.Add(net)
		flows = append(flows, MonthFlow{Month: m, Net: net, Balance: balance})

		p := MonthProfit{Month: m, Revenue: revenue[m], Expense: expense[m], Profit: net}
		if !revenue[m].IsZero() {
			margin := net.Div(revenue[m])
			p.Margin = &margin
		}
		profits = append(profits, p)
	}
	return flows, profits
}

func centerTotals(rows []ledger.OutputRow, year int) []CenterTotal {
	byName := make(map[string]*CenterTotal)
	for _, r := range rows {
		if !r.LastAcquittanceDate.IsValid() || r.LastAcquittanceDate.Year != year {
			continue
		}
		t := byName[r.CenterName]
		if t == nil {
			t = &CenterTotal{Name: r.CenterName}
			byName[r.CenterName] = t
		}
		switch r.RecordType {
		case ledger.Revenue:
			t.Revenue = t.Revenue.Add(r.CenterValue)
		case ledger.Expense:
			t.Expense = t.Expense.Add(r.CenterValue)
		}
	}

	out := make([]CenterTotal, 0, len(byName))
	for _, t := range byName {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedMonths(set map[Month]bool) []Month {
	months := make([]Month, 0, len(set))
	for m := range set {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].before(months[j]) })
	return months
}
