package ledger

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// AllocationReconciler turns candidates into final allocation rows.
type AllocationReconciler struct{}

// NewAllocationReconciler returns a reconciler.
func NewAllocationReconciler() *AllocationReconciler {
	return &AllocationReconciler{}
}

// Reconcile coerces candidate values to decimals, normalizes their sign and
// drops rows that cannot be attributed to a cost center. Candidates with a
// blank value are kept at zero. The returned slice keeps candidate order.
func (r *AllocationReconciler) Reconcile(candidates []AllocationCandidate, diag *Diagnostics) ([]AllocationRow, []int) {
	rows := make([]AllocationRow, 0, len(candidates))
	owners := make([]int, 0, len(candidates))

	for _, c := range candidates {
		value, err := ParseAmount(c.Value)
		if err != nil {
			if !errors.Is(err, ErrBlankValue) {
				diag.coercionFailed(c.RecordID, CostCenterValueColumn(c.SlotIndex), c.Value, err)
				continue
			}
			value = decimal.Zero
		}

		name := strings.TrimSpace(c.CenterName)
		if name == "" || strings.EqualFold(name, "nan") {
			diag.EmptyCentersDropped++
			continue
		}

		rows = append(rows, AllocationRow{
			RecordID:    c.RecordID,
			CenterName:  name,
			CenterValue: value.Abs(),
		})
		owners = append(owners, c.Record)
	}

	diag.Allocations = len(rows)
	return rows, owners
}

// ClampRatios caps each record's category ratio value at its paid amount.
// Records are copied, never modified in place.
func (r *AllocationReconciler) ClampRatios(records []LedgerRecord, diag *Diagnostics) []LedgerRecord {
	out := make([]LedgerRecord, len(records))
	for i, rec := range records {
		if rec.CategoryRatioValue != nil && rec.CategoryRatioValue.GreaterThan(rec.Paid) {
			clamped := rec.Paid
			rec.CategoryRatioValue = &clamped
			diag.RatiosClamped++
		}
		out[i] = rec
	}
	return out
}
