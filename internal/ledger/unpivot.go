package ledger

import (
	"slices"
)

// AllocationCandidate is an unpivoted slot awaiting reconciliation.
// Record is the position of the owning record in the consolidated set.
type AllocationCandidate struct {
	Record     int
	RecordID   string
	SlotIndex  int
	CenterName string
	Value      any
	Default    bool
}

// defaultAllocation guards the sentinel full-value row of one record.
// A fresh guard is used per record and is never stored.
type defaultAllocation struct {
	applied bool
}

// claim reports whether slot should become the sentinel full-value row,
// consuming the guard when it does.
func (d *defaultAllocation) claim(index int, emptyName, emptyValue bool) bool {
	if d.applied || index != 1 || !emptyName || !emptyValue {
		return false
	}
	d.applied = true
	return true
}

// CostCenterUnpivoter expands each record's slots into allocation
// candidates.
type CostCenterUnpivoter struct {
	sentinel string
}

// NewCostCenterUnpivoter labels nameless allocations with sentinel, or
// DefaultSentinel when empty.
func NewCostCenterUnpivoter(sentinel string) *CostCenterUnpivoter {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return &CostCenterUnpivoter{sentinel: sentinel}
}

// Unpivot expands every record in order.
func (u *CostCenterUnpivoter) Unpivot(records []LedgerRecord, diag *Diagnostics) []AllocationCandidate {
	var out []AllocationCandidate
	for i := range records {
		out = append(out, u.UnpivotRecord(i, records[i], diag)...)
	}
	return out
}

// UnpivotRecord classifies the record's slots by declared index:
//
//	slot 1, no name, no value, guard unset -> sentinel with the record's paid
//	no name, value                         -> sentinel with the slot value
//	name                                   -> name with the slot value
//	otherwise                              -> skipped
func (u *CostCenterUnpivoter) UnpivotRecord(pos int, rec LedgerRecord, diag *Diagnostics) []AllocationCandidate {
	slots := slices.Clone(rec.Allocations)
	slices.SortStableFunc(slots, func(a, b Slot) int { return a.Index - b.Index })

	var guard defaultAllocation
	var out []AllocationCandidate

	for _, s := range slots {
		emptyName := isBlank(s.Name)
		emptyValue := isZero(s.Value)

		c := AllocationCandidate{Record: pos, RecordID: rec.ID, SlotIndex: s.Index}
		switch {
		case guard.claim(s.Index, emptyName, emptyValue):
			c.CenterName = u.sentinel
			c.Value = rec.Paid
			c.Default = true
			diag.DefaultAllocations++
		case emptyName && !emptyValue:
			c.CenterName = u.sentinel
			c.Value = s.Value
			diag.UnassignedAllocations++
		case !emptyName:
			c.CenterName = cellString(s.Name)
			c.Value = s.Value
		default:
			diag.SkippedSlots++
			continue
		}
		out = append(out, c)
	}
	return out
}
