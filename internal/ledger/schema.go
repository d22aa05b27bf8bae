package ledger

import "fmt"

// MaxSlots bounds the declared cost-center arity.
const MaxSlots = 50

// SlotColumns names the pair of columns backing one allocation slot.
type SlotColumns struct {
	Index       int
	NameColumn  string
	ValueColumn string
}

// CostCenterColumn is the canonical name column of slot i.
func CostCenterColumn(i int) string { return fmt.Sprintf("CostCenter%d", i) }

// CostCenterValueColumn is the canonical value column of slot i.
func CostCenterValueColumn(i int) string { return fmt.Sprintf("CostCenterValue%d", i) }

// DeclareSlots returns the K slot column pairs in index order, 1..k.
func DeclareSlots(k int) []SlotColumns {
	if k < 1 {
		k = 1
	}
	if k > MaxSlots {
		k = MaxSlots
	}
	slots := make([]SlotColumns, 0, k)
	for i := 1; i <= k; i++ {
		slots = append(slots, SlotColumns{
			Index:       i,
			NameColumn:  CostCenterColumn(i),
			ValueColumn: CostCenterValueColumn(i),
		})
	}
	return slots
}
