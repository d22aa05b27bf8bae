package ledger

import (
	"time"
)

// Options configures an Engine.
type Options struct {
	// Slots is the declared cost-center arity K.
	Slots int
	// Sentinel labels allocations without a cost-center name.
	Sentinel string
	// Now and Location fix the processing date used for overdue promotion.
	Now      func() time.Time
	Location *time.Location
}

// Result is the outcome of one consolidation run.
type Result struct {
	Records     []LedgerRecord
	Allocations []AllocationRow
	Rows        []OutputRow
	Diagnostics *Diagnostics
}

// Engine runs consolidation, unpivoting and reconciliation in one pass.
type Engine struct {
	consolidator *RecordConsolidator
	unpivoter    *CostCenterUnpivoter
	reconciler   *AllocationReconciler
}

// NewEngine wires the components for opts.
func NewEngine(opts Options) *Engine {
	normalizer := NewStatusNormalizer(opts.Now, opts.Location)
	return &Engine{
		consolidator: NewRecordConsolidator(normalizer, opts.Slots),
		unpivoter:    NewCostCenterUnpivoter(opts.Sentinel),
		reconciler:   NewAllocationReconciler(),
	}
}

// Run consolidates batches into the flat allocation table. The only fatal
// condition is ErrEmptyInput; everything else lands in Result.Diagnostics.
func (e *Engine) Run(batches []Batch) (*Result, error) {
	diag := &Diagnostics{}

	records, err := e.consolidator.Consolidate(batches, diag)
	if err != nil {
		return &Result{Diagnostics: diag}, err
	}

	candidates := e.unpivoter.Unpivot(records, diag)
	allocations, owners := e.reconciler.Reconcile(candidates, diag)
	records = e.reconciler.ClampRatios(records, diag)

	rows := make([]OutputRow, len(allocations))
	for i, a := range allocations {
		rows[i] = NewOutputRow(records[owners[i]], a)
	}

	return &Result{
		Records:     records,
		Allocations: allocations,
		Rows:        rows,
		Diagnostics: diag,
	}, nil
}

// RecordsOf returns the records of one type, preserving order.
func (r *Result) RecordsOf(rt RecordType) []LedgerRecord {
	var out []LedgerRecord
	for _, rec := range r.Records {
		if rec.Type == rt {
			out = append(out, rec)
		}
	}
	return out
}
