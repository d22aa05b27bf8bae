package pipeline

import (
	"github.com/dvloznov/ledger-consolidation/internal/ledger"
	"github.com/rs/zerolog"
)

// LogDiagnostics writes the counters of a run, then one warning per
// recorded warning.
func LogDiagnostics(log zerolog.Logger, d *ledger.Diagnostics) {
	if d == nil {
		return
	}
	event := log.Info()
	if d.Degraded() {
		event = log.Warn()
	}
	event.
		Int("batches_received", d.BatchesReceived).
		Int("batches_used", d.BatchesUsed).
		Int("rows_read", d.RowsRead).
		Int("records", d.Records).
		Int("duplicates_dropped", d.DuplicatesDropped).
		Int("rows_without_id", d.RowsWithoutID).
		Int("statuses_collapsed", d.StatusesCollapsed).
		Int("promoted_overdue", d.PromotedOverdue).
		Int("unknown_statuses", d.UnknownStatuses).
		Int("allocations", d.Allocations).
		Int("default_allocations", d.DefaultAllocations).
		Int("unassigned_allocations", d.UnassignedAllocations).
		Int("empty_centers_dropped", d.EmptyCentersDropped).
		Int("ratios_clamped", d.RatiosClamped).
		Int("coercion_failures", d.CoercionFailures).
		Msg("Consolidation diagnostics")

	for _, w := range d.Warnings() {
		log.Warn().Err(w).Msg("Consolidation warning")
	}
}
