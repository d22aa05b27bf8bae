package ledger

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when no batch produced a single usable row.
var ErrEmptyInput = errors.New("ledger: no usable rows in any batch")

// maxCoercionSamples caps how many coercion errors are kept verbatim.
const maxCoercionSamples = 50

// MissingColumnWarning reports a derivation skipped because its source
// column was absent. Rows counts the affected rows.
type MissingColumnWarning struct {
	RecordType RecordType `json:"record_type"`
	Column     string     `json:"column"`
	Feature    string     `json:"feature"`
	Rows       int        `json:"rows"`
}

func (w *MissingColumnWarning) Error() string {
	return fmt.Sprintf("missing column %q for %s on %s records (%d rows)", w.Column, w.Feature, w.RecordType, w.Rows)
}

// ValueCoercionError reports a cell that could not be coerced to the type
// its column requires.
type ValueCoercionError struct {
	RecordID string `json:"record_id"`
	Column   string `json:"column"`
	Value    string `json:"value"`
	Reason   string `json:"reason"`
}

func (e *ValueCoercionError) Error() string {
	return fmt.Sprintf("record %q: cannot coerce %s=%q: %s", e.RecordID, e.Column, e.Value, e.Reason)
}

// Diagnostics aggregates the non-fatal conditions of one run.
type Diagnostics struct {
	BatchesReceived int `json:"batches_received"`
	BatchesUsed     int `json:"batches_used"`
	RowsRead        int `json:"rows_read"`

	DuplicatesDropped int `json:"duplicates_dropped"`
	RowsWithoutID     int `json:"rows_without_id"`
	Records           int `json:"records"`

	StatusesCollapsed  int `json:"statuses_collapsed"`
	PromotedOverdue    int `json:"promoted_overdue"`
	SettlementDatesSet int `json:"settlement_dates_set"`
	UnknownStatuses    int `json:"unknown_statuses"`

	DefaultAllocations    int `json:"default_allocations"`
	UnassignedAllocations int `json:"unassigned_allocations"`
	SkippedSlots          int `json:"skipped_slots"`

	CoercionFailures    int `json:"coercion_failures"`
	EmptyCentersDropped int `json:"empty_centers_dropped"`
	RatiosClamped       int `json:"ratios_clamped"`
	Allocations         int `json:"allocations"`

	MissingColumns []*MissingColumnWarning `json:"missing_columns,omitempty"`
	CoercionErrors []*ValueCoercionError   `json:"coercion_errors,omitempty"`
}

func (d *Diagnostics) missingColumn(rt RecordType, column, feature string) {
	for _, w := range d.MissingColumns {
		if w.RecordType == rt && w.Column == column && w.Feature == feature {
			w.Rows++
			return
		}
	}
	d.MissingColumns = append(d.MissingColumns, &MissingColumnWarning{
		RecordType: rt,
		Column:     column,
		Feature:    feature,
		Rows:       1,
	})
}

func (d *Diagnostics) coercionFailed(recordID, column string, value any, err error) {
	d.CoercionFailures++
	if len(d.CoercionErrors) >= maxCoercionSamples {
		return
	}
	d.CoercionErrors = append(d.CoercionErrors, &ValueCoercionError{
		RecordID: recordID,
		Column:   column,
		Value:    cellString(value),
		Reason:   err.Error(),
	})
}

// Warnings returns every recorded warning as an error value.
func (d *Diagnostics) Warnings() []error {
	out := make([]error, 0, len(d.MissingColumns)+len(d.CoercionErrors))
	for _, w := range d.MissingColumns {
		out = append(out, w)
	}
	for _, e := range d.CoercionErrors {
		out = append(out, e)
	}
	return out
}

// Degraded reports whether any non-fatal condition was raised.
func (d *Diagnostics) Degraded() bool {
	return len(d.MissingColumns) > 0 || d.CoercionFailures > 0
}
