package ledger

import (
	"errors"
)

// RecordConsolidator merges status batches into one deduplicated record
// set and normalizes every surviving record.
type RecordConsolidator struct {
	normalizer *StatusNormalizer
	slots      []SlotColumns
}

// NewRecordConsolidator builds a consolidator reading k allocation slots.
func NewRecordConsolidator(normalizer *StatusNormalizer, k int) *RecordConsolidator {
	return &RecordConsolidator{normalizer: normalizer, slots: DeclareSlots(k)}
}

// Consolidate concatenates batches in order, keeps the first occurrence of
// each id and normalizes the survivors. Rows from batches without an id
// column are kept as-is. It fails with ErrEmptyInput when no batch holds
// any row.
func (c *RecordConsolidator) Consolidate(batches []Batch, diag *Diagnostics) ([]LedgerRecord, error) {
	diag.BatchesReceived += len(batches)

	seen := make(map[string]struct{})
	var records []LedgerRecord

	for _, b := range batches {
		if len(b.Rows) == 0 {
			continue
		}
		diag.BatchesUsed++
		diag.RowsRead += len(b.Rows)

		src := b.Source()
		hasID := src.Columns.Has(ColID)

		for _, row := range b.Rows {
			id := ""
			if hasID {
				id = cellString(row[ColID])
			} else {
				diag.missingColumn(src.Type, ColID, "deduplication")
			}

			if id == "" {
				diag.RowsWithoutID++
			} else {
				if _, dup := seen[id]; dup {
					diag.DuplicatesDropped++
					continue
				}
				seen[id] = struct{}{}
			}

			rec := c.assemble(id, row, src, diag)
			c.normalizer.Normalize(&rec, row, src, diag)
			records = append(records, rec)
		}
	}

	if diag.RowsRead == 0 {
		return nil, ErrEmptyInput
	}
	diag.Records = len(records)
	return records, nil
}

func (c *RecordConsolidator) assemble(id string, row RawRow, src Source, diag *Diagnostics) LedgerRecord {
	rec := LedgerRecord{
		ID:             id,
		Type:           src.Type,
		Category:       cellString(row[ColCategory]),
		Description:    cellString(row[ColDescription]),
		NegotiatorName: cellString(row[ColNegotiatorName]),
		DueDate:        dateCell(id, row, ColDueDate, diag),
		CompetenceDate: dateCell(id, row, ColCompetenceDate, diag),
	}

	if src.Columns.Has(ColCategoryRatioValue) {
		ratio, err := ParseAmount(row[ColCategoryRatioValue])
		switch {
		case err == nil:
			rec.CategoryRatioValue = &ratio
		case !errors.Is(err, ErrBlankValue):
			diag.coercionFailed(id, ColCategoryRatioValue, row[ColCategoryRatioValue], err)
		}
	}

	rec.Allocations = make([]Slot, 0, len(c.slots))
	for _, s := range c.slots {
		if !src.Columns.Has(s.NameColumn) {
			diag.missingColumn(src.Type, s.NameColumn, "allocation slot")
		}
		if !src.Columns.Has(s.ValueColumn) {
			diag.missingColumn(src.Type, s.ValueColumn, "allocation slot")
		}
		rec.Allocations = append(rec.Allocations, Slot{
			Index: s.Index,
			Name:  row[s.NameColumn],
			Value: row[s.ValueColumn],
		})
	}
	return rec
}
